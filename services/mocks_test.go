package services

import (
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/mock"
)

// MockSolana substitui a integração Solana nos testes de unidade: os serviços
// do núcleo são testados sem rede.
type MockSolana struct {
	mock.Mock
}

func (m *MockSolana) MintStablecoin(mint, recipient solana.PublicKey, amount uint64) (solana.Signature, error) {
	args := m.Called(mint, recipient, amount)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockSolana) BurnStablecoin(mint, holder solana.PublicKey, amount uint64) (solana.Signature, error) {
	args := m.Called(mint, holder, amount)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockSolana) PrepareStablecoinTransfer(mint, sender, recipient, daoAccount solana.PublicKey, amountAfterFee, fee uint64) (string, error) {
	args := m.Called(mint, sender, recipient, daoAccount, amountAfterFee, fee)
	return args.String(0), args.Error(1)
}

func (m *MockSolana) SendSignedTransaction(signedTxBase64 string) (solana.Signature, error) {
	args := m.Called(signedTxBase64)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockSolana) CreatePropertyMint(owner solana.PublicKey) (solana.PublicKey, error) {
	args := m.Called(owner)
	return args.Get(0).(solana.PublicKey), args.Error(1)
}

func (m *MockSolana) TransferPropertyToken(mint, from, to solana.PublicKey) (solana.Signature, error) {
	args := m.Called(mint, from, to)
	return args.Get(0).(solana.Signature), args.Error(1)
}

// newPermissiveMockSolana aceita qualquer chamada com sucesso, para os testes
// que exercitam só a lógica do ledger.
func newPermissiveMockSolana() *MockSolana {
	ms := new(MockSolana)
	ms.On("MintStablecoin", mock.Anything, mock.Anything, mock.Anything).Return(solana.Signature{}, nil)
	ms.On("BurnStablecoin", mock.Anything, mock.Anything, mock.Anything).Return(solana.Signature{}, nil)
	ms.On("PrepareStablecoinTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("dHg=", nil)
	ms.On("SendSignedTransaction", mock.Anything).Return(solana.Signature{}, nil)
	ms.On("CreatePropertyMint", mock.Anything).Return(solana.NewWallet().PublicKey(), nil)
	ms.On("TransferPropertyToken", mock.Anything, mock.Anything, mock.Anything).Return(solana.Signature{}, nil)
	return ms
}
