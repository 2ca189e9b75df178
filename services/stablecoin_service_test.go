package services

import (
	"context"
	"testing"

	"github.com/Itshbhere/Establo/models"
	"github.com/Itshbhere/Establo/storage"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testConfigAddress = "ConfigPDA111111111111111111111111111111111"

type stablecoinFixture struct {
	svc    *StablecoinService
	store  *storage.MemoryStore
	solana *MockSolana
	admin  solana.PublicKey
	dao    solana.PublicKey
}

func newStablecoinFixture(t *testing.T) *stablecoinFixture {
	t.Helper()
	store := storage.NewMemoryStore()
	ms := newPermissiveMockSolana()
	f := &stablecoinFixture{
		svc:    NewStablecoinService(store, ms, testConfigAddress),
		store:  store,
		solana: ms,
		admin:  solana.NewWallet().PublicKey(),
		dao:    solana.NewWallet().PublicKey(),
	}

	_, err := f.svc.Initialize(context.Background(), f.admin,
		solana.NewWallet().PublicKey(), // usdt mint
		f.dao,                          // conta da DAO
		solana.NewWallet().PublicKey(), // mint da stablecoin
		9, "QmCidInicial")
	require.NoError(t, err)
	return f
}

func TestInitializeTwiceFails(t *testing.T) {
	f := newStablecoinFixture(t)
	_, err := f.svc.Initialize(context.Background(), f.admin,
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), 9, "")
	assert.ErrorIs(t, err, models.ErrAlreadyInitialized)
}

func TestMintRequiresAdmin(t *testing.T) {
	f := newStablecoinFixture(t)
	intruder := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()

	err := f.svc.Mint(context.Background(), intruder, recipient, 1000)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	// Nada foi escrito
	balance, err := f.svc.GetBalance(context.Background(), recipient)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
}

func TestMintRejectsZeroAmount(t *testing.T) {
	f := newStablecoinFixture(t)
	err := f.svc.Mint(context.Background(), f.admin, solana.NewWallet().PublicKey(), 0)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
}

func TestMintBurnRoundTrip(t *testing.T) {
	f := newStablecoinFixture(t)
	ctx := context.Background()
	holder := solana.NewWallet().PublicKey()

	require.NoError(t, f.svc.Mint(ctx, f.admin, holder, 5_000_000_000))

	balance, err := f.svc.GetBalance(ctx, holder)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000_000), balance)

	status, err := f.svc.GetReserves(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000_000), status.TotalSupply)

	require.NoError(t, f.svc.Burn(ctx, f.admin, holder, 2_000_000_000))

	balance, err = f.svc.GetBalance(ctx, holder)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_000_000_000), balance)

	status, err = f.svc.GetReserves(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_000_000_000), status.TotalSupply)
}

func TestBurnInsufficientBalance(t *testing.T) {
	f := newStablecoinFixture(t)
	ctx := context.Background()
	holder := solana.NewWallet().PublicKey()

	require.NoError(t, f.svc.Mint(ctx, f.admin, holder, 100))
	err := f.svc.Burn(ctx, f.admin, holder, 200)
	assert.ErrorIs(t, err, models.ErrInsufficientAmount)

	// O saldo não mudou
	balance, err := f.svc.GetBalance(ctx, holder)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), balance)
}

func TestTransferDeductsFeeForDao(t *testing.T) {
	f := newStablecoinFixture(t)
	ctx := context.Background()
	sender := solana.NewWallet().PublicKey()
	recipient := solana.NewWallet().PublicKey()

	require.NoError(t, f.svc.Mint(ctx, f.admin, sender, 1_000_000_000))

	preparedTx, err := f.svc.Transfer(ctx, sender, recipient, 1_000_000_000)
	require.NoError(t, err)
	assert.NotEmpty(t, preparedTx)

	// fee = floor(1e9 * 50 / 10000) = 5_000_000
	senderBalance, err := f.svc.GetBalance(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), senderBalance)

	recipientBalance, err := f.svc.GetBalance(ctx, recipient)
	require.NoError(t, err)
	assert.Equal(t, uint64(995_000_000), recipientBalance)

	contributions, err := f.svc.GetDaoContributions(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), contributions)

	// O supply não muda numa transferência
	status, err := f.svc.GetReserves(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), status.TotalSupply)
}

// Auto-transferência: o remetente termina só com a taxa debitada, nunca com
// saldo inflado pela gravação do crédito por cima do débito.
func TestTransferToSelfOnlyChargesFee(t *testing.T) {
	f := newStablecoinFixture(t)
	ctx := context.Background()
	sender := solana.NewWallet().PublicKey()

	require.NoError(t, f.svc.Mint(ctx, f.admin, sender, 1_000_000_000))
	_, err := f.svc.Transfer(ctx, sender, sender, 1_000_000_000)
	require.NoError(t, err)

	// -1e9 (débito) +995e6 (crédito líquido) = -5e6
	balance, err := f.svc.GetBalance(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, uint64(995_000_000), balance)

	contributions, err := f.svc.GetDaoContributions(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), contributions)

	daoBalance, err := f.svc.GetBalance(ctx, f.dao)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), daoBalance)
}

// Transferência cujo destinatário É a conta da DAO: líquido e taxa se
// acumulam na mesma chave em vez de a taxa sobrescrever o crédito.
func TestTransferToDaoAccountAccumulates(t *testing.T) {
	f := newStablecoinFixture(t)
	ctx := context.Background()
	sender := solana.NewWallet().PublicKey()

	require.NoError(t, f.svc.Mint(ctx, f.admin, sender, 1_000_000_000))
	_, err := f.svc.Transfer(ctx, sender, f.dao, 1_000_000_000)
	require.NoError(t, err)

	// 995e6 (líquido) + 5e6 (taxa) = o valor inteiro
	daoBalance, err := f.svc.GetBalance(ctx, f.dao)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000_000), daoBalance)

	senderBalance, err := f.svc.GetBalance(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), senderBalance)

	contributions, err := f.svc.GetDaoContributions(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), contributions)
}

func TestTransferInsufficientBalance(t *testing.T) {
	f := newStablecoinFixture(t)
	ctx := context.Background()
	sender := solana.NewWallet().PublicKey()

	require.NoError(t, f.svc.Mint(ctx, f.admin, sender, 50))
	_, err := f.svc.Transfer(ctx, sender, solana.NewWallet().PublicKey(), 100)
	assert.ErrorIs(t, err, models.ErrInsufficientAmount)
}

func TestTransferTinyAmountNetsToZero(t *testing.T) {
	f := newStablecoinFixture(t)
	ctx := context.Background()
	sender := solana.NewWallet().PublicKey()

	// Abaixo do mínimo a taxa engole tudo? Não: a taxa trunca para 0 e o
	// líquido segue positivo. O que é rejeitado é líquido zero.
	require.NoError(t, f.svc.Mint(ctx, f.admin, sender, 10))
	_, err := f.svc.Transfer(ctx, sender, solana.NewWallet().PublicKey(), 10)
	require.NoError(t, err)

	_, err = f.svc.Transfer(ctx, sender, solana.NewWallet().PublicKey(), 0)
	assert.ErrorIs(t, err, models.ErrInvalidAmount)
}

func TestUpdateReservesRescalesAndReportsBacking(t *testing.T) {
	f := newStablecoinFixture(t)
	ctx := context.Background()
	holder := solana.NewWallet().PublicKey()

	require.NoError(t, f.svc.Mint(ctx, f.admin, holder, 100_000_000_000))

	// USDT em 6 casas, imóveis em 0 casas; o ledger opera em 9 casas.
	err := f.svc.UpdateReserves(ctx, f.admin,
		models.NewAmount(70_000_000, 6), // 70 USDT
		models.NewAmount(31, 0),         // 31 unidades
		nil)
	require.NoError(t, err)

	status, err := f.svc.GetReserves(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(70_000_000_000), status.UsdtReserve)
	assert.Equal(t, uint64(31_000_000_000), status.RealEstateValue)
	assert.True(t, status.IsFullyBacked) // 70e9 + 31e9 >= 100e9

	// Caindo abaixo do supply, o predicado vira falso
	err = f.svc.UpdateReserves(ctx, f.admin,
		models.NewAmount(50_000_000, 6),
		models.NewAmount(31, 0),
		nil)
	require.NoError(t, err)

	status, err = f.svc.GetReserves(ctx)
	require.NoError(t, err)
	assert.False(t, status.IsFullyBacked)
}

func TestUpdateReservesRequiresAdmin(t *testing.T) {
	f := newStablecoinFixture(t)
	err := f.svc.UpdateReserves(context.Background(), solana.NewWallet().PublicKey(),
		models.NewAmount(1, 6), models.NewAmount(1, 0), nil)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestUpdateDaoAccountRejectsZeroPubkey(t *testing.T) {
	f := newStablecoinFixture(t)
	err := f.svc.UpdateDaoAccount(context.Background(), f.admin, solana.PublicKey{})
	assert.ErrorIs(t, err, models.ErrInvalidDaoAccount)
}

func TestUpdateDaoAccountSwitchesFeeCollection(t *testing.T) {
	f := newStablecoinFixture(t)
	ctx := context.Background()
	newDao := solana.NewWallet().PublicKey()

	require.NoError(t, f.svc.UpdateDaoAccount(ctx, f.admin, newDao))

	sender := solana.NewWallet().PublicKey()
	require.NoError(t, f.svc.Mint(ctx, f.admin, sender, 1_000_000_000))
	_, err := f.svc.Transfer(ctx, sender, solana.NewWallet().PublicKey(), 1_000_000_000)
	require.NoError(t, err)

	// A taxa foi creditada na conta nova
	daoBalance, err := f.svc.GetBalance(ctx, newDao)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_000_000), daoBalance)
}

func TestRequiredBacking(t *testing.T) {
	usdt, realEstate, err := RequiredBacking(1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(700_000), usdt)
	assert.Equal(t, uint64(300_000), realEstate)
}

func TestEventsEmittedPerOperation(t *testing.T) {
	f := newStablecoinFixture(t)
	ctx := context.Background()
	holder := solana.NewWallet().PublicKey()

	require.NoError(t, f.svc.Mint(ctx, f.admin, holder, 1_000_000_000))
	_, err := f.svc.Transfer(ctx, holder, solana.NewWallet().PublicKey(), 500_000_000)
	require.NoError(t, err)

	mints, err := f.store.ListEvents(ctx, models.EventMint, 0)
	require.NoError(t, err)
	assert.Len(t, mints, 1)

	transfers, err := f.store.ListEvents(ctx, models.EventTransfer, 0)
	require.NoError(t, err)
	assert.Len(t, transfers, 1)
}

// Falha na Solana dentro da transação desfaz todas as escritas do ledger.
func TestSolanaFailureRollsBackMint(t *testing.T) {
	store := storage.NewMemoryStore()
	ms := new(MockSolana)
	ms.On("MintStablecoin", mock.Anything, mock.Anything, mock.Anything).
		Return(solana.Signature{}, assert.AnError)

	admin := solana.NewWallet().PublicKey()
	svc := NewStablecoinService(store, ms, testConfigAddress)
	_, err := svc.Initialize(context.Background(), admin,
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), 9, "")
	require.NoError(t, err)

	holder := solana.NewWallet().PublicKey()
	err = svc.Mint(context.Background(), admin, holder, 1000)
	require.Error(t, err)

	balance, err := svc.GetBalance(context.Background(), holder)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)

	status, err := svc.GetReserves(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(0), status.TotalSupply)
}
