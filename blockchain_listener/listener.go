package blockchain_listener

import (
	"context"
	"log"
	"time"

	"github.com/Itshbhere/Establo/storage"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws" // Para WebSockets
)

// BlockchainListener escuta as transações do FeePayer na Solana e confere os
// espelhos SPL (mintTo, burn, transfer do mint da stablecoin) contra o estado
// interno do ledger. Ele NÃO muta o ledger: os serviços já gravam o estado na
// mesma transação em que chamam a Solana; aqui só auditamos a convergência.
type BlockchainListener struct {
	RPCClient     *rpc.Client
	WSClient      *ws.Client // Cliente WebSocket para subscrições
	Store         storage.Store
	FeePayerPK    solana.PrivateKey
	ConfigAddress string
}

// NewBlockchainListener conecta os clientes RPC e WebSocket.
func NewBlockchainListener(rpcEndpoint, wsEndpoint string, store storage.Store, feePayerKeyBase58, configAddress string) (*BlockchainListener, error) {
	wsClient, err := ws.Connect(context.Background(), wsEndpoint)
	if err != nil {
		return nil, err
	}
	feePayer, err := solana.PrivateKeyFromBase58(feePayerKeyBase58)
	if err != nil {
		return nil, err
	}

	return &BlockchainListener{
		RPCClient:     rpc.New(rpcEndpoint),
		WSClient:      wsClient,
		Store:         store,
		FeePayerPK:    feePayer,
		ConfigAddress: configAddress,
	}, nil
}

// StartListening subscreve aos logs das transações que mencionam o FeePayer e
// processa cada uma finalizada. Bloqueante; rode em uma goroutine.
func (l *BlockchainListener) StartListening(ctx context.Context) {
	log.Println("Iniciando listener da blockchain...")

	sub, err := l.WSClient.LogsSubscribeMentions(
		l.FeePayerPK.PublicKey(),
		rpc.CommitmentFinalized,
	)
	if err != nil {
		log.Printf("Falha ao subscrever aos logs: %v", err)
		return
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		got, err := sub.Recv(ctx)
		if err != nil {
			log.Printf("Erro ao receber assinatura: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		if got.Value.Err == nil {
			log.Printf("Transação confirmada (Signature: %s). Processando...", got.Value.Signature)
			l.ProcessTransaction(ctx, got.Value.Signature)
		} else {
			log.Printf("Transação %s falhou na cadeia: %v", got.Value.Signature, got.Value.Err)
		}
	}
}

// ProcessTransaction busca a transação, decodifica as instruções SPL Token do
// mint da stablecoin e confere o espelho contra o ledger interno.
func (l *BlockchainListener) ProcessTransaction(ctx context.Context, signature solana.Signature) {
	cfg, found, err := l.Store.GetConfig(ctx, l.ConfigAddress)
	if err != nil {
		log.Printf("Erro ao buscar config do ledger: %v", err)
		return
	}
	if !found {
		// Ledger ainda não inicializado; nada a conferir.
		return
	}

	txResp, err := l.RPCClient.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Commitment: rpc.CommitmentFinalized,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		log.Printf("Falha ao obter detalhes da transação %s: %v", signature, err)
		return
	}
	if txResp == nil || txResp.Transaction == nil {
		log.Printf("Detalhes da transação %s vazios.", signature)
		return
	}

	tx, err := txResp.Transaction.GetTransaction()
	if err != nil {
		log.Printf("Falha ao decodificar transação %s: %v", signature, err)
		return
	}

	for _, ci := range tx.Message.Instructions {
		programID, err := tx.Message.Program(ci.ProgramIDIndex)
		if err != nil || !programID.Equals(token.ProgramID) {
			continue
		}

		accounts, err := ci.ResolveInstructionAccounts(&tx.Message)
		if err != nil {
			log.Printf("Falha ao resolver contas da instrução: %v", err)
			continue
		}
		decoded, err := token.DecodeInstruction(accounts, ci.Data)
		if err != nil {
			log.Printf("Instrução SPL Token não decodificada: %v", err)
			continue
		}

		switch ix := decoded.Impl.(type) {
		case *token.MintTo:
			l.reconcileMintTo(ctx, signature, cfg.Mint, cfg.TotalSupply, ix)
		case *token.Burn:
			l.reconcileBurn(ctx, signature, cfg.Mint, cfg.TotalSupply, ix)
		case *token.Transfer:
			l.reconcileTransfer(ctx, signature, ix)
		}
	}
}

// reconcileMintTo confere um MintTo do mint da stablecoin contra o supply
// interno registrado pelo serviço.
func (l *BlockchainListener) reconcileMintTo(ctx context.Context, signature solana.Signature, configMint string, totalSupply uint64, ix *token.MintTo) {
	mint := ix.GetMintAccount().PublicKey
	if mint.String() != configMint {
		return // mint de outro token (ex.: NFT de imóvel)
	}
	amount := uint64(0)
	if ix.Amount != nil {
		amount = *ix.Amount
	}
	if amount > totalSupply {
		log.Printf("DIVERGÊNCIA: mintTo de %d na cadeia (tx %s) excede o supply interno %d", amount, signature, totalSupply)
		return
	}
	log.Printf("Espelho confirmado: mintTo de %d do mint %s (tx %s, supply interno %d)", amount, mint, signature, totalSupply)
}

// reconcileBurn confere um Burn do mint da stablecoin.
func (l *BlockchainListener) reconcileBurn(ctx context.Context, signature solana.Signature, configMint string, totalSupply uint64, ix *token.Burn) {
	mint := ix.GetMintAccount().PublicKey
	if mint.String() != configMint {
		return
	}
	amount := uint64(0)
	if ix.Amount != nil {
		amount = *ix.Amount
	}
	log.Printf("Espelho confirmado: burn de %d do mint %s (tx %s, supply interno %d)", amount, mint, signature, totalSupply)
}

// reconcileTransfer confere uma transferência SPL: busca o dono da conta de
// origem na cadeia e compara com o saldo interno espelhado.
func (l *BlockchainListener) reconcileTransfer(ctx context.Context, signature solana.Signature, ix *token.Transfer) {
	source := ix.GetSourceAccount().PublicKey
	amount := uint64(0)
	if ix.Amount != nil {
		amount = *ix.Amount
	}

	accountInfo, err := l.RPCClient.GetAccountInfo(ctx, source)
	if err != nil {
		log.Printf("Falha ao obter info da conta de origem %s: %v", source, err)
		return
	}
	var sourceTokenAccount token.Account
	if err := sourceTokenAccount.UnmarshalWithDecoder(bin.NewBinDecoder(accountInfo.Value.Data.GetBinary())); err != nil {
		log.Printf("Falha ao decodificar conta de origem %s: %v", source, err)
		return
	}

	owner := sourceTokenAccount.Owner.String()
	balance, err := l.Store.GetBalance(ctx, l.ConfigAddress, owner)
	if err != nil {
		log.Printf("Erro ao buscar saldo interno de %s: %v", owner, err)
		return
	}
	log.Printf("Transferência de %d confirmada na cadeia (tx %s); saldo interno de %s: %d", amount, signature, owner, balance)
}
