package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/Itshbhere/Establo/blockchain_listener"
	"github.com/Itshbhere/Establo/handlers"
	"github.com/Itshbhere/Establo/services"
	"github.com/Itshbhere/Establo/storage"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	// Variáveis de ambiente via .env em desenvolvimento; em produção vêm do host.
	if err := godotenv.Load(); err != nil {
		log.Println("Arquivo .env não encontrado, usando variáveis de ambiente do host.")
	}

	dataSourceName := os.Getenv("DATABASE_URL")
	solanaRPCURL := os.Getenv("SOLANA_RPC_URL")
	solanaWSURL := os.Getenv("SOLANA_WS_URL")
	feePayerPrivateKey := os.Getenv("SOLANA_FEE_PAYER_PRIVATE_KEY")
	programIDBase58 := os.Getenv("ESTABLO_PROGRAM_ID")
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	db, err := storage.NewDB(dataSourceName)
	if err != nil {
		log.Fatalf("Falha fatal ao conectar ao banco de dados e aplicar migrações: %v", err)
	}
	defer db.Close()

	solanaIntegrationService, err := services.NewSolanaIntegrationService(solanaRPCURL, feePayerPrivateKey, programIDBase58)
	if err != nil {
		log.Fatalf("Falha ao inicializar serviço Solana: %v", err)
	}

	programID, err := solana.PublicKeyFromBase58(programIDBase58)
	if err != nil {
		log.Fatalf("Program ID inválido: %v", err)
	}
	configAddress, err := services.DeriveConfigAddress(programID)
	if err != nil {
		log.Fatalf("Falha ao derivar endereço do config: %v", err)
	}
	marketplaceAddress, err := services.DeriveMarketplaceAddress(programID)
	if err != nil {
		log.Fatalf("Falha ao derivar endereço do marketplace: %v", err)
	}

	stablecoinService := services.NewStablecoinService(db, solanaIntegrationService, configAddress.String())
	marketplaceService := services.NewMarketplaceService(db, solanaIntegrationService, programID, marketplaceAddress.String())

	stablecoinHandler := handlers.NewStablecoinHandler(stablecoinService)
	marketplaceHandler := handlers.NewMarketplaceHandler(marketplaceService)

	// O listener audita os espelhos SPL em uma goroutine separada.
	listener, err := blockchain_listener.NewBlockchainListener(
		solanaRPCURL, solanaWSURL, db, feePayerPrivateKey, configAddress.String())
	if err != nil {
		log.Printf("Listener da blockchain indisponível: %v", err)
	} else {
		go listener.StartListening(context.Background())
		log.Println("Listener da blockchain iniciado.")
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.URLFormat)

	r.Route("/stablecoin", func(r chi.Router) {
		r.Post("/initialize", stablecoinHandler.Initialize)
		r.Post("/mint", stablecoinHandler.Mint)
		r.Post("/burn", stablecoinHandler.Burn)
		r.Post("/transfer", stablecoinHandler.Transfer)
		r.Post("/transactions", stablecoinHandler.SubmitTransaction)
		r.Post("/reserves", stablecoinHandler.UpdateReserves)
		r.Get("/reserves", stablecoinHandler.GetReserves)
		r.Put("/dao-account", stablecoinHandler.UpdateDaoAccount)
		r.Get("/dao-contributions", stablecoinHandler.GetDaoContributions)
		r.Get("/backing/{amount}", stablecoinHandler.GetRequiredBacking)
		r.Get("/balances/{owner}", stablecoinHandler.GetBalance)
	})

	r.Route("/marketplace", func(r chi.Router) {
		r.Get("/", marketplaceHandler.GetMarketplace)
		r.Post("/initialize", marketplaceHandler.Initialize)
		r.Put("/threshold", marketplaceHandler.SetLiquidationThreshold)
		r.Post("/properties", marketplaceHandler.ListProperty)
		r.Get("/properties", marketplaceHandler.ListProperties)
		r.Get("/properties/{mint}", marketplaceHandler.GetProperty)
		r.Put("/properties/{mint}/valuation", marketplaceHandler.UpdateValuation)
		r.Post("/properties/{mint}/transfer", marketplaceHandler.TransferProperty)
		r.Post("/properties/{mint}/liquidate", marketplaceHandler.LiquidateProperty)
	})

	fmt.Printf("Servidor backend rodando na porta :%s...\n", port)
	log.Fatal(http.ListenAndServe(":"+port, r))
}
