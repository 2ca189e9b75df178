package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Itshbhere/Establo/services"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
)

type MarketplaceHandler struct {
	Service *services.MarketplaceService
}

func NewMarketplaceHandler(s *services.MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{Service: s}
}

// Request struct para a inicialização do marketplace
type InitializeMarketplaceRequest struct {
	Admin            string `json:"admin"`
	StablecoinConfig string `json:"stablecoin_config"`
}

// Initialize cria o singleton do marketplace ligado ao ledger da stablecoin.
// POST /marketplace/initialize
func (h *MarketplaceHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req InitializeMarketplaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	admin, err := parsePubkey("admin", req.Admin)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m, err := h.Service.Initialize(r.Context(), admin, req.StablecoinConfig)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, m)
}

// Request struct para a troca do limiar de liquidação
type SetThresholdRequest struct {
	Signer    string `json:"signer"`
	Threshold uint8  `json:"threshold"`
}

// SetLiquidationThreshold muda o limiar padrão do marketplace (apenas admin).
// PUT /marketplace/threshold
func (h *MarketplaceHandler) SetLiquidationThreshold(w http.ResponseWriter, r *http.Request) {
	var req SetThresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	signer, err := parsePubkey("signer", req.Signer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.SetLiquidationThreshold(r.Context(), signer, req.Threshold); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// Request struct para o registro de um imóvel
type ListPropertyRequest struct {
	Owner     string `json:"owner"`
	Mint      string `json:"mint,omitempty"` // vazio: o mint do NFT é criado aqui
	Value     uint64 `json:"value"`
	Location  string `json:"location"`
	Details   string `json:"details"`
	Threshold *uint8 `json:"threshold,omitempty"` // vazio: usa o padrão do marketplace
}

// ListProperty registra um imóvel tokenizado e soma seu valor ao lastro.
// POST /marketplace/properties
func (h *MarketplaceHandler) ListProperty(w http.ResponseWriter, r *http.Request) {
	var req ListPropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	owner, err := parsePubkey("owner", req.Owner)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var mint *solana.PublicKey
	if req.Mint != "" {
		pk, err := parsePubkey("mint", req.Mint)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		mint = &pk
	}

	property, err := h.Service.ListProperty(r.Context(), owner, mint, req.Value, req.Location, req.Details, req.Threshold)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, property)
}

// Request struct para reavaliação
type UpdateValuationRequest struct {
	Authority string `json:"authority"`
	NewValue  uint64 `json:"new_value"`
}

// UpdateValuation registra uma reavaliação do imóvel identificado pelo mint.
// PUT /marketplace/properties/{mint}/valuation
func (h *MarketplaceHandler) UpdateValuation(w http.ResponseWriter, r *http.Request) {
	var req UpdateValuationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	authority, err := parsePubkey("authority", req.Authority)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	property, err := h.Service.UpdateValuation(r.Context(), authority, chi.URLParam(r, "mint"), req.NewValue)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, property)
}

// Request struct para transferência de titularidade
type TransferPropertyRequest struct {
	CurrentOwner string `json:"current_owner"`
	NewOwner     string `json:"new_owner"`
}

// TransferProperty transfere a titularidade do imóvel e o NFT subjacente.
// POST /marketplace/properties/{mint}/transfer
func (h *MarketplaceHandler) TransferProperty(w http.ResponseWriter, r *http.Request) {
	var req TransferPropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	currentOwner, err := parsePubkey("current_owner", req.CurrentOwner)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	newOwner, err := parsePubkey("new_owner", req.NewOwner)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	property, err := h.Service.TransferProperty(r.Context(), currentOwner, chi.URLParam(r, "mint"), newOwner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, property)
}

// Request struct para liquidação forçada
type LiquidatePropertyRequest struct {
	Signer string `json:"signer"`
}

// LiquidateProperty executa a liquidação forçada de um imóvel AtRisk.
// POST /marketplace/properties/{mint}/liquidate
func (h *MarketplaceHandler) LiquidateProperty(w http.ResponseWriter, r *http.Request) {
	var req LiquidatePropertyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	signer, err := parsePubkey("signer", req.Signer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	property, err := h.Service.LiquidateProperty(r.Context(), signer, chi.URLParam(r, "mint"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, property)
}

// GetProperty busca um imóvel pelo mint do seu NFT.
// GET /marketplace/properties/{mint}
func (h *MarketplaceHandler) GetProperty(w http.ResponseWriter, r *http.Request) {
	property, found, err := h.Service.GetProperty(r.Context(), chi.URLParam(r, "mint"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		http.Error(w, "imóvel não encontrado", http.StatusNotFound)
		return
	}
	writeJSON(w, property)
}

// ListProperties lista os imóveis registrados no marketplace.
// GET /marketplace/properties
func (h *MarketplaceHandler) ListProperties(w http.ResponseWriter, r *http.Request) {
	properties, err := h.Service.ListProperties(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, properties)
}

// GetMarketplace retorna o registro do marketplace.
// GET /marketplace
func (h *MarketplaceHandler) GetMarketplace(w http.ResponseWriter, r *http.Request) {
	m, found, err := h.Service.GetMarketplace(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		http.Error(w, "marketplace não inicializado", http.StatusNotFound)
		return
	}
	writeJSON(w, m)
}
