package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Itshbhere/Establo/models"
	"github.com/Itshbhere/Establo/services"

	"github.com/gagliardetto/solana-go" // Para PublicKey
	"github.com/go-chi/chi/v5"
)

type StablecoinHandler struct {
	Service *services.StablecoinService
}

func NewStablecoinHandler(s *services.StablecoinService) *StablecoinHandler {
	return &StablecoinHandler{Service: s}
}

// statusForError mapeia os erros sentinela dos serviços para status HTTP.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrInvalidThreshold),
		errors.Is(err, models.ErrInvalidDaoAccount),
		errors.Is(err, models.ErrDecimalMismatch):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientAmount),
		errors.Is(err, models.ErrInsufficientReserves),
		errors.Is(err, models.ErrArithmeticOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrAlreadyInitialized),
		errors.Is(err, models.ErrPropertyAlreadyListed),
		errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrNotEligibleForLiquidation):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotInitialized),
		errors.Is(err, models.ErrPropertyNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, err.Error(), statusForError(err))
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func parsePubkey(field, value string) (solana.PublicKey, error) {
	pk, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("campo %s inválido: %w", field, err)
	}
	return pk, nil
}

// Request struct para a inicialização do ledger
type InitializeStablecoinRequest struct {
	Admin           string `json:"admin"`
	UsdtMint        string `json:"usdt_mint"`
	DaoTokenAccount string `json:"dao_token_account"`
	Mint            string `json:"mint"`
	Decimals        uint8  `json:"decimals"`
	RealEstateCid   string `json:"real_estate_cid"`
}

// Initialize cria o singleton do ledger da stablecoin.
// POST /stablecoin/initialize
func (h *StablecoinHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	var req InitializeStablecoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	admin, err := parsePubkey("admin", req.Admin)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	usdtMint, err := parsePubkey("usdt_mint", req.UsdtMint)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	daoAccount, err := parsePubkey("dao_token_account", req.DaoTokenAccount)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	mint, err := parsePubkey("mint", req.Mint)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	cfg, err := h.Service.Initialize(r.Context(), admin, usdtMint, daoAccount, mint, req.Decimals, req.RealEstateCid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, cfg)
}

// Request struct para cunhagem
type MintRequest struct {
	Signer    string `json:"signer"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

// Mint cunha stablecoin para um destinatário (apenas admin).
// POST /stablecoin/mint
func (h *StablecoinHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	signer, err := parsePubkey("signer", req.Signer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	recipient, err := parsePubkey("recipient", req.Recipient)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.Mint(r.Context(), signer, recipient, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// Request struct para queima
type BurnRequest struct {
	Signer string `json:"signer"`
	Holder string `json:"holder"`
	Amount uint64 `json:"amount"`
}

// Burn queima stablecoin de um titular (apenas admin).
// POST /stablecoin/burn
func (h *StablecoinHandler) Burn(w http.ResponseWriter, r *http.Request) {
	var req BurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	signer, err := parsePubkey("signer", req.Signer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	holder, err := parsePubkey("holder", req.Holder)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.Burn(r.Context(), signer, holder, req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// Request struct para transferência com taxa
type TransferRequest struct {
	Signer    string `json:"signer"`
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

// Response struct para a transferência preparada
type TransferResponse struct {
	SerializedTransaction string `json:"serialized_transaction"` // Transação em Base64 para assinatura
}

// Transfer executa a transferência com taxa de 0,5% para a DAO e devolve a
// transação SPL preparada para assinatura do remetente.
// POST /stablecoin/transfer
func (h *StablecoinHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	signer, err := parsePubkey("signer", req.Signer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	recipient, err := parsePubkey("recipient", req.Recipient)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	preparedTx, err := h.Service.Transfer(r.Context(), signer, recipient, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, TransferResponse{SerializedTransaction: preparedTx})
}

// Request struct para completar a transferência
type SubmitTransactionRequest struct {
	SignedTransaction string `json:"signed_transaction"` // Transação assinada pelo usuário (Base64)
}

// SubmitTransaction envia a transação de transferência assinada para a Solana.
// POST /stablecoin/transactions
func (h *StablecoinHandler) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var req SubmitTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.SignedTransaction == "" {
		http.Error(w, "campo signed_transaction vazio", http.StatusBadRequest)
		return
	}

	signature, err := h.Service.SubmitSignedTransfer(r.Context(), req.SignedTransaction)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"signature": signature.String()})
}

// Request struct para a atualização declarativa das reservas
type UpdateReservesRequest struct {
	Signer          string  `json:"signer"`
	UsdtAmount      uint64  `json:"usdt_amount"`
	UsdtDecimals    uint8   `json:"usdt_decimals"`
	RealEstateValue uint64  `json:"real_estate_value"`
	ValueDecimals   uint8   `json:"value_decimals"`
	NewCid          *string `json:"new_cid,omitempty"`
}

// UpdateReserves sobrescreve a reserva USDT e o valor imobiliário declarados.
// POST /stablecoin/reserves
func (h *StablecoinHandler) UpdateReserves(w http.ResponseWriter, r *http.Request) {
	var req UpdateReservesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	signer, err := parsePubkey("signer", req.Signer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err = h.Service.UpdateReserves(r.Context(), signer,
		models.NewAmount(req.UsdtAmount, req.UsdtDecimals),
		models.NewAmount(req.RealEstateValue, req.ValueDecimals),
		req.NewCid,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// Request struct para a troca da conta da DAO
type UpdateDaoAccountRequest struct {
	Signer        string `json:"signer"`
	NewDaoAccount string `json:"new_dao_account"`
}

// UpdateDaoAccount troca a conta de coleta de taxas da DAO (apenas admin).
// PUT /stablecoin/dao-account
func (h *StablecoinHandler) UpdateDaoAccount(w http.ResponseWriter, r *http.Request) {
	var req UpdateDaoAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	signer, err := parsePubkey("signer", req.Signer)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	newDao, err := parsePubkey("new_dao_account", req.NewDaoAccount)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.UpdateDaoAccount(r.Context(), signer, newDao); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// GetReserves retorna as reservas declaradas e o predicado de lastro total.
// GET /stablecoin/reserves
func (h *StablecoinHandler) GetReserves(w http.ResponseWriter, r *http.Request) {
	status, err := h.Service.GetReserves(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status)
}

// GetDaoContributions retorna o total acumulado de taxas da DAO.
// GET /stablecoin/dao-contributions
func (h *StablecoinHandler) GetDaoContributions(w http.ResponseWriter, r *http.Request) {
	total, err := h.Service.GetDaoContributions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]uint64{"dao_contributions": total})
}

// GetRequiredBacking calcula as parcelas 70/30 de lastro exigidas para um
// montante. Informativo: a cunhagem não é bloqueada por ele.
// GET /stablecoin/backing/{amount}
func (h *StablecoinHandler) GetRequiredBacking(w http.ResponseWriter, r *http.Request) {
	amount, err := strconv.ParseUint(chi.URLParam(r, "amount"), 10, 64)
	if err != nil {
		http.Error(w, fmt.Sprintf("campo amount inválido: %v", err), http.StatusBadRequest)
		return
	}

	usdt, realEstate, err := services.RequiredBacking(amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]uint64{
		"required_usdt":        usdt,
		"required_real_estate": realEstate,
	})
}

// GetBalance retorna o saldo espelhado de um titular.
// GET /stablecoin/balances/{owner}
func (h *StablecoinHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	owner, err := parsePubkey("owner", chi.URLParam(r, "owner"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	balance, err := h.Service.GetBalance(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]uint64{"balance": balance})
}
