package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Tipos de evento emitidos pelas operações, um por operação mutadora.
const (
	EventMint             = "MintEvent"
	EventBurn             = "BurnEvent"
	EventTransfer         = "TransferEvent"
	EventReservesUpdated  = "ReservesUpdatedEvent"
	EventDaoUpdated       = "DaoUpdatedEvent"
	EventRWAListed        = "RWAListedEvent"
	EventValuationUpdated = "RWAValuationUpdatedEvent"
	EventLiquidationRisk  = "RWALiquidationRiskEvent"
	EventRWATransferred   = "RWATransferredEvent"
	EventRWALiquidated    = "RWALiquidatedEvent"
	EventThresholdUpdated = "LiquidationThresholdUpdatedEvent"
)

// Event é o envelope persistido de um evento: discriminado por Kind, com o
// payload tipado serializado em JSON. Gravado na mesma transação da operação
// que o emite, para a trilha ser auditável e reproduzível.
type Event struct {
	ID        string          `json:"id" db:"id"`
	Kind      string          `json:"kind" db:"kind"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// NewEvent monta o envelope de um payload tipado.
func NewEvent(kind string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("falha ao serializar payload do evento %s: %w", kind, err)
	}
	return Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

type MintEvent struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
}

type BurnEvent struct {
	From   string `json:"from"`
	Amount uint64 `json:"amount"`
}

type TransferEvent struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount uint64 `json:"amount"` // já líquido da taxa
	Fee    uint64 `json:"fee"`
	Dao    string `json:"dao"`
}

type ReservesUpdatedEvent struct {
	UsdtAmount      uint64 `json:"usdt_amount"`
	RealEstateValue uint64 `json:"real_estate_value"`
}

type DaoUpdatedEvent struct {
	NewDaoAccount string `json:"new_dao_account"`
}

type RWAListedEvent struct {
	Owner    string `json:"owner"`
	Mint     string `json:"mint"`
	Value    uint64 `json:"value"`
	Location string `json:"location"`
}

type RWAValuationUpdatedEvent struct {
	Mint      string    `json:"mint"`
	OldValue  uint64    `json:"old_value"`
	NewValue  uint64    `json:"new_value"`
	Timestamp time.Time `json:"timestamp"`
}

type RWALiquidationRiskEvent struct {
	Mint             string `json:"mint"`
	CurrentValue     uint64 `json:"current_value"`
	LiquidationValue uint64 `json:"liquidation_value"`
}

type RWATransferredEvent struct {
	Mint  string `json:"mint"`
	From  string `json:"from"`
	To    string `json:"to"`
	Value uint64 `json:"value"`
}

type RWALiquidatedEvent struct {
	Mint  string `json:"mint"`
	Owner string `json:"owner"`
	Value uint64 `json:"value"`
}

type LiquidationThresholdUpdatedEvent struct {
	NewThreshold uint8 `json:"new_threshold"`
}
