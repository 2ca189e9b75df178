package models

import "time"

// AssetStatus é o status do imóvel no ciclo de vida de liquidação.
// Transições: Listed <-> AtRisk -> Liquidated (terminal). A volta AtRisk->Listed
// só acontece por reavaliação que volte a cobrir o limiar.
type AssetStatus string

const (
	StatusListed     AssetStatus = "Listed"
	StatusAtRisk     AssetStatus = "AtRisk"
	StatusLiquidated AssetStatus = "Liquidated"
)

// Marketplace é o registro singleton do marketplace de RWAs: contagem de
// imóveis listados, limiar de liquidação padrão e a referência ao Config da
// stablecoin que ele lastreia. Endereçado pela seed "marketplace".
type Marketplace struct {
	Address              string    `json:"address" db:"address"`
	Admin                string    `json:"admin" db:"admin"`
	StablecoinConfig     string    `json:"stablecoin_config" db:"stablecoin_config"`
	NftCount             uint64    `json:"nft_count" db:"nft_count"`
	LiquidationThreshold uint8     `json:"liquidation_threshold" db:"liquidation_threshold"` // percentual, 1-100
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// RealEstateProperty é um imóvel tokenizado, um registro por NFT (mint).
// Endereçado pela seed "property" + mint. Nunca é destruído: imóveis
// liquidados permanecem como histórico com status Liquidated.
type RealEstateProperty struct {
	Address              string      `json:"address" db:"address"`
	Marketplace          string      `json:"marketplace" db:"marketplace"`
	Owner                string      `json:"owner" db:"owner"`
	Mint                 string      `json:"mint" db:"mint"` // mint do NFT, identidade única do ativo
	Value                uint64      `json:"value" db:"value"`
	InitialValue         uint64      `json:"initial_value" db:"initial_value"`
	ValueDecimals        uint8       `json:"value_decimals" db:"value_decimals"` // escala das avaliações (USD inteiro = 0)
	LastValuationDate    time.Time   `json:"last_valuation_date" db:"last_valuation_date"`
	Location             string      `json:"location" db:"location"`
	Details              string      `json:"details" db:"details"`
	Status               AssetStatus `json:"status" db:"status"`
	LiquidationThreshold uint8       `json:"liquidation_threshold" db:"liquidation_threshold"` // percentual, 1-100
	CreatedAt            time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at" db:"updated_at"`
}

// BelowThreshold verifica se um valor coloca o imóvel abaixo do limiar de
// liquidação: value*100 < initialValue*threshold, tudo com aritmética checada.
func (p RealEstateProperty) BelowThreshold(value uint64) (bool, error) {
	lhs, err := CheckedMul(value, 100)
	if err != nil {
		return false, err
	}
	rhs, err := CheckedMul(p.InitialValue, uint64(p.LiquidationThreshold))
	if err != nil {
		return false, err
	}
	return lhs < rhs, nil
}
