package models

import "time"

// Config é o registro singleton do ledger da stablecoin: composição declarada
// do lastro (reserva USDT + valor imobiliário agregado), taxas acumuladas da
// DAO e as identidades com autoridade sobre o programa. Endereçado por uma
// chave determinística derivada da seed "config".
type Config struct {
	Address          string    `json:"address" db:"address"`                       // PDA do config
	Admin            string    `json:"admin" db:"admin"`                           // autoridade de mint/burn/reservas
	UsdtMint         string    `json:"usdt_mint" db:"usdt_mint"`                   // mint do ativo estável externo (referência)
	DaoTokenAccount  string    `json:"dao_token_account" db:"dao_token_account"`   // destino das taxas de transferência
	Mint             string    `json:"mint" db:"mint"`                             // mint da própria stablecoin (referência)
	Decimals         uint8     `json:"decimals" db:"decimals"`                     // escala canônica do ledger
	UsdtReserve      uint64    `json:"usdt_reserve" db:"usdt_reserve"`             // na escala do ledger
	RealEstateValue  uint64    `json:"real_estate_value" db:"real_estate_value"`   // na escala do ledger
	DaoContributions uint64    `json:"dao_contributions" db:"dao_contributions"`   // total acumulado, só cresce
	TotalSupply      uint64    `json:"total_supply" db:"total_supply"`             // espelho do supply do token externo
	RealEstateCid    string    `json:"real_estate_cid" db:"real_estate_cid"`       // CID do laudo de avaliação (IPFS)
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// IsFullyBacked avalia o predicado de lastro total:
// UsdtReserve + RealEstateValue >= TotalSupply. O ledger nunca bloqueia uma
// operação por este predicado; ele existe para o chamador observar
// sub/sobre-colateralização.
func (c Config) IsFullyBacked() (bool, error) {
	backing, err := CheckedAdd(c.UsdtReserve, c.RealEstateValue)
	if err != nil {
		return false, err
	}
	return backing >= c.TotalSupply, nil
}

// Balance é o saldo espelhado de um titular da stablecoin, na escala do
// ledger. A fonte de verdade é o token SPL; o listener reconcilia.
type Balance struct {
	ConfigAddress string `json:"config_address" db:"config_address"`
	Owner         string `json:"owner" db:"owner"`
	Amount        uint64 `json:"amount" db:"amount"`
}
