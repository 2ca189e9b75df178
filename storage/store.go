package storage

import (
	"context"

	"github.com/Itshbhere/Establo/models"
)

// Store é a interface de acesso ao estado do programa (contas Config,
// Marketplace, RealEstateProperty, saldos espelhados e trilha de eventos).
// As leituras seguem o padrão (valor, encontrado, erro).
//
// WithinTx executa fn dentro de uma unidade atômica: ou todas as escritas
// feitas pelo Store passado a fn são aplicadas, ou nenhuma. É a fronteira de
// transação que garante que uma operação que toca duas contas (ex.: Property
// e Config) nunca fica pela metade.
type Store interface {
	GetConfig(ctx context.Context, address string) (models.Config, bool, error)
	SaveConfig(ctx context.Context, cfg models.Config) error

	GetMarketplace(ctx context.Context, address string) (models.Marketplace, bool, error)
	SaveMarketplace(ctx context.Context, m models.Marketplace) error

	GetProperty(ctx context.Context, address string) (models.RealEstateProperty, bool, error)
	GetPropertyByMint(ctx context.Context, mint string) (models.RealEstateProperty, bool, error)
	SaveProperty(ctx context.Context, p models.RealEstateProperty) error
	ListProperties(ctx context.Context, marketplaceAddress string) ([]models.RealEstateProperty, error)

	// GetBalance retorna 0 para titulares sem registro.
	GetBalance(ctx context.Context, configAddress, owner string) (uint64, error)
	SaveBalance(ctx context.Context, b models.Balance) error

	AppendEvent(ctx context.Context, ev models.Event) error
	// ListEvents filtra por kind quando não vazio; limit <= 0 significa sem limite.
	ListEvents(ctx context.Context, kind string, limit int) ([]models.Event, error)

	WithinTx(ctx context.Context, fn func(Store) error) error
}
