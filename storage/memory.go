package storage

import (
	"context"
	"sync"

	"github.com/Itshbhere/Establo/models"
)

// MemoryStore é uma implementação em memória de Store, usada nos testes de
// unidade no lugar do PostgreSQL. WithinTx trabalha sobre uma cópia do estado
// e só a promove em caso de sucesso, preservando a semântica tudo-ou-nada.
type MemoryStore struct {
	mu   sync.Mutex
	data *memData
}

type memData struct {
	configs      map[string]models.Config
	marketplaces map[string]models.Marketplace
	properties   map[string]models.RealEstateProperty // por endereço
	balances     map[string]uint64                    // config_address + "/" + owner
	events       []models.Event
}

// NewMemoryStore cria um store vazio.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: newMemData()}
}

func newMemData() *memData {
	return &memData{
		configs:      make(map[string]models.Config),
		marketplaces: make(map[string]models.Marketplace),
		properties:   make(map[string]models.RealEstateProperty),
		balances:     make(map[string]uint64),
	}
}

func (d *memData) clone() *memData {
	c := newMemData()
	for k, v := range d.configs {
		c.configs[k] = v
	}
	for k, v := range d.marketplaces {
		c.marketplaces[k] = v
	}
	for k, v := range d.properties {
		c.properties[k] = v
	}
	for k, v := range d.balances {
		c.balances[k] = v
	}
	c.events = append(c.events, d.events...)
	return c
}

// WithinTx roda fn sobre um clone do estado; se fn falhar, o clone é
// descartado e nada muda.
func (m *MemoryStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := m.data.clone()
	if err := fn(&MemoryStore{data: clone}); err != nil {
		return err
	}
	m.data = clone
	return nil
}

func (m *MemoryStore) GetConfig(ctx context.Context, address string) (models.Config, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.data.configs[address]
	return cfg, ok, nil
}

func (m *MemoryStore) SaveConfig(ctx context.Context, cfg models.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.configs[cfg.Address] = cfg
	return nil
}

func (m *MemoryStore) GetMarketplace(ctx context.Context, address string) (models.Marketplace, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mp, ok := m.data.marketplaces[address]
	return mp, ok, nil
}

func (m *MemoryStore) SaveMarketplace(ctx context.Context, mp models.Marketplace) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.marketplaces[mp.Address] = mp
	return nil
}

func (m *MemoryStore) GetProperty(ctx context.Context, address string) (models.RealEstateProperty, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.data.properties[address]
	return p, ok, nil
}

func (m *MemoryStore) GetPropertyByMint(ctx context.Context, mint string) (models.RealEstateProperty, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.data.properties {
		if p.Mint == mint {
			return p, true, nil
		}
	}
	return models.RealEstateProperty{}, false, nil
}

func (m *MemoryStore) SaveProperty(ctx context.Context, p models.RealEstateProperty) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.properties[p.Address] = p
	return nil
}

func (m *MemoryStore) ListProperties(ctx context.Context, marketplaceAddress string) ([]models.RealEstateProperty, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ps []models.RealEstateProperty
	for _, p := range m.data.properties {
		if p.Marketplace == marketplaceAddress {
			ps = append(ps, p)
		}
	}
	return ps, nil
}

func (m *MemoryStore) GetBalance(ctx context.Context, configAddress, owner string) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.balances[configAddress+"/"+owner], nil
}

func (m *MemoryStore) SaveBalance(ctx context.Context, b models.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.balances[b.ConfigAddress+"/"+b.Owner] = b.Amount
	return nil
}

func (m *MemoryStore) AppendEvent(ctx context.Context, ev models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data.events = append(m.data.events, ev)
	return nil
}

func (m *MemoryStore) ListEvents(ctx context.Context, kind string, limit int) ([]models.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var evs []models.Event
	for _, ev := range m.data.events {
		if kind != "" && ev.Kind != kind {
			continue
		}
		evs = append(evs, ev)
		if limit > 0 && len(evs) == limit {
			break
		}
	}
	return evs, nil
}
