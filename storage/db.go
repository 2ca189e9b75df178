package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/Itshbhere/Establo/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
)

// DB implementa Store sobre PostgreSQL. Fora de transação, ext é o pool;
// dentro de WithinTx, ext é a *sqlx.Tx e todas as escritas compartilham o
// mesmo BEGIN/COMMIT.
type DB struct {
	db  *sqlx.DB
	ext sqlx.ExtContext
}

// NewDB conecta-se ao PostgreSQL e executa as migrações.
func NewDB(dataSourceName string) (*DB, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar ao banco de dados: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("falha ao pingar o banco de dados: %w", err)
	}
	log.Println("Conexão com PostgreSQL estabelecida com sucesso.")

	if err := runMigrations(db.DB); err != nil {
		return nil, fmt.Errorf("falha ao executar migrações: %w", err)
	}

	return &DB{db: db, ext: db}, nil
}

// runMigrations executa as migrações usando sql-migrate.
func runMigrations(db *sql.DB) error {
	migrations := &migrate.FileMigrationSource{
		Dir: "./storage/migrations",
	}

	n, err := migrate.Exec(db, "postgres", migrations, migrate.Up)
	if err != nil {
		return fmt.Errorf("erro ao aplicar migrações: %w", err)
	}
	if n > 0 {
		log.Printf("Aplicadas %d migrações ao banco de dados.", n)
	} else {
		log.Println("Nenhuma migração nova para aplicar.")
	}
	return nil
}

// Close encerra o pool de conexões.
func (d *DB) Close() error {
	return d.db.Close()
}

// WithinTx abre uma transação e entrega um Store ligado a ela. Chamadas
// aninhadas reutilizam a transação corrente.
func (d *DB) WithinTx(ctx context.Context, fn func(Store) error) error {
	if _, ok := d.ext.(*sqlx.Tx); ok {
		return fn(d)
	}

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("falha ao iniciar transação: %w", err)
	}

	txStore := &DB{db: d.db, ext: tx}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Printf("Falha ao reverter transação: %v", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("falha ao confirmar transação: %w", err)
	}
	return nil
}

func (d *DB) GetConfig(ctx context.Context, address string) (models.Config, bool, error) {
	var cfg models.Config
	err := sqlx.GetContext(ctx, d.ext, &cfg,
		`SELECT * FROM stablecoin_configs WHERE address = $1`, address)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Config{}, false, nil
	}
	if err != nil {
		return models.Config{}, false, fmt.Errorf("falha ao buscar config: %w", err)
	}
	return cfg, true, nil
}

func (d *DB) SaveConfig(ctx context.Context, cfg models.Config) error {
	_, err := d.ext.ExecContext(ctx, `
		INSERT INTO stablecoin_configs
			(address, admin, usdt_mint, dao_token_account, mint, decimals,
			 usdt_reserve, real_estate_value, dao_contributions, total_supply,
			 real_estate_cid, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (address) DO UPDATE SET
			admin = EXCLUDED.admin,
			dao_token_account = EXCLUDED.dao_token_account,
			usdt_reserve = EXCLUDED.usdt_reserve,
			real_estate_value = EXCLUDED.real_estate_value,
			dao_contributions = EXCLUDED.dao_contributions,
			total_supply = EXCLUDED.total_supply,
			real_estate_cid = EXCLUDED.real_estate_cid,
			updated_at = EXCLUDED.updated_at`,
		cfg.Address, cfg.Admin, cfg.UsdtMint, cfg.DaoTokenAccount, cfg.Mint,
		cfg.Decimals, int64(cfg.UsdtReserve), int64(cfg.RealEstateValue),
		int64(cfg.DaoContributions), int64(cfg.TotalSupply), cfg.RealEstateCid,
		cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("falha ao salvar config: %w", err)
	}
	return nil
}

func (d *DB) GetMarketplace(ctx context.Context, address string) (models.Marketplace, bool, error) {
	var m models.Marketplace
	err := sqlx.GetContext(ctx, d.ext, &m,
		`SELECT * FROM marketplaces WHERE address = $1`, address)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Marketplace{}, false, nil
	}
	if err != nil {
		return models.Marketplace{}, false, fmt.Errorf("falha ao buscar marketplace: %w", err)
	}
	return m, true, nil
}

func (d *DB) SaveMarketplace(ctx context.Context, m models.Marketplace) error {
	_, err := d.ext.ExecContext(ctx, `
		INSERT INTO marketplaces
			(address, admin, stablecoin_config, nft_count, liquidation_threshold,
			 created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (address) DO UPDATE SET
			nft_count = EXCLUDED.nft_count,
			liquidation_threshold = EXCLUDED.liquidation_threshold,
			updated_at = EXCLUDED.updated_at`,
		m.Address, m.Admin, m.StablecoinConfig, int64(m.NftCount),
		m.LiquidationThreshold, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("falha ao salvar marketplace: %w", err)
	}
	return nil
}

func (d *DB) GetProperty(ctx context.Context, address string) (models.RealEstateProperty, bool, error) {
	var p models.RealEstateProperty
	err := sqlx.GetContext(ctx, d.ext, &p,
		`SELECT * FROM properties WHERE address = $1`, address)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RealEstateProperty{}, false, nil
	}
	if err != nil {
		return models.RealEstateProperty{}, false, fmt.Errorf("falha ao buscar imóvel: %w", err)
	}
	return p, true, nil
}

func (d *DB) GetPropertyByMint(ctx context.Context, mint string) (models.RealEstateProperty, bool, error) {
	var p models.RealEstateProperty
	err := sqlx.GetContext(ctx, d.ext, &p,
		`SELECT * FROM properties WHERE mint = $1`, mint)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RealEstateProperty{}, false, nil
	}
	if err != nil {
		return models.RealEstateProperty{}, false, fmt.Errorf("falha ao buscar imóvel por mint: %w", err)
	}
	return p, true, nil
}

func (d *DB) SaveProperty(ctx context.Context, p models.RealEstateProperty) error {
	_, err := d.ext.ExecContext(ctx, `
		INSERT INTO properties
			(address, marketplace, owner, mint, value, initial_value,
			 value_decimals, last_valuation_date, location, details, status,
			 liquidation_threshold, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (address) DO UPDATE SET
			owner = EXCLUDED.owner,
			value = EXCLUDED.value,
			last_valuation_date = EXCLUDED.last_valuation_date,
			status = EXCLUDED.status,
			liquidation_threshold = EXCLUDED.liquidation_threshold,
			updated_at = EXCLUDED.updated_at`,
		p.Address, p.Marketplace, p.Owner, p.Mint, int64(p.Value),
		int64(p.InitialValue), p.ValueDecimals, p.LastValuationDate, p.Location,
		p.Details, p.Status, p.LiquidationThreshold, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("falha ao salvar imóvel: %w", err)
	}
	return nil
}

func (d *DB) ListProperties(ctx context.Context, marketplaceAddress string) ([]models.RealEstateProperty, error) {
	var ps []models.RealEstateProperty
	err := sqlx.SelectContext(ctx, d.ext, &ps,
		`SELECT * FROM properties WHERE marketplace = $1 ORDER BY created_at`, marketplaceAddress)
	if err != nil {
		return nil, fmt.Errorf("falha ao listar imóveis: %w", err)
	}
	return ps, nil
}

func (d *DB) GetBalance(ctx context.Context, configAddress, owner string) (uint64, error) {
	var amount int64
	err := sqlx.GetContext(ctx, d.ext, &amount,
		`SELECT amount FROM balances WHERE config_address = $1 AND owner = $2`,
		configAddress, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("falha ao buscar saldo: %w", err)
	}
	return uint64(amount), nil
}

func (d *DB) SaveBalance(ctx context.Context, b models.Balance) error {
	_, err := d.ext.ExecContext(ctx, `
		INSERT INTO balances (config_address, owner, amount)
		VALUES ($1,$2,$3)
		ON CONFLICT (config_address, owner) DO UPDATE SET amount = EXCLUDED.amount`,
		b.ConfigAddress, b.Owner, int64(b.Amount))
	if err != nil {
		return fmt.Errorf("falha ao salvar saldo: %w", err)
	}
	return nil
}

func (d *DB) AppendEvent(ctx context.Context, ev models.Event) error {
	_, err := d.ext.ExecContext(ctx, `
		INSERT INTO events (id, kind, payload, created_at)
		VALUES ($1,$2,$3,$4)`,
		ev.ID, ev.Kind, []byte(ev.Payload), ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("falha ao gravar evento: %w", err)
	}
	return nil
}

func (d *DB) ListEvents(ctx context.Context, kind string, limit int) ([]models.Event, error) {
	query := `SELECT * FROM events`
	args := []interface{}{}
	if kind != "" {
		query += ` WHERE kind = $1`
		args = append(args, kind)
	}
	query += ` ORDER BY created_at`
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	var evs []models.Event
	if err := sqlx.SelectContext(ctx, d.ext, &evs, query, args...); err != nil {
		return nil, fmt.Errorf("falha ao listar eventos: %w", err)
	}
	return evs, nil
}
