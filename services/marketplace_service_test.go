package services

import (
	"context"
	"testing"

	"github.com/Itshbhere/Establo/models"
	"github.com/Itshbhere/Establo/storage"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMarketplaceAddress = "MarketPDA11111111111111111111111111111111"

type marketplaceFixture struct {
	svc        *MarketplaceService
	stablecoin *StablecoinService
	store      *storage.MemoryStore
	solana     *MockSolana
	admin      solana.PublicKey
}

func newMarketplaceFixture(t *testing.T) *marketplaceFixture {
	t.Helper()
	store := storage.NewMemoryStore()
	ms := newPermissiveMockSolana()
	admin := solana.NewWallet().PublicKey()

	stablecoin := NewStablecoinService(store, ms, testConfigAddress)
	_, err := stablecoin.Initialize(context.Background(), admin,
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), 9, "QmCid")
	require.NoError(t, err)

	svc := NewMarketplaceService(store, ms, solana.NewWallet().PublicKey(), testMarketplaceAddress)
	_, err = svc.Initialize(context.Background(), admin, testConfigAddress)
	require.NoError(t, err)

	return &marketplaceFixture{svc: svc, stablecoin: stablecoin, store: store, solana: ms, admin: admin}
}

func (f *marketplaceFixture) listProperty(t *testing.T, owner solana.PublicKey, value uint64) models.RealEstateProperty {
	t.Helper()
	mint := solana.NewWallet().PublicKey()
	p, err := f.svc.ListProperty(context.Background(), owner, &mint, value, "São Paulo, SP", "Apartamento 80m²", nil)
	require.NoError(t, err)
	return p
}

func TestMarketplaceInitializeDefaults(t *testing.T) {
	f := newMarketplaceFixture(t)
	m, found, err := f.svc.GetMarketplace(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint8(90), m.LiquidationThreshold)
	assert.Equal(t, uint64(0), m.NftCount)
	assert.Equal(t, testConfigAddress, m.StablecoinConfig)
}

func TestMarketplaceInitializeRequiresLedger(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := NewMarketplaceService(store, newPermissiveMockSolana(), solana.NewWallet().PublicKey(), testMarketplaceAddress)
	_, err := svc.Initialize(context.Background(), solana.NewWallet().PublicKey(), testConfigAddress)
	assert.ErrorIs(t, err, models.ErrNotInitialized)
}

func TestSetLiquidationThresholdBounds(t *testing.T) {
	f := newMarketplaceFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.SetLiquidationThreshold(ctx, f.admin, 0), models.ErrInvalidThreshold)
	assert.ErrorIs(t, f.svc.SetLiquidationThreshold(ctx, f.admin, 101), models.ErrInvalidThreshold)
	assert.ErrorIs(t, f.svc.SetLiquidationThreshold(ctx, solana.NewWallet().PublicKey(), 80), models.ErrUnauthorized)

	require.NoError(t, f.svc.SetLiquidationThreshold(ctx, f.admin, 85))
	m, _, err := f.svc.GetMarketplace(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint8(85), m.LiquidationThreshold)
}

func TestListPropertyUpdatesCountAndBacking(t *testing.T) {
	f := newMarketplaceFixture(t)
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()

	p := f.listProperty(t, owner, 500_000)
	assert.Equal(t, models.StatusListed, p.Status)
	assert.Equal(t, uint64(500_000), p.Value)
	assert.Equal(t, uint64(500_000), p.InitialValue)
	assert.Equal(t, uint8(90), p.LiquidationThreshold)

	m, _, err := f.svc.GetMarketplace(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.NftCount)

	// O valor entra no lastro na escala do ledger (0 -> 9 casas)
	status, err := f.stablecoin.GetReserves(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000_000_000_000), status.RealEstateValue)
}

func TestListPropertyWithoutMintCreatesOne(t *testing.T) {
	f := newMarketplaceFixture(t)
	owner := solana.NewWallet().PublicKey()

	p, err := f.svc.ListProperty(context.Background(), owner, nil, 100_000, "Curitiba, PR", "", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, p.Mint)
	f.solana.AssertCalled(t, "CreatePropertyMint", owner)
}

func TestListPropertyDuplicateMint(t *testing.T) {
	f := newMarketplaceFixture(t)
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	_, err := f.svc.ListProperty(context.Background(), owner, &mint, 100_000, "Recife, PE", "", nil)
	require.NoError(t, err)
	_, err = f.svc.ListProperty(context.Background(), owner, &mint, 200_000, "Recife, PE", "", nil)
	assert.ErrorIs(t, err, models.ErrPropertyAlreadyListed)
}

func TestListPropertyThresholdOverride(t *testing.T) {
	f := newMarketplaceFixture(t)
	owner := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()

	bad := uint8(0)
	_, err := f.svc.ListProperty(context.Background(), owner, &mint, 100_000, "", "", &bad)
	assert.ErrorIs(t, err, models.ErrInvalidThreshold)

	override := uint8(75)
	p, err := f.svc.ListProperty(context.Background(), owner, &mint, 100_000, "", "", &override)
	require.NoError(t, err)
	assert.Equal(t, uint8(75), p.LiquidationThreshold)
}

func TestUpdateValuationOwnerCanOnlyIncrease(t *testing.T) {
	f := newMarketplaceFixture(t)
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()
	p := f.listProperty(t, owner, 500_000)

	// Dono aumenta: ok
	updated, err := f.svc.UpdateValuation(ctx, owner, p.Mint, 550_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(550_000), updated.Value)
	assert.Equal(t, uint64(500_000), updated.InitialValue) // base do limiar não muda

	// Dono tentando reduzir: rejeitado sem nenhuma mutação
	_, err = f.svc.UpdateValuation(ctx, owner, p.Mint, 400_000)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	got, found, err := f.svc.GetProperty(ctx, p.Mint)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(550_000), got.Value)

	status, err := f.stablecoin.GetReserves(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(550_000_000_000_000), status.RealEstateValue)
}

func TestUpdateValuationBelowThresholdFlagsRisk(t *testing.T) {
	f := newMarketplaceFixture(t)
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()
	p := f.listProperty(t, owner, 500_000)

	// 302500 * 100 < 500000 * 90 -> AtRisk
	updated, err := f.svc.UpdateValuation(ctx, f.admin, p.Mint, 302_500)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAtRisk, updated.Status)

	riskEvents, err := f.store.ListEvents(ctx, models.EventLiquidationRisk, 0)
	require.NoError(t, err)
	assert.Len(t, riskEvents, 1)

	// Exatamente no limiar (450000 * 100 == 500000 * 90) NÃO está abaixo
	updated, err = f.svc.UpdateValuation(ctx, f.admin, p.Mint, 450_000)
	require.NoError(t, err)
	assert.Equal(t, models.StatusListed, updated.Status)
}

func TestUpdateValuationRecoversFromRisk(t *testing.T) {
	f := newMarketplaceFixture(t)
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()
	p := f.listProperty(t, owner, 500_000)

	_, err := f.svc.UpdateValuation(ctx, f.admin, p.Mint, 302_500)
	require.NoError(t, err)

	// O dono reavalia para cima e o imóvel volta a Listed
	updated, err := f.svc.UpdateValuation(ctx, owner, p.Mint, 460_000)
	require.NoError(t, err)
	assert.Equal(t, models.StatusListed, updated.Status)
}

func TestUpdateValuationStrangerRejected(t *testing.T) {
	f := newMarketplaceFixture(t)
	owner := solana.NewWallet().PublicKey()
	p := f.listProperty(t, owner, 500_000)

	_, err := f.svc.UpdateValuation(context.Background(), solana.NewWallet().PublicKey(), p.Mint, 600_000)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestTransferPropertyChangesOwner(t *testing.T) {
	f := newMarketplaceFixture(t)
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()
	newOwner := solana.NewWallet().PublicKey()
	p := f.listProperty(t, owner, 500_000)

	updated, err := f.svc.TransferProperty(ctx, owner, p.Mint, newOwner)
	require.NoError(t, err)
	assert.Equal(t, newOwner.String(), updated.Owner)
	assert.Equal(t, models.StatusListed, updated.Status)

	// O antigo dono não transfere mais
	_, err = f.svc.TransferProperty(ctx, owner, p.Mint, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestLiquidateRequiresAtRisk(t *testing.T) {
	f := newMarketplaceFixture(t)
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()
	p := f.listProperty(t, owner, 500_000)

	// Listed não é elegível
	_, err := f.svc.LiquidateProperty(ctx, f.admin, p.Mint)
	assert.ErrorIs(t, err, models.ErrNotEligibleForLiquidation)

	got, _, err := f.svc.GetProperty(ctx, p.Mint)
	require.NoError(t, err)
	assert.Equal(t, models.StatusListed, got.Status)
	assert.Equal(t, owner.String(), got.Owner)
}

func TestLiquidateRequiresAdmin(t *testing.T) {
	f := newMarketplaceFixture(t)
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()
	p := f.listProperty(t, owner, 500_000)

	_, err := f.svc.UpdateValuation(ctx, f.admin, p.Mint, 302_500)
	require.NoError(t, err)

	// O dono sozinho não liquida
	_, err = f.svc.LiquidateProperty(ctx, owner, p.Mint)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

// Dois deployments independentes no mesmo store: o admin de um marketplace
// não enxerga nem mexe nos imóveis do outro, e os agregados de lastro não se
// cruzam.
func TestPropertyScopedToItsMarketplace(t *testing.T) {
	f := newMarketplaceFixture(t)
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()
	p := f.listProperty(t, owner, 500_000)

	// Segundo deployment: ledger e marketplace próprios
	const configB = "ConfigPDAB111111111111111111111111111111111"
	const marketB = "MarketPDAB11111111111111111111111111111111"
	adminB := solana.NewWallet().PublicKey()

	stablecoinB := NewStablecoinService(f.store, f.solana, configB)
	_, err := stablecoinB.Initialize(ctx, adminB,
		solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(), 9, "")
	require.NoError(t, err)

	svcB := NewMarketplaceService(f.store, f.solana, solana.NewWallet().PublicKey(), marketB)
	_, err = svcB.Initialize(ctx, adminB, configB)
	require.NoError(t, err)

	// O admin de B não reavalia, transfere nem liquida o imóvel de A
	_, err = svcB.UpdateValuation(ctx, adminB, p.Mint, 100_000)
	assert.ErrorIs(t, err, models.ErrPropertyNotFound)
	_, err = svcB.TransferProperty(ctx, owner, p.Mint, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, models.ErrPropertyNotFound)
	_, err = svcB.LiquidateProperty(ctx, adminB, p.Mint)
	assert.ErrorIs(t, err, models.ErrPropertyNotFound)

	// Nada mudou: nem o imóvel de A, nem os lastros dos dois ledgers
	got, found, err := f.svc.GetProperty(ctx, p.Mint)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint64(500_000), got.Value)
	assert.Equal(t, models.StatusListed, got.Status)

	statusA, err := f.stablecoin.GetReserves(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(500_000_000_000_000), statusA.RealEstateValue)

	statusB, err := stablecoinB.GetReserves(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), statusB.RealEstateValue)
}

// Mint desconhecido é imóvel não encontrado, não "conta não inicializada".
func TestUnknownMintIsPropertyNotFound(t *testing.T) {
	f := newMarketplaceFixture(t)
	ctx := context.Background()
	unknown := solana.NewWallet().PublicKey().String()

	_, err := f.svc.UpdateValuation(ctx, f.admin, unknown, 100_000)
	assert.ErrorIs(t, err, models.ErrPropertyNotFound)
	_, err = f.svc.TransferProperty(ctx, f.admin, unknown, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, models.ErrPropertyNotFound)
	_, err = f.svc.LiquidateProperty(ctx, f.admin, unknown)
	assert.ErrorIs(t, err, models.ErrPropertyNotFound)
}

func TestLiquidatedPropertyIsTerminal(t *testing.T) {
	f := newMarketplaceFixture(t)
	ctx := context.Background()
	owner := solana.NewWallet().PublicKey()
	p := f.listProperty(t, owner, 500_000)

	_, err := f.svc.UpdateValuation(ctx, f.admin, p.Mint, 302_500)
	require.NoError(t, err)
	liquidated, err := f.svc.LiquidateProperty(ctx, f.admin, p.Mint)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLiquidated, liquidated.Status)
	assert.Equal(t, f.admin.String(), liquidated.Owner)

	// Nem reavaliação nem transferência depois de liquidado
	_, err = f.svc.UpdateValuation(ctx, f.admin, p.Mint, 600_000)
	assert.ErrorIs(t, err, models.ErrInvalidState)
	_, err = f.svc.TransferProperty(ctx, f.admin, p.Mint, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, models.ErrInvalidState)
}
