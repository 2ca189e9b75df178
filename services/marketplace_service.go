package services

import (
	"context"
	"time"

	"github.com/Itshbhere/Establo/models"
	"github.com/Itshbhere/Establo/storage"

	"github.com/gagliardetto/solana-go"
)

// Limiar de liquidação padrão do marketplace, em percentual do valor inicial.
const defaultLiquidationThreshold uint8 = 90

// Escala das avaliações imobiliárias: USD inteiro. Os deltas são reescalados
// para a escala do ledger antes de tocar Config.RealEstateValue.
const propertyValueDecimals uint8 = 0

// MarketplaceService implementa o registro de imóveis tokenizados e a máquina
// de estados de liquidação (Listed <-> AtRisk -> Liquidated). Toda operação que
// muda o valor de um imóvel aplica o delta correspondente no
// Config.RealEstateValue do ledger dentro da MESMA transação.
type MarketplaceService struct {
	Store     storage.Store
	Solana    SolanaIntegration
	ProgramID solana.PublicKey
	Address   string // PDA do marketplace
}

// NewMarketplaceService cria o serviço do marketplace.
func NewMarketplaceService(store storage.Store, solanaS SolanaIntegration, programID solana.PublicKey, address string) *MarketplaceService {
	return &MarketplaceService{Store: store, Solana: solanaS, ProgramID: programID, Address: address}
}

// Initialize cria o singleton do marketplace apontando para o Config do
// ledger que ele lastreia, com o limiar padrão de 90%.
func (s *MarketplaceService) Initialize(ctx context.Context, admin solana.PublicKey, stablecoinConfig string) (models.Marketplace, error) {
	var m models.Marketplace
	err := s.Store.WithinTx(ctx, func(st storage.Store) error {
		_, found, err := st.GetMarketplace(ctx, s.Address)
		if err != nil {
			return err
		}
		if found {
			return models.ErrAlreadyInitialized
		}
		// O ledger referenciado precisa existir antes do marketplace.
		_, found, err = st.GetConfig(ctx, stablecoinConfig)
		if err != nil {
			return err
		}
		if !found {
			return models.ErrNotInitialized
		}

		now := time.Now().UTC()
		m = models.Marketplace{
			Address:              s.Address,
			Admin:                admin.String(),
			StablecoinConfig:     stablecoinConfig,
			NftCount:             0,
			LiquidationThreshold: defaultLiquidationThreshold,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		return st.SaveMarketplace(ctx, m)
	})
	if err != nil {
		return models.Marketplace{}, err
	}
	return m, nil
}

// SetLiquidationThreshold muda o limiar padrão do marketplace. Valores fora
// de 1-100 são rejeitados, nunca ajustados silenciosamente.
func (s *MarketplaceService) SetLiquidationThreshold(ctx context.Context, signer solana.PublicKey, threshold uint8) error {
	return s.Store.WithinTx(ctx, func(st storage.Store) error {
		m, found, err := st.GetMarketplace(ctx, s.Address)
		if err != nil {
			return err
		}
		if !found {
			return models.ErrNotInitialized
		}
		if err := requireSigner(m.Admin, signer); err != nil {
			return err
		}
		if threshold == 0 || threshold > 100 {
			return models.ErrInvalidThreshold
		}

		m.LiquidationThreshold = threshold
		m.UpdatedAt = time.Now().UTC()
		if err := st.SaveMarketplace(ctx, m); err != nil {
			return err
		}

		ev, err := models.NewEvent(models.EventThresholdUpdated,
			models.LiquidationThresholdUpdatedEvent{NewThreshold: threshold})
		if err != nil {
			return err
		}
		return st.AppendEvent(ctx, ev)
	})
}

// ListProperty registra um imóvel tokenizado em nome do dono (o signer),
// soma o seu valor no agregado imobiliário do ledger e incrementa a contagem
// do marketplace, tudo na mesma transação. Quando o chamador não traz um
// mint, a integração Solana cria o mint do NFT.
func (s *MarketplaceService) ListProperty(
	ctx context.Context,
	owner solana.PublicKey,
	mint *solana.PublicKey,
	value uint64,
	location, details string,
	thresholdOverride *uint8,
) (models.RealEstateProperty, error) {
	var property models.RealEstateProperty
	err := s.Store.WithinTx(ctx, func(st storage.Store) error {
		m, found, err := st.GetMarketplace(ctx, s.Address)
		if err != nil {
			return err
		}
		if !found {
			return models.ErrNotInitialized
		}
		if owner.IsZero() {
			return models.ErrUnauthorized
		}

		threshold := m.LiquidationThreshold
		if thresholdOverride != nil {
			if *thresholdOverride == 0 || *thresholdOverride > 100 {
				return models.ErrInvalidThreshold
			}
			threshold = *thresholdOverride
		}

		propertyMint := solana.PublicKey{}
		if mint != nil {
			propertyMint = *mint
		} else {
			propertyMint, err = s.Solana.CreatePropertyMint(owner)
			if err != nil {
				return err
			}
		}

		_, exists, err := st.GetPropertyByMint(ctx, propertyMint.String())
		if err != nil {
			return err
		}
		if exists {
			return models.ErrPropertyAlreadyListed
		}

		address, err := DerivePropertyAddress(s.ProgramID, propertyMint)
		if err != nil {
			return err
		}

		newCount, err := models.CheckedAdd(m.NftCount, 1)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		property = models.RealEstateProperty{
			Address:              address.String(),
			Marketplace:          m.Address,
			Owner:                owner.String(),
			Mint:                 propertyMint.String(),
			Value:                value,
			InitialValue:         value,
			ValueDecimals:        propertyValueDecimals,
			LastValuationDate:    now,
			Location:             location,
			Details:              details,
			Status:               models.StatusListed,
			LiquidationThreshold: threshold,
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := st.SaveProperty(ctx, property); err != nil {
			return err
		}

		m.NftCount = newCount
		m.UpdatedAt = now
		if err := st.SaveMarketplace(ctx, m); err != nil {
			return err
		}

		// O valor listado passa a lastrear a stablecoin.
		delta := models.NewAmount(value, propertyValueDecimals)
		if err := applyRealEstateDelta(ctx, st, m.StablecoinConfig, delta, false); err != nil {
			return err
		}

		ev, err := models.NewEvent(models.EventRWAListed, models.RWAListedEvent{
			Owner:    owner.String(),
			Mint:     propertyMint.String(),
			Value:    value,
			Location: location,
		})
		if err != nil {
			return err
		}
		return st.AppendEvent(ctx, ev)
	})
	if err != nil {
		return models.RealEstateProperty{}, err
	}
	return property, nil
}

// UpdateValuation registra uma reavaliação do imóvel. O dono só pode
// aumentar o valor; reduções exigem o admin do marketplace. O delta é
// aplicado no agregado do ledger na mesma transação. Abaixo do limiar o
// imóvel vira AtRisk; de volta acima dele, recupera para Listed.
func (s *MarketplaceService) UpdateValuation(ctx context.Context, authority solana.PublicKey, mint string, newValue uint64) (models.RealEstateProperty, error) {
	var property models.RealEstateProperty
	err := s.Store.WithinTx(ctx, func(st storage.Store) error {
		m, found, err := st.GetMarketplace(ctx, s.Address)
		if err != nil {
			return err
		}
		if !found {
			return models.ErrNotInitialized
		}
		p, found, err := st.GetPropertyByMint(ctx, mint)
		if err != nil {
			return err
		}
		// Imóvel de outro deployment não é visível aqui: o delta da
		// reavaliação só pode tocar o Config do marketplace dono.
		if !found || p.Marketplace != s.Address {
			return models.ErrPropertyNotFound
		}
		if p.Status == models.StatusLiquidated {
			return models.ErrInvalidState
		}
		if err := requireAnySigner(authority, p.Owner, m.Admin); err != nil {
			return err
		}
		// Só o admin reduz valor; o dono tentando reduzir é rejeitado sem
		// nenhuma mutação.
		if newValue < p.Value && authority.String() != m.Admin {
			return models.ErrUnauthorized
		}

		oldValue := p.Value
		if newValue > oldValue {
			delta := models.NewAmount(newValue-oldValue, p.ValueDecimals)
			if err := applyRealEstateDelta(ctx, st, m.StablecoinConfig, delta, false); err != nil {
				return err
			}
		} else if newValue < oldValue {
			delta := models.NewAmount(oldValue-newValue, p.ValueDecimals)
			if err := applyRealEstateDelta(ctx, st, m.StablecoinConfig, delta, true); err != nil {
				return err
			}
		}

		below, err := p.BelowThreshold(newValue)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if below && p.Status != models.StatusAtRisk {
			p.Status = models.StatusAtRisk

			liquidationValue, err := models.CheckedMul(p.InitialValue, uint64(p.LiquidationThreshold))
			if err != nil {
				return err
			}
			riskEv, err := models.NewEvent(models.EventLiquidationRisk, models.RWALiquidationRiskEvent{
				Mint:             p.Mint,
				CurrentValue:     newValue,
				LiquidationValue: liquidationValue / 100,
			})
			if err != nil {
				return err
			}
			if err := st.AppendEvent(ctx, riskEv); err != nil {
				return err
			}
		} else if !below && p.Status == models.StatusAtRisk {
			// Recuperação explícita: a reavaliação voltou a cobrir o limiar.
			p.Status = models.StatusListed
		}

		p.Value = newValue
		p.LastValuationDate = now
		p.UpdatedAt = now
		if err := st.SaveProperty(ctx, p); err != nil {
			return err
		}

		ev, err := models.NewEvent(models.EventValuationUpdated, models.RWAValuationUpdatedEvent{
			Mint:      p.Mint,
			OldValue:  oldValue,
			NewValue:  newValue,
			Timestamp: now,
		})
		if err != nil {
			return err
		}
		if err := st.AppendEvent(ctx, ev); err != nil {
			return err
		}

		property = p
		return nil
	})
	if err != nil {
		return models.RealEstateProperty{}, err
	}
	return property, nil
}

// TransferProperty passa a titularidade do imóvel (e o NFT subjacente) para
// outro dono. O status não muda; imóveis liquidados não transferem.
func (s *MarketplaceService) TransferProperty(ctx context.Context, currentOwner solana.PublicKey, mint string, newOwner solana.PublicKey) (models.RealEstateProperty, error) {
	var property models.RealEstateProperty
	err := s.Store.WithinTx(ctx, func(st storage.Store) error {
		p, found, err := st.GetPropertyByMint(ctx, mint)
		if err != nil {
			return err
		}
		if !found || p.Marketplace != s.Address {
			return models.ErrPropertyNotFound
		}
		if err := requireSigner(p.Owner, currentOwner); err != nil {
			return err
		}
		if p.Status == models.StatusLiquidated {
			return models.ErrInvalidState
		}
		if newOwner.IsZero() {
			return models.ErrUnauthorized
		}

		mintPk, err := solana.PublicKeyFromBase58(p.Mint)
		if err != nil {
			return err
		}
		if _, err := s.Solana.TransferPropertyToken(mintPk, currentOwner, newOwner); err != nil {
			return err
		}

		p.Owner = newOwner.String()
		p.UpdatedAt = time.Now().UTC()
		if err := st.SaveProperty(ctx, p); err != nil {
			return err
		}

		ev, err := models.NewEvent(models.EventRWATransferred, models.RWATransferredEvent{
			Mint:  p.Mint,
			From:  currentOwner.String(),
			To:    newOwner.String(),
			Value: p.Value,
		})
		if err != nil {
			return err
		}
		if err := st.AppendEvent(ctx, ev); err != nil {
			return err
		}

		property = p
		return nil
	})
	if err != nil {
		return models.RealEstateProperty{}, err
	}
	return property, nil
}

// LiquidateProperty executa a liquidação forçada de um imóvel AtRisk: o NFT
// vai para o admin, o valor sai do lastro da stablecoin e o status vira
// Liquidated (terminal). A assinatura do admin basta; a do dono é opcional e
// não é exigida aqui.
func (s *MarketplaceService) LiquidateProperty(ctx context.Context, signer solana.PublicKey, mint string) (models.RealEstateProperty, error) {
	var property models.RealEstateProperty
	err := s.Store.WithinTx(ctx, func(st storage.Store) error {
		m, found, err := st.GetMarketplace(ctx, s.Address)
		if err != nil {
			return err
		}
		if !found {
			return models.ErrNotInitialized
		}
		if err := requireSigner(m.Admin, signer); err != nil {
			return err
		}
		p, found, err := st.GetPropertyByMint(ctx, mint)
		if err != nil {
			return err
		}
		if !found || p.Marketplace != s.Address {
			return models.ErrPropertyNotFound
		}
		if p.Status != models.StatusAtRisk {
			return models.ErrNotEligibleForLiquidation
		}

		mintPk, err := solana.PublicKeyFromBase58(p.Mint)
		if err != nil {
			return err
		}
		ownerPk, err := solana.PublicKeyFromBase58(p.Owner)
		if err != nil {
			return err
		}
		if _, err := s.Solana.TransferPropertyToken(mintPk, ownerPk, signer); err != nil {
			return err
		}

		// O ativo deixa de lastrear a stablecoin.
		delta := models.NewAmount(p.Value, p.ValueDecimals)
		if err := applyRealEstateDelta(ctx, st, m.StablecoinConfig, delta, true); err != nil {
			return err
		}

		previousOwner := p.Owner
		p.Owner = signer.String()
		p.Status = models.StatusLiquidated
		p.UpdatedAt = time.Now().UTC()
		if err := st.SaveProperty(ctx, p); err != nil {
			return err
		}

		ev, err := models.NewEvent(models.EventRWALiquidated, models.RWALiquidatedEvent{
			Mint:  p.Mint,
			Owner: previousOwner,
			Value: p.Value,
		})
		if err != nil {
			return err
		}
		if err := st.AppendEvent(ctx, ev); err != nil {
			return err
		}

		property = p
		return nil
	})
	if err != nil {
		return models.RealEstateProperty{}, err
	}
	return property, nil
}

// GetProperty busca um imóvel pelo mint do seu NFT. Somente leitura.
func (s *MarketplaceService) GetProperty(ctx context.Context, mint string) (models.RealEstateProperty, bool, error) {
	return s.Store.GetPropertyByMint(ctx, mint)
}

// ListProperties lista os imóveis do marketplace. Somente leitura.
func (s *MarketplaceService) ListProperties(ctx context.Context) ([]models.RealEstateProperty, error) {
	return s.Store.ListProperties(ctx, s.Address)
}

// GetMarketplace retorna o registro do marketplace. Somente leitura.
func (s *MarketplaceService) GetMarketplace(ctx context.Context) (models.Marketplace, bool, error) {
	return s.Store.GetMarketplace(ctx, s.Address)
}
