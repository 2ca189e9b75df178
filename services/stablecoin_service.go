package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Itshbhere/Establo/models"
	"github.com/Itshbhere/Establo/storage"

	"github.com/gagliardetto/solana-go"
)

// Taxa de transferência: 0,5% = 50 basis points, fixa.
const (
	transferFeeBps       uint64 = 50
	bpsDenominator       uint64 = 10000
	usdtBackingPct       uint64 = 70
	realEstateBackingPct uint64 = 30
)

// StablecoinService implementa as operações do ledger de reserva: mint, burn,
// transferência com taxa para a DAO e atualização declarativa das reservas.
// Cada operação roda inteira dentro de uma transação do Store: erro em
// qualquer passo significa nenhuma escrita.
type StablecoinService struct {
	Store         storage.Store
	Solana        SolanaIntegration
	ConfigAddress string
}

// NewStablecoinService cria o serviço sobre um Store e a integração Solana.
func NewStablecoinService(store storage.Store, solanaS SolanaIntegration, configAddress string) *StablecoinService {
	return &StablecoinService{Store: store, Solana: solanaS, ConfigAddress: configAddress}
}

// ReservesStatus é o retorno de GetReserves.
type ReservesStatus struct {
	UsdtReserve     uint64 `json:"usdt_reserve"`
	RealEstateValue uint64 `json:"real_estate_value"`
	TotalSupply     uint64 `json:"total_supply"`
	IsFullyBacked   bool   `json:"is_fully_backed"`
}

// Initialize cria o singleton do ledger com reservas e supply zerados.
func (s *StablecoinService) Initialize(
	ctx context.Context,
	admin, usdtMint, daoTokenAccount, mint solana.PublicKey,
	decimals uint8,
	realEstateCid string,
) (models.Config, error) {
	var cfg models.Config
	err := s.Store.WithinTx(ctx, func(st storage.Store) error {
		_, found, err := st.GetConfig(ctx, s.ConfigAddress)
		if err != nil {
			return err
		}
		if found {
			return models.ErrAlreadyInitialized
		}

		now := time.Now().UTC()
		cfg = models.Config{
			Address:         s.ConfigAddress,
			Admin:           admin.String(),
			UsdtMint:        usdtMint.String(),
			DaoTokenAccount: daoTokenAccount.String(),
			Mint:            mint.String(),
			Decimals:        decimals,
			RealEstateCid:   realEstateCid,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return st.SaveConfig(ctx, cfg)
	})
	if err != nil {
		return models.Config{}, err
	}
	return cfg, nil
}

// Mint cunha `amount` para o destinatário. Apenas o admin; o chamador é
// confiado a já ter depositado/verificado o lastro via UpdateReserves; o
// mint em si não move colateral nem é bloqueado pelo predicado de lastro.
func (s *StablecoinService) Mint(ctx context.Context, signer, recipient solana.PublicKey, amount uint64) error {
	return s.Store.WithinTx(ctx, func(st storage.Store) error {
		cfg, found, err := st.GetConfig(ctx, s.ConfigAddress)
		if err != nil {
			return err
		}
		if !found {
			return models.ErrNotInitialized
		}
		if err := requireSigner(cfg.Admin, signer); err != nil {
			return err
		}
		if amount == 0 {
			return models.ErrInvalidAmount
		}

		balance, err := st.GetBalance(ctx, cfg.Address, recipient.String())
		if err != nil {
			return err
		}
		newBalance, err := models.CheckedAdd(balance, amount)
		if err != nil {
			return err
		}
		newSupply, err := models.CheckedAdd(cfg.TotalSupply, amount)
		if err != nil {
			return err
		}

		// Espelha o MintTo no token SPL antes de gravar o estado interno.
		mintPk, err := solana.PublicKeyFromBase58(cfg.Mint)
		if err != nil {
			return fmt.Errorf("mint do config inválido: %w", err)
		}
		if _, err := s.Solana.MintStablecoin(mintPk, recipient, amount); err != nil {
			return fmt.Errorf("falha ao cunhar na Solana: %w", err)
		}

		cfg.TotalSupply = newSupply
		cfg.UpdatedAt = time.Now().UTC()
		if err := st.SaveConfig(ctx, cfg); err != nil {
			return err
		}
		if err := st.SaveBalance(ctx, models.Balance{
			ConfigAddress: cfg.Address,
			Owner:         recipient.String(),
			Amount:        newBalance,
		}); err != nil {
			return err
		}

		ev, err := models.NewEvent(models.EventMint, models.MintEvent{
			To:     recipient.String(),
			Amount: amount,
		})
		if err != nil {
			return err
		}
		return st.AppendEvent(ctx, ev)
	})
}

// Burn queima `amount` do titular. Apenas o admin; exige saldo suficiente.
func (s *StablecoinService) Burn(ctx context.Context, signer, holder solana.PublicKey, amount uint64) error {
	return s.Store.WithinTx(ctx, func(st storage.Store) error {
		cfg, found, err := st.GetConfig(ctx, s.ConfigAddress)
		if err != nil {
			return err
		}
		if !found {
			return models.ErrNotInitialized
		}
		if err := requireSigner(cfg.Admin, signer); err != nil {
			return err
		}
		if amount == 0 {
			return models.ErrInvalidAmount
		}

		balance, err := st.GetBalance(ctx, cfg.Address, holder.String())
		if err != nil {
			return err
		}
		if balance < amount {
			return models.ErrInsufficientAmount
		}
		newSupply, err := models.CheckedSub(cfg.TotalSupply, amount)
		if err != nil {
			return err
		}

		mintPk, err := solana.PublicKeyFromBase58(cfg.Mint)
		if err != nil {
			return fmt.Errorf("mint do config inválido: %w", err)
		}
		if _, err := s.Solana.BurnStablecoin(mintPk, holder, amount); err != nil {
			return fmt.Errorf("falha ao queimar na Solana: %w", err)
		}

		cfg.TotalSupply = newSupply
		cfg.UpdatedAt = time.Now().UTC()
		if err := st.SaveConfig(ctx, cfg); err != nil {
			return err
		}
		if err := st.SaveBalance(ctx, models.Balance{
			ConfigAddress: cfg.Address,
			Owner:         holder.String(),
			Amount:        balance - amount,
		}); err != nil {
			return err
		}

		ev, err := models.NewEvent(models.EventBurn, models.BurnEvent{
			From:   holder.String(),
			Amount: amount,
		})
		if err != nil {
			return err
		}
		return st.AppendEvent(ctx, ev)
	})
}

// Transfer move `amount` do signer para o destinatário, descontando a taxa de
// 50 bps para a conta da DAO. Única operação que cresce DaoContributions.
// Retorna a transação SPL preparada (Base64) para o remetente assinar.
func (s *StablecoinService) Transfer(ctx context.Context, signer, recipient solana.PublicKey, amount uint64) (string, error) {
	var preparedTx string
	err := s.Store.WithinTx(ctx, func(st storage.Store) error {
		cfg, found, err := st.GetConfig(ctx, s.ConfigAddress)
		if err != nil {
			return err
		}
		if !found {
			return models.ErrNotInitialized
		}
		if amount == 0 {
			return models.ErrInvalidAmount
		}

		// Saldos trabalhados num mapa por titular, lido uma única vez por
		// chave: remetente, destinatário e DAO podem ser a mesma conta e
		// cada chave é gravada exatamente uma vez no final.
		balances := map[string]uint64{}
		loadBalance := func(owner string) (uint64, error) {
			if b, ok := balances[owner]; ok {
				return b, nil
			}
			b, err := st.GetBalance(ctx, cfg.Address, owner)
			if err != nil {
				return 0, err
			}
			balances[owner] = b
			return b, nil
		}

		sender := signer.String()
		balance, err := loadBalance(sender)
		if err != nil {
			return err
		}
		if balance < amount {
			return models.ErrInsufficientAmount
		}

		// fee = floor(amount * 50 / 10000)
		feeAmt, err := models.NewAmount(amount, cfg.Decimals).MulDiv(transferFeeBps, bpsDenominator)
		if err != nil {
			return err
		}
		fee := feeAmt.Raw
		amountAfterFee, err := models.CheckedSub(amount, fee)
		if err != nil {
			return err
		}
		if amountAfterFee == 0 {
			return models.ErrInsufficientAmount
		}

		balances[sender] = balance - amount

		recipientBalance, err := loadBalance(recipient.String())
		if err != nil {
			return err
		}
		balances[recipient.String()], err = models.CheckedAdd(recipientBalance, amountAfterFee)
		if err != nil {
			return err
		}

		daoBalance, err := loadBalance(cfg.DaoTokenAccount)
		if err != nil {
			return err
		}
		balances[cfg.DaoTokenAccount], err = models.CheckedAdd(daoBalance, fee)
		if err != nil {
			return err
		}

		newContributions, err := models.CheckedAdd(cfg.DaoContributions, fee)
		if err != nil {
			return err
		}

		mintPk, err := solana.PublicKeyFromBase58(cfg.Mint)
		if err != nil {
			return fmt.Errorf("mint do config inválido: %w", err)
		}
		daoPk, err := solana.PublicKeyFromBase58(cfg.DaoTokenAccount)
		if err != nil {
			return fmt.Errorf("conta DAO do config inválida: %w", err)
		}
		preparedTx, err = s.Solana.PrepareStablecoinTransfer(
			mintPk, signer, recipient, daoPk, amountAfterFee, fee)
		if err != nil {
			return fmt.Errorf("falha ao preparar transferência na Solana: %w", err)
		}

		for owner, newBalance := range balances {
			if err := st.SaveBalance(ctx, models.Balance{
				ConfigAddress: cfg.Address, Owner: owner, Amount: newBalance,
			}); err != nil {
				return err
			}
		}

		cfg.DaoContributions = newContributions
		cfg.UpdatedAt = time.Now().UTC()
		if err := st.SaveConfig(ctx, cfg); err != nil {
			return err
		}

		ev, err := models.NewEvent(models.EventTransfer, models.TransferEvent{
			From:   sender,
			To:     recipient.String(),
			Amount: amountAfterFee,
			Fee:    fee,
			Dao:    cfg.DaoTokenAccount,
		})
		if err != nil {
			return err
		}
		return st.AppendEvent(ctx, ev)
	})
	if err != nil {
		return "", err
	}
	return preparedTx, nil
}

// SubmitSignedTransfer envia a transação de transferência que o remetente
// assinou no cliente, fechando o ciclo iniciado por Transfer. O estado
// interno já foi gravado na preparação; aqui só o espelho SPL é submetido.
func (s *StablecoinService) SubmitSignedTransfer(ctx context.Context, signedTxBase64 string) (solana.Signature, error) {
	return s.Solana.SendSignedTransaction(signedTxBase64)
}

// UpdateReserves sobrescreve a reserva USDT e o valor imobiliário agregado:
// atualização declarativa de oráculo confiado, não um delta. Os valores
// chegam na escala da origem e são reescalados para a escala do ledger.
func (s *StablecoinService) UpdateReserves(
	ctx context.Context,
	signer solana.PublicKey,
	usdtAmount, realEstateValue models.Amount,
	newCid *string,
) error {
	return s.Store.WithinTx(ctx, func(st storage.Store) error {
		cfg, found, err := st.GetConfig(ctx, s.ConfigAddress)
		if err != nil {
			return err
		}
		if !found {
			return models.ErrNotInitialized
		}
		if err := requireSigner(cfg.Admin, signer); err != nil {
			return err
		}

		usdt, err := usdtAmount.Rescale(cfg.Decimals)
		if err != nil {
			return err
		}
		realEstate, err := realEstateValue.Rescale(cfg.Decimals)
		if err != nil {
			return err
		}

		cfg.UsdtReserve = usdt.Raw
		cfg.RealEstateValue = realEstate.Raw
		if newCid != nil {
			cfg.RealEstateCid = *newCid
		}
		cfg.UpdatedAt = time.Now().UTC()
		if err := st.SaveConfig(ctx, cfg); err != nil {
			return err
		}

		ev, err := models.NewEvent(models.EventReservesUpdated, models.ReservesUpdatedEvent{
			UsdtAmount:      usdt.Raw,
			RealEstateValue: realEstate.Raw,
		})
		if err != nil {
			return err
		}
		return st.AppendEvent(ctx, ev)
	})
}

// UpdateDaoAccount troca a conta de coleta de taxas da DAO.
func (s *StablecoinService) UpdateDaoAccount(ctx context.Context, signer, newDaoAccount solana.PublicKey) error {
	return s.Store.WithinTx(ctx, func(st storage.Store) error {
		cfg, found, err := st.GetConfig(ctx, s.ConfigAddress)
		if err != nil {
			return err
		}
		if !found {
			return models.ErrNotInitialized
		}
		if err := requireSigner(cfg.Admin, signer); err != nil {
			return err
		}
		if newDaoAccount.IsZero() {
			return models.ErrInvalidDaoAccount
		}

		cfg.DaoTokenAccount = newDaoAccount.String()
		cfg.UpdatedAt = time.Now().UTC()
		if err := st.SaveConfig(ctx, cfg); err != nil {
			return err
		}

		ev, err := models.NewEvent(models.EventDaoUpdated, models.DaoUpdatedEvent{
			NewDaoAccount: newDaoAccount.String(),
		})
		if err != nil {
			return err
		}
		return st.AppendEvent(ctx, ev)
	})
}

// GetReserves retorna as reservas declaradas e o predicado de lastro total:
// (usdt + imóveis) >= supply. Somente leitura.
func (s *StablecoinService) GetReserves(ctx context.Context) (ReservesStatus, error) {
	cfg, found, err := s.Store.GetConfig(ctx, s.ConfigAddress)
	if err != nil {
		return ReservesStatus{}, err
	}
	if !found {
		return ReservesStatus{}, models.ErrNotInitialized
	}
	backed, err := cfg.IsFullyBacked()
	if err != nil {
		return ReservesStatus{}, err
	}
	return ReservesStatus{
		UsdtReserve:     cfg.UsdtReserve,
		RealEstateValue: cfg.RealEstateValue,
		TotalSupply:     cfg.TotalSupply,
		IsFullyBacked:   backed,
	}, nil
}

// GetDaoContributions retorna o total acumulado de taxas. Somente leitura.
func (s *StablecoinService) GetDaoContributions(ctx context.Context) (uint64, error) {
	cfg, found, err := s.Store.GetConfig(ctx, s.ConfigAddress)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, models.ErrNotInitialized
	}
	return cfg.DaoContributions, nil
}

// GetBalance retorna o saldo espelhado de um titular. Somente leitura.
func (s *StablecoinService) GetBalance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	return s.Store.GetBalance(ctx, s.ConfigAddress, owner.String())
}

// RequiredBacking calcula as parcelas de lastro exigidas pela razão alvo
// 70/30 para um dado montante. Predicado observável: o mint NÃO é bloqueado
// por ele (ErrInsufficientReserves fica reservado para um gating futuro).
func RequiredBacking(amount uint64) (requiredUsdt, requiredRealEstate uint64, err error) {
	u, err := models.CheckedMul(amount, usdtBackingPct)
	if err != nil {
		return 0, 0, err
	}
	r, err := models.CheckedMul(amount, realEstateBackingPct)
	if err != nil {
		return 0, 0, err
	}
	return u / 100, r / 100, nil
}

// applyRealEstateDelta ajusta Config.RealEstateValue dentro de uma transação
// já aberta pelo chamador (marketplace). O delta chega na escala das
// avaliações e é reescalado para a escala do ledger antes de combinar.
func applyRealEstateDelta(ctx context.Context, st storage.Store, configAddress string, delta models.Amount, negative bool) error {
	cfg, found, err := st.GetConfig(ctx, configAddress)
	if err != nil {
		return err
	}
	if !found {
		return models.ErrNotInitialized
	}

	scaled, err := delta.Rescale(cfg.Decimals)
	if err != nil {
		return err
	}

	var newValue uint64
	if negative {
		newValue, err = models.CheckedSub(cfg.RealEstateValue, scaled.Raw)
	} else {
		newValue, err = models.CheckedAdd(cfg.RealEstateValue, scaled.Raw)
	}
	if err != nil {
		return err
	}

	cfg.RealEstateValue = newValue
	cfg.UpdatedAt = time.Now().UTC()
	return st.SaveConfig(ctx, cfg)
}
