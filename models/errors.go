package models

import "errors"

// Erros do programa. Cada operação aborta inteira com um destes erros;
// nunca há escrita parcial nem valor "clampado" silenciosamente.
var (
	ErrUnauthorized              = errors.New("acesso não autorizado")
	ErrInvalidAmount             = errors.New("valor deve ser maior que zero")
	ErrInsufficientAmount        = errors.New("saldo insuficiente")
	ErrArithmeticOverflow        = errors.New("overflow aritmético")
	ErrInsufficientReserves      = errors.New("reservas insuficientes")
	ErrInvalidThreshold          = errors.New("limite de liquidação inválido (deve estar entre 1 e 100)")
	ErrInvalidState              = errors.New("status do ativo não permite esta operação")
	ErrNotEligibleForLiquidation = errors.New("ativo não elegível para liquidação")
	ErrAlreadyInitialized        = errors.New("conta já inicializada")
	ErrNotInitialized            = errors.New("conta não inicializada")
	ErrInvalidDaoAccount         = errors.New("conta DAO inválida")
	ErrDecimalMismatch           = errors.New("casas decimais incompatíveis")
	ErrPropertyAlreadyListed     = errors.New("imóvel já listado para este mint")
	ErrPropertyNotFound          = errors.New("imóvel não encontrado neste marketplace")
)
