package models

// Amount representa um valor monetário em inteiro escalado: Raw / 10^Decimals.
// Toda a aritmética é feita sobre o inteiro cru com checagem explícita de
// overflow; dois Amounts só se combinam quando as casas decimais coincidem.
// A escala canônica para comparação é sempre a do Config (Decimals do ledger).
type Amount struct {
	Raw      uint64 `json:"raw"`
	Decimals uint8  `json:"decimals"`
}

// NewAmount cria um Amount a partir do valor cru e das casas decimais.
func NewAmount(raw uint64, decimals uint8) Amount {
	return Amount{Raw: raw, Decimals: decimals}
}

// IsZero informa se o valor cru é zero.
func (a Amount) IsZero() bool {
	return a.Raw == 0
}

// Add soma dois Amounts com a mesma escala.
func (a Amount) Add(b Amount) (Amount, error) {
	if a.Decimals != b.Decimals {
		return Amount{}, ErrDecimalMismatch
	}
	raw, err := CheckedAdd(a.Raw, b.Raw)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Raw: raw, Decimals: a.Decimals}, nil
}

// Sub subtrai b de a; underflow é reportado como overflow aritmético
// (quem precisa de semântica de saldo checa o saldo antes).
func (a Amount) Sub(b Amount) (Amount, error) {
	if a.Decimals != b.Decimals {
		return Amount{}, ErrDecimalMismatch
	}
	raw, err := CheckedSub(a.Raw, b.Raw)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Raw: raw, Decimals: a.Decimals}, nil
}

// MulDiv calcula a * num / den com checagem de overflow. A divisão trunca em
// direção a zero, exatamente como o cálculo de taxa do programa on-chain
// (fee = floor(amount * 50 / 10000)).
func (a Amount) MulDiv(num, den uint64) (Amount, error) {
	if den == 0 {
		return Amount{}, ErrArithmeticOverflow
	}
	prod, err := CheckedMul(a.Raw, num)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Raw: prod / den, Decimals: a.Decimals}, nil
}

// Rescale converte o Amount para outra escala. Subir de escala multiplica
// (checado); descer trunca em direção a zero.
func (a Amount) Rescale(to uint8) (Amount, error) {
	if to == a.Decimals {
		return a, nil
	}
	if to > a.Decimals {
		factor, err := pow10(to - a.Decimals)
		if err != nil {
			return Amount{}, err
		}
		raw, err := CheckedMul(a.Raw, factor)
		if err != nil {
			return Amount{}, err
		}
		return Amount{Raw: raw, Decimals: to}, nil
	}
	factor, err := pow10(a.Decimals - to)
	if err != nil {
		return Amount{}, err
	}
	return Amount{Raw: a.Raw / factor, Decimals: to}, nil
}

// Cmp compara dois Amounts com a mesma escala: -1, 0 ou 1.
func (a Amount) Cmp(b Amount) (int, error) {
	if a.Decimals != b.Decimals {
		return 0, ErrDecimalMismatch
	}
	switch {
	case a.Raw < b.Raw:
		return -1, nil
	case a.Raw > b.Raw:
		return 1, nil
	default:
		return 0, nil
	}
}

// CheckedAdd soma dois uint64 detectando overflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrArithmeticOverflow
	}
	return sum, nil
}

// CheckedSub subtrai b de a detectando underflow.
func CheckedSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrArithmeticOverflow
	}
	return a - b, nil
}

// CheckedMul multiplica dois uint64 detectando overflow.
func CheckedMul(a, b uint64) (uint64, error) {
	if a == 0 || b == 0 {
		return 0, nil
	}
	prod := a * b
	if prod/a != b {
		return 0, ErrArithmeticOverflow
	}
	return prod, nil
}

func pow10(n uint8) (uint64, error) {
	// 10^19 não cabe em uint64
	if n > 19 {
		return 0, ErrArithmeticOverflow
	}
	var f uint64 = 1
	for i := uint8(0); i < n; i++ {
		f *= 10
	}
	return f, nil
}
