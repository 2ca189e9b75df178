package services

import (
	"github.com/Itshbhere/Establo/models"

	"github.com/gagliardetto/solana-go"
)

// Guarda de autorização usada por toda operação mutadora: o signer recebido
// da carteira precisa ser exatamente a identidade esperada pela operação.
// A verificação criptográfica da assinatura é responsabilidade do colaborador
// externo (carteira/transporte); aqui validamos apenas a autorização.

func requireSigner(expected string, signer solana.PublicKey) error {
	if signer.IsZero() || signer.String() != expected {
		return models.ErrUnauthorized
	}
	return nil
}

// requireAnySigner autoriza quando o signer é qualquer uma das identidades
// esperadas (ex.: dono do imóvel ou admin do marketplace).
func requireAnySigner(signer solana.PublicKey, expected ...string) error {
	if signer.IsZero() {
		return models.ErrUnauthorized
	}
	got := signer.String()
	for _, e := range expected {
		if got == e {
			return nil
		}
	}
	return models.ErrUnauthorized
}
