package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/Itshbhere/Establo/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.WithinTx(ctx, func(st Store) error {
		return st.SaveConfig(ctx, models.Config{Address: "cfg", Decimals: 9})
	})
	require.NoError(t, err)

	cfg, found, err := store.GetConfig(ctx, "cfg")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint8(9), cfg.Decimals)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	boom := errors.New("boom")

	err := store.WithinTx(ctx, func(st Store) error {
		if err := st.SaveConfig(ctx, models.Config{Address: "cfg"}); err != nil {
			return err
		}
		if err := st.SaveBalance(ctx, models.Balance{ConfigAddress: "cfg", Owner: "alice", Amount: 100}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	// Nenhuma das escritas sobreviveu
	_, found, err := store.GetConfig(ctx, "cfg")
	require.NoError(t, err)
	assert.False(t, found)

	balance, err := store.GetBalance(ctx, "cfg", "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
}

func TestGetBalanceDefaultsToZero(t *testing.T) {
	store := NewMemoryStore()
	balance, err := store.GetBalance(context.Background(), "cfg", "ninguem")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
}

func TestGetPropertyByMint(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := models.RealEstateProperty{Address: "prop1", Marketplace: "mkt", Mint: "mintA", Value: 100}
	require.NoError(t, store.SaveProperty(ctx, p))

	got, found, err := store.GetPropertyByMint(ctx, "mintA")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "prop1", got.Address)

	_, found, err = store.GetPropertyByMint(ctx, "mintB")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestListEventsFiltersByKind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for _, kind := range []string{models.EventMint, models.EventBurn, models.EventMint} {
		ev, err := models.NewEvent(kind, map[string]string{})
		require.NoError(t, err)
		require.NoError(t, store.AppendEvent(ctx, ev))
	}

	mints, err := store.ListEvents(ctx, models.EventMint, 0)
	require.NoError(t, err)
	assert.Len(t, mints, 2)

	limited, err := store.ListEvents(ctx, models.EventMint, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	all, err := store.ListEvents(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
