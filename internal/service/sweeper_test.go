package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stylelane/orders-service/internal/domain"
	"github.com/stylelane/orders-service/internal/repository"
)

func heldReservation(t *testing.T, inv *repository.MemoryInventory, ref domain.VariantRef, qty int, age time.Duration) *domain.StockReservation {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, inv.Reserve(ctx, ref, qty))
	res := domain.NewStockReservation(ref, qty)
	res.CreatedAt = time.Now().UTC().Add(-age)
	require.NoError(t, inv.Create(ctx, res))
	return res
}

func TestSweep_ReleasesAbandonedHolds(t *testing.T) {
	inv := repository.NewMemoryInventory()
	product := domain.Product{ID: uuid.New(), ShopID: uuid.New(), Name: "Linen Shirt", Price: 10, Purchasable: true}
	inv.SeedProduct(product, "", 10)
	ref := domain.VariantRef{ProductID: product.ID}
	ctx := context.Background()

	heldReservation(t, inv, ref, 3, 10*time.Minute)
	fresh := heldReservation(t, inv, ref, 2, 10*time.Second)

	sweeper := NewSweeper(inv, inv, time.Minute, 5*time.Minute, zap.NewNop())
	released := sweeper.Sweep(ctx)
	assert.Equal(t, 1, released)

	record, err := inv.GetRecord(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 8, record.Available, "only the stale hold goes back")
	assert.Equal(t, 2, record.Reserved)

	abandoned, err := inv.ListAbandoned(ctx, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, abandoned, 1, "the fresh hold is still pending")
	assert.Equal(t, fresh.ID, abandoned[0].ID)

	// A second sweep finds nothing new.
	assert.Equal(t, 0, sweeper.Sweep(ctx))
}

func TestSweep_IgnoresCommittedReservations(t *testing.T) {
	inv := repository.NewMemoryInventory()
	product := domain.Product{ID: uuid.New(), ShopID: uuid.New(), Name: "Linen Shirt", Price: 10, Purchasable: true}
	inv.SeedProduct(product, "", 10)
	ref := domain.VariantRef{ProductID: product.ID}
	ctx := context.Background()

	res := heldReservation(t, inv, ref, 4, time.Hour)
	require.NoError(t, inv.BindToOrder(ctx, []uuid.UUID{res.ID}, uuid.New()))

	sweeper := NewSweeper(inv, inv, time.Minute, 5*time.Minute, zap.NewNop())
	assert.Equal(t, 0, sweeper.Sweep(ctx))

	record, _ := inv.GetRecord(ctx, ref)
	assert.Equal(t, 6, record.Available)
	assert.Equal(t, 4, record.Reserved)
}

func TestSweeper_StartAndClose(t *testing.T) {
	inv := repository.NewMemoryInventory()
	sweeper := NewSweeper(inv, inv, 5*time.Millisecond, time.Minute, zap.NewNop())

	sweeper.Start()
	time.Sleep(20 * time.Millisecond)
	sweeper.Close()
}
