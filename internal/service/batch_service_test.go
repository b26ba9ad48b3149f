package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sellsmart/internal/dto"
	"sellsmart/internal/model"
	"sellsmart/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// contentionStore wraps a Store and, when armed, rejects every product update
// with a version conflict — simulating a document contended past the retry
// budget.
type contentionStore struct {
	store.Store
	rejectProductUpdates atomic.Bool
}

func (s *contentionStore) Put(ctx context.Context, collection, id string, doc any, expectedVersion int64) (int64, error) {
	if s.rejectProductUpdates.Load() && collection == "products" && expectedVersion != store.VersionNew {
		return 0, store.ErrVersionConflict
	}
	return s.Store.Put(ctx, collection, id, doc, expectedVersion)
}

func batchReq(number string, lines ...dto.BatchLine) dto.BatchImportRequest {
	return dto.BatchImportRequest{
		BatchInfo: dto.BatchInfo{
			BatchNumber: number,
			ImportDate:  time.Date(2026, 8, 27, 9, 0, 0, 0, time.UTC),
			Note:        "test import",
		},
		Products: lines,
	}
}

func TestApplyBatchWeightedAverageNonVariant(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	env.seedProduct(t, "p1", "Mug", decPtr("15"))

	resp, err := env.inv.ApplyBatch(ctx, batchReq("B-1",
		dto.BatchLine{ProductID: "p1", UnitCost: dec("100"), Quantity: 10},
	))
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	require.Empty(t, resp.Errors)

	p, _, err := env.products.Find(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 10, p.TotalQuantity)
	assert.True(t, p.TotalPrice.Equal(dec("100")))

	// 10@100 + 5@130 -> 15@110
	_, err = env.inv.ApplyBatch(ctx, batchReq("B-2",
		dto.BatchLine{ProductID: "p1", UnitCost: dec("130"), Quantity: 5},
	))
	require.NoError(t, err)

	p, _, err = env.products.Find(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 15, p.TotalQuantity)
	assert.True(t, p.TotalPrice.Equal(dec("110")), "got %s", p.TotalPrice)
	assert.Equal(t, model.StatusAvailable, p.Status)
}

func TestApplyBatchZeroQuantityStateTakesLineCost(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	env.seedProduct(t, "p1", "Mug", nil)

	resp, err := env.inv.ApplyBatch(ctx, batchReq("B-1",
		dto.BatchLine{ProductID: "p1", UnitCost: dec("50"), Quantity: 4},
	))
	require.NoError(t, err)
	require.Empty(t, resp.Errors)

	p, _, err := env.products.Find(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.TotalPrice.Equal(dec("50")), "average equals line cost when starting from zero stock")
}

func TestApplyBatchVariantLinesLandOnLedgers(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	env.seedProduct(t, "p1", "Shirt", nil)
	slot, err := env.inv.ResolveVariant(ctx, "p1", "Color", []string{"Red", "Blue"})
	require.NoError(t, err)

	resp, err := env.inv.ApplyBatch(ctx, batchReq("B-1",
		dto.BatchLine{ProductID: "p1", UnitCost: dec("100"), Quantity: 2,
			VariantSelector: &dto.VariantSelector{AttributeName: "Color", Value: "Red"}},
		dto.BatchLine{ProductID: "p1", UnitCost: dec("200"), Quantity: 3,
			VariantSelector: &dto.VariantSelector{AttributeName: "Color", Value: "Blue"}},
	))
	require.NoError(t, err)
	require.Empty(t, resp.Errors)

	red, _, err := env.details.Find(ctx, slot.VariantRef, "Red")
	require.NoError(t, err)
	assert.Equal(t, 2, red.Quantity)
	assert.True(t, red.Price.Equal(dec("100")))

	p, _, err := env.products.Find(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.TotalQuantity)
	assert.True(t, p.TotalPrice.Equal(dec("160")), "got %s", p.TotalPrice)
	require.Len(t, p.BatchHistory, 2)
	assert.Equal(t, "B-1", p.BatchHistory[0].BatchNumber)
	assert.Equal(t, 2, p.BatchHistory[0].Quantity)
	assert.True(t, p.BatchHistory[0].UnitCost.Equal(dec("100")), "history records the line's own contribution")
}

func TestApplyBatchPartialSuccessAcrossProducts(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	env.seedProduct(t, "good", "Mug", nil)

	resp, err := env.inv.ApplyBatch(ctx, batchReq("B-1",
		dto.BatchLine{ProductID: "good", UnitCost: dec("10"), Quantity: 1},
		dto.BatchLine{ProductID: "ghost", UnitCost: dec("10"), Quantity: 1},
	))
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Equal(t, "good", resp.Results[0].ProductID)
	assert.Equal(t, "applied", resp.Results[0].Status)

	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "ghost", resp.Errors[0].ProductID)
	assert.Equal(t, 2, resp.Errors[0].Line)
	assert.True(t, strings.Contains(resp.Errors[0].Message, "ghost"))

	p, _, err := env.products.Find(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalQuantity, "the sibling's failure does not touch this product")
}

func TestApplyBatchProductLineSetIsAtomic(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	env.seedProduct(t, "p1", "Mug", nil)

	// second line is invalid: neither line may land
	resp, err := env.inv.ApplyBatch(ctx, batchReq("B-1",
		dto.BatchLine{ProductID: "p1", UnitCost: dec("10"), Quantity: 5},
		dto.BatchLine{ProductID: "p1", UnitCost: dec("10"), Quantity: 0},
	))
	require.NoError(t, err)
	require.Empty(t, resp.Results)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, 2, resp.Errors[0].Line)

	p, _, err := env.products.Find(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalQuantity)
	assert.Empty(t, p.BatchHistory)
}

func TestApplyBatchRejectsNegativeUnitCost(t *testing.T) {
	env := newTestEnv(t, 3)
	env.seedProduct(t, "p1", "Mug", nil)

	resp, err := env.inv.ApplyBatch(context.Background(), batchReq("B-1",
		dto.BatchLine{ProductID: "p1", UnitCost: dec("-3"), Quantity: 1},
	))
	require.NoError(t, err)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "-3")
}

func TestApplyBatchVariantMismatches(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	env.seedProduct(t, "plain", "Mug", nil)
	env.seedProduct(t, "varied", "Shirt", nil)
	_, err := env.inv.ResolveVariant(ctx, "varied", "Color", []string{"Red"})
	require.NoError(t, err)

	cases := []struct {
		name string
		line dto.BatchLine
	}{
		{"selector on non-variant product", dto.BatchLine{
			ProductID: "plain", UnitCost: dec("10"), Quantity: 1,
			VariantSelector: &dto.VariantSelector{AttributeName: "Color", Value: "Red"},
		}},
		{"missing selector on variant product", dto.BatchLine{
			ProductID: "varied", UnitCost: dec("10"), Quantity: 1,
		}},
		{"undeclared attribute", dto.BatchLine{
			ProductID: "varied", UnitCost: dec("10"), Quantity: 1,
			VariantSelector: &dto.VariantSelector{AttributeName: "Size", Value: "M"},
		}},
		{"undeclared value", dto.BatchLine{
			ProductID: "varied", UnitCost: dec("10"), Quantity: 1,
			VariantSelector: &dto.VariantSelector{AttributeName: "Color", Value: "red"},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, err := env.inv.ApplyBatch(ctx, batchReq("B-1", tc.line))
			require.NoError(t, err)
			require.Len(t, resp.Errors, 1)
			assert.Empty(t, resp.Results)
		})
	}
}

func TestApplyBatchConflictExhaustionLeavesLedgersUntouched(t *testing.T) {
	st := &contentionStore{Store: store.NewMemory()}
	env := newTestEnvWithStore(t, st, 3)
	ctx := context.Background()
	env.seedProduct(t, "p1", "Shirt", nil)
	slot, err := env.inv.ResolveVariant(ctx, "p1", "Color", []string{"Red"})
	require.NoError(t, err)

	line := dto.BatchLine{ProductID: "p1", UnitCost: dec("100"), Quantity: 2,
		VariantSelector: &dto.VariantSelector{AttributeName: "Color", Value: "Red"}}

	st.rejectProductUpdates.Store(true)
	resp, err := env.inv.ApplyBatch(ctx, batchReq("B-1", line))
	require.NoError(t, err)
	require.Empty(t, resp.Results)
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0].Message, "version conflict")

	// a failed batch applied nothing: no ledger, no history
	_, _, err = env.details.Find(ctx, slot.VariantRef, "Red")
	assert.ErrorIs(t, err, store.ErrNotFound)
	p, _, err := env.products.Find(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, p.BatchHistory)
	assert.Equal(t, 0, p.TotalQuantity)

	// retrying the identical batch once contention clears applies it exactly once
	st.rejectProductUpdates.Store(false)
	resp, err = env.inv.ApplyBatch(ctx, batchReq("B-1", line))
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	require.Empty(t, resp.Errors)

	d, _, err := env.details.Find(ctx, slot.VariantRef, "Red")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Quantity)

	// and replaying it after success changes nothing
	resp, err = env.inv.ApplyBatch(ctx, batchReq("B-1", line))
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	require.Empty(t, resp.Errors)

	d, _, err = env.details.Find(ctx, slot.VariantRef, "Red")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Quantity, "a replayed batch must not double-apply ledger deltas")
	p, _, err = env.products.Find(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, p.BatchHistory, 1)
	assert.Equal(t, 2, p.TotalQuantity)
}

func TestApplyBatchReplayIsIdempotentNonVariant(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	env.seedProduct(t, "p1", "Mug", nil)

	req := batchReq("B-7", dto.BatchLine{ProductID: "p1", UnitCost: dec("100"), Quantity: 10})
	for i := 0; i < 2; i++ {
		resp, err := env.inv.ApplyBatch(ctx, req)
		require.NoError(t, err)
		require.Len(t, resp.Results, 1)
		require.Empty(t, resp.Errors)
	}

	p, _, err := env.products.Find(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 10, p.TotalQuantity, "replay must not re-fold the weighted average")
	assert.True(t, p.TotalPrice.Equal(dec("100")))
	assert.Len(t, p.BatchHistory, 1)
}

func TestApplyBatchConcurrentImportsConverge(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()
	env.seedProduct(t, "p1", "Mug", nil)

	// distinct batch numbers: same-number imports are replays by definition
	quantities := []int{3, 5, 7}
	var wg sync.WaitGroup
	for i, q := range quantities {
		wg.Add(1)
		go func(n, qty int) {
			defer wg.Done()
			resp, err := env.inv.ApplyBatch(ctx, batchReq(fmt.Sprintf("B-concurrent-%d", n),
				dto.BatchLine{ProductID: "p1", UnitCost: dec("10"), Quantity: qty},
			))
			assert.NoError(t, err)
			assert.Empty(t, resp.Errors, "import %d must eventually win its CAS round", n)
		}(i, q)
	}
	wg.Wait()

	p, _, err := env.products.Find(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 15, p.TotalQuantity, "total reflects every import exactly once")
	assert.True(t, p.TotalPrice.Equal(dec("10")))
	assert.Len(t, p.BatchHistory, 3)
}
