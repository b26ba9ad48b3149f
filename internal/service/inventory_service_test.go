package service

import (
	"context"
	"testing"

	"sellsmart/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveVariantMintsRefOnceAndFlipsProduct(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	env.seedProduct(t, "p1", "Shirt", decPtr("50"))

	slot, err := env.inv.ResolveVariant(ctx, "p1", "Color", []string{"Red", "Blue"})
	require.NoError(t, err)
	require.NotEmpty(t, slot.VariantRef)
	assert.Equal(t, []string{"Red", "Blue"}, slot.Values)

	p, _, err := env.products.Find(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.HasVariants)
	assert.Nil(t, p.Price, "product-level price gives way to per-value ledgers")

	// same axis again: values union in, the ref is stable
	again, err := env.inv.ResolveVariant(ctx, "p1", "Color", []string{"Blue", "Green"})
	require.NoError(t, err)
	assert.Equal(t, slot.VariantRef, again.VariantRef)
	assert.Equal(t, []string{"Red", "Blue", "Green"}, again.Values)

	// exact repeat writes nothing and still answers the same identity
	_, productVersion, err := env.products.Find(ctx, "p1")
	require.NoError(t, err)
	noop, err := env.inv.ResolveVariant(ctx, "p1", "Color", []string{"Red"})
	require.NoError(t, err)
	assert.Equal(t, slot.VariantRef, noop.VariantRef)
	_, afterVersion, err := env.products.Find(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, productVersion, afterVersion)
}

func TestResolveVariantRefsDifferPerProduct(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	env.seedProduct(t, "p1", "Shirt", nil)
	env.seedProduct(t, "p2", "Mug", nil)

	s1, err := env.inv.ResolveVariant(ctx, "p1", "Color", []string{"Red"})
	require.NoError(t, err)
	s2, err := env.inv.ResolveVariant(ctx, "p2", "Color", []string{"Red"})
	require.NoError(t, err)

	assert.NotEqual(t, s1.VariantRef, s2.VariantRef, "the same catalog attribute binds to a distinct ref per product")
}

func TestResolveVariantUnknownProduct(t *testing.T) {
	env := newTestEnv(t, 3)

	_, err := env.inv.ResolveVariant(context.Background(), "ghost", "Color", []string{"Red"})
	assert.ErrorIs(t, err, &model.ProductNotFoundError{})

	// the catalog write happened anyway: attributes are shared, not per-product
	attr, cerr := env.catalog.EnsureAttribute(context.Background(), "Color", nil)
	require.NoError(t, cerr)
	assert.Equal(t, []string{"Red"}, attr.Values)
}

func TestUpsertDetailCreateAddOverwrite(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()

	d, err := env.inv.UpsertDetail(ctx, "ref1", "Red", dec("100"), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, d.Quantity)
	assert.True(t, d.Price.Equal(dec("100")))

	// delta is additive, price is overwritten
	d, err = env.inv.UpsertDetail(ctx, "ref1", "Red", dec("120"), 3)
	require.NoError(t, err)
	assert.Equal(t, 5, d.Quantity)
	assert.True(t, d.Price.Equal(dec("120")))

	// negative delta within bounds
	d, err = env.inv.UpsertDetail(ctx, "ref1", "Red", dec("120"), -4)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Quantity)
}

func TestUpsertDetailCreateWithNegativeDeltaClampsToZero(t *testing.T) {
	env := newTestEnv(t, 3)

	d, err := env.inv.UpsertDetail(context.Background(), "ref1", "Blue", dec("80"), -7)
	require.NoError(t, err)
	assert.Equal(t, 0, d.Quantity)
}

func TestUpsertDetailRejectsWithoutMutating(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()

	_, err := env.inv.UpsertDetail(ctx, "ref1", "Red", dec("100"), 2)
	require.NoError(t, err)

	_, err = env.inv.UpsertDetail(ctx, "ref1", "Red", dec("100"), -5)
	assert.ErrorIs(t, err, &model.InvalidQuantityError{})

	_, err = env.inv.UpsertDetail(ctx, "ref1", "Red", dec("-1"), 1)
	assert.ErrorIs(t, err, &model.InvalidPriceError{})

	d, _, ferr := env.details.Find(ctx, "ref1", "Red")
	require.NoError(t, ferr)
	assert.Equal(t, 2, d.Quantity)
	assert.True(t, d.Price.Equal(dec("100")))
}

func TestRecomputeAggregatesWeightedAverage(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	env.seedProduct(t, "p1", "Shirt", nil)

	slot, err := env.inv.ResolveVariant(ctx, "p1", "Size", []string{"M", "L"})
	require.NoError(t, err)
	_, err = env.inv.UpsertDetail(ctx, slot.VariantRef, "M", dec("100"), 2)
	require.NoError(t, err)
	_, err = env.inv.UpsertDetail(ctx, slot.VariantRef, "L", dec("200"), 3)
	require.NoError(t, err)

	p, err := env.inv.RecomputeAggregates(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 5, p.TotalQuantity)
	assert.True(t, p.TotalPrice.Equal(dec("160")), "got %s", p.TotalPrice)
	assert.Equal(t, model.StatusAvailable, p.Status)

	// idempotent: a second projection with no intervening mutation is identical
	p2, err := env.inv.RecomputeAggregates(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p.TotalQuantity, p2.TotalQuantity)
	assert.True(t, p.TotalPrice.Equal(p2.TotalPrice))
}

func TestRecomputeAggregatesEmptyLedgersGoUnavailable(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	env.seedProduct(t, "p1", "Shirt", nil)

	_, err := env.inv.ResolveVariant(ctx, "p1", "Size", []string{"M"})
	require.NoError(t, err)

	p, err := env.inv.RecomputeAggregates(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.TotalQuantity)
	assert.True(t, p.TotalPrice.Equal(decimal.Zero))
	assert.Equal(t, model.StatusUnavailable, p.Status)
}

func TestRecomputeAggregatesNonVariantIsReadOnly(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	env.seedProduct(t, "p1", "Mug", decPtr("15"))

	_, before, err := env.products.Find(ctx, "p1")
	require.NoError(t, err)

	p, err := env.inv.RecomputeAggregates(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, p.Price)
	assert.True(t, p.Price.Equal(dec("15")))

	_, after, err := env.products.Find(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, before, after, "no write for a product without variants")
}
