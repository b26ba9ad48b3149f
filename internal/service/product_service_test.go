package service

import (
	"context"
	"testing"

	"sellsmart/internal/dto"
	"sellsmart/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProductPlain(t *testing.T) {
	env := newTestEnv(t, 3)

	p, err := env.prodSvc.Create(context.Background(), dto.CreateProductRequest{
		Name:  "Mug",
		Price: decPtr("15"),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.HasVariants)
	require.NotNil(t, p.Price)
	assert.True(t, p.Price.Equal(dec("15")))
	assert.Equal(t, model.StatusUnavailable, p.Status)
}

func TestCreateProductRejectsNegativePrice(t *testing.T) {
	env := newTestEnv(t, 3)

	_, err := env.prodSvc.Create(context.Background(), dto.CreateProductRequest{
		Name:  "Mug",
		Price: decPtr("-1"),
	})
	assert.ErrorIs(t, err, &model.InvalidPriceError{})
}

func TestCreateProductWithSeededVariants(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()

	p, err := env.prodSvc.Create(ctx, dto.CreateProductRequest{
		Name: "Shirt",
		Variants: []dto.VariantDeclaration{
			{AttributeName: "Size", Values: []string{"M", "L"}, Price: decPtr("120"), Quantity: 2},
		},
	})
	require.NoError(t, err)
	assert.True(t, p.HasVariants)
	assert.Nil(t, p.Price)
	require.Len(t, p.Attributes, 1)
	assert.Equal(t, []string{"M", "L"}, p.Attributes[0].Values)

	// 2@120 per value, two values
	assert.Equal(t, 4, p.TotalQuantity)
	assert.True(t, p.TotalPrice.Equal(dec("120")))
	assert.Equal(t, model.StatusAvailable, p.Status)
}

func TestDeclareVariantWithoutSeedLeavesLedgersAlone(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()
	env.seedProduct(t, "p1", "Shirt", nil)

	slot, err := env.prodSvc.DeclareVariant(ctx, "p1", dto.DeclareVariantRequest{
		VariantDeclaration: dto.VariantDeclaration{AttributeName: "Color", Values: []string{"Red"}},
	})
	require.NoError(t, err)

	details, err := env.details.ListByRef(ctx, slot.VariantRef)
	require.NoError(t, err)
	assert.Empty(t, details, "declaration alone creates no ledgers")
}

func TestGetAndHistory(t *testing.T) {
	env := newTestEnv(t, 3)
	ctx := context.Background()

	_, err := env.prodSvc.Get(ctx, "ghost")
	assert.ErrorIs(t, err, &model.ProductNotFoundError{})

	env.seedProduct(t, "p1", "Mug", nil)
	history, err := env.prodSvc.BatchHistory(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, history)
}
