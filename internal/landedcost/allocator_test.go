package landedcost

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func importBatch() Batch {
	return Batch{
		ImportPrice:  dec("1000"),
		Currency:     "USD",
		ExchangeRate: dec("15000"),
		DutyPercent:  dec("5"),
		Freight:      Fixed(dec("500000")),
		Other:        Fixed(decimal.Zero),
		Quantity:     100,
	}
}

func TestComputeImportScenario(t *testing.T) {
	// $1,000 @ 15,000 with 5% duty and fixed freight 500,000.
	bd, err := Compute(importBatch())
	require.NoError(t, err)

	assert.True(t, bd.BasePrice.Equal(dec("15000000")), "base %s", bd.BasePrice)
	assert.True(t, bd.Duty.Equal(dec("750000")), "duty %s", bd.Duty)
	assert.True(t, bd.Freight.Equal(dec("500000")), "freight %s", bd.Freight)
	assert.True(t, bd.Other.IsZero())
	assert.True(t, bd.Total.Equal(dec("16250000")), "total %s", bd.Total)
}

func TestComputePercentageFreight(t *testing.T) {
	b := importBatch()
	b.Freight = Percentage(dec("2"))
	bd, err := Compute(b)
	require.NoError(t, err)
	assert.True(t, bd.Freight.Equal(dec("300000")), "freight %s", bd.Freight)
	assert.True(t, bd.Total.Equal(dec("16050000")), "total %s", bd.Total)
}

func TestComputeRejectsZeroRate(t *testing.T) {
	b := importBatch()
	b.ExchangeRate = decimal.Zero
	_, err := Compute(b)
	var rerr *InvalidRateError
	require.ErrorAs(t, err, &rerr)
}

func TestAllocateAndLockRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	created, err := s.CreateBatch(ctx, importBatch())
	require.NoError(t, err)

	allocated, bd, err := s.Allocate(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, allocated.FinalLandedCost.Equal(dec("16250000")))
	assert.True(t, bd.Total.Equal(allocated.FinalLandedCost))

	locked, err := s.Lock(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, locked.CostLocked)

	// Re-fetch returns the frozen cost.
	got, err := s.Batch(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.FinalLandedCost.Equal(dec("16250000")))
}

func TestLockIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	created, err := s.CreateBatch(ctx, importBatch())
	require.NoError(t, err)

	first, err := s.Lock(ctx, created.ID)
	require.NoError(t, err)
	second, err := s.Lock(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, first.CostLocked, second.CostLocked)
	assert.True(t, first.FinalLandedCost.Equal(second.FinalLandedCost))
}

func TestLockedBatchRefusesRecompute(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	created, err := s.CreateBatch(ctx, importBatch())
	require.NoError(t, err)

	_, _, err = s.Allocate(ctx, created.ID)
	require.NoError(t, err)
	_, err = s.Lock(ctx, created.ID)
	require.NoError(t, err)

	var lerr *LockedCostError
	_, _, err = s.Allocate(ctx, created.ID)
	require.ErrorAs(t, err, &lerr)

	_, err = s.SetCharges(ctx, created.ID, dec("10"), Fixed(dec("999")), Fixed(decimal.Zero))
	require.ErrorAs(t, err, &lerr)

	// The frozen cost is unchanged by the rejected edits.
	got, err := s.Batch(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.FinalLandedCost.Equal(dec("16250000")))
	assert.True(t, got.DutyPercent.Equal(dec("5")))
}

func TestSetQuantityBelowSoldFails(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	b := importBatch()
	b.SoldQuantity = 40
	created, err := s.CreateBatch(ctx, b)
	require.NoError(t, err)

	_, err = s.SetQuantity(ctx, created.ID, 30)
	var serr *InsufficientStockError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, int64(30), serr.Requested)
	assert.Equal(t, int64(40), serr.Sold)

	// Batch unchanged after the failure.
	got, err := s.Batch(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.Quantity)

	// Reducing to exactly the sold quantity is allowed.
	got, err = s.SetQuantity(ctx, created.ID, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(40), got.Quantity)
}

func TestParseCharge(t *testing.T) {
	c, err := ParseCharge("percentage", dec("5"))
	require.NoError(t, err)
	assert.Equal(t, ChargePercentage, c.Type())

	c, err = ParseCharge("fixed", dec("500000"))
	require.NoError(t, err)
	assert.Equal(t, ChargeFixed, c.Type())

	_, err = ParseCharge("sometimes", dec("1"))
	require.Error(t, err)
}
