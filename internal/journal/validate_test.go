package journal

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEntryRequiresTwoLines(t *testing.T) {
	registry := seedRegistry(t)
	e := Entry{
		Date: day(2024, time.March, 1),
		Lines: []Line{
			{AccountID: accountID(t, registry, "1121"), Debit: dec("100")},
		},
	}
	err := validateEntry(context.Background(), e, registry)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, -1, verr.Line)
}

func TestValidateEntryRejectsExcessPrecision(t *testing.T) {
	registry := seedRegistry(t)
	e := Entry{
		Date: day(2024, time.March, 1),
		Lines: []Line{
			{AccountID: accountID(t, registry, "1121"), Debit: dec("100.005")},
			{AccountID: accountID(t, registry, "4110"), Credit: dec("100.005")},
		},
	}
	err := validateEntry(context.Background(), e, registry)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, verr.Line)
}

func TestValidateEntryRejectsNegativeAmounts(t *testing.T) {
	registry := seedRegistry(t)
	e := Entry{
		Date: day(2024, time.March, 1),
		Lines: []Line{
			{AccountID: accountID(t, registry, "1121"), Debit: dec("-5")},
			{AccountID: accountID(t, registry, "4110"), Credit: dec("-5")},
		},
	}
	err := validateEntry(context.Background(), e, registry)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateEntryRejectsBothSides(t *testing.T) {
	registry := seedRegistry(t)
	e := Entry{
		Date: day(2024, time.March, 1),
		Lines: []Line{
			{AccountID: accountID(t, registry, "1121"), Debit: dec("5"), Credit: dec("5")},
			{AccountID: accountID(t, registry, "4110"), Credit: dec("5")},
		},
	}
	err := validateEntry(context.Background(), e, registry)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestValidateEntryAcceptsBalancedMultiline(t *testing.T) {
	registry := seedRegistry(t)
	e := Entry{
		Date: day(2024, time.March, 1),
		Lines: []Line{
			{AccountID: accountID(t, registry, "1121"), Debit: dec("60.50")},
			{AccountID: accountID(t, registry, "1130"), Debit: dec("39.50")},
			{AccountID: accountID(t, registry, "4110"), Credit: dec("100.00")},
		},
	}
	require.NoError(t, validateEntry(context.Background(), e, registry))
}

func TestExactCents(t *testing.T) {
	assert.True(t, exactCents(dec("10.25")))
	assert.True(t, exactCents(decimal.Zero))
	assert.True(t, exactCents(dec("10")))
	assert.False(t, exactCents(dec("10.251")))
}
