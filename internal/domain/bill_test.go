package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBillEntryNormalizesSign(t *testing.T) {
	t.Parallel()

	at := MustParseTimeOfDay("13:15")

	expense, err := NewBillEntry("2025-02-18", BillTypeExpense, 12.5, "lunch", at)
	require.NoError(t, err)
	assert.Equal(t, Money(-1250), expense.Amount)

	income, err := NewBillEntry("2025-02-18", BillTypeIncome, -100, "salary", at)
	require.NoError(t, err)
	assert.Equal(t, Money(10000), income.Amount)
}

func TestBillEntryValidate(t *testing.T) {
	t.Parallel()

	at := MustParseTimeOfDay("09:00")

	_, err := NewBillEntry("18/02/2025", BillTypeIncome, 1, "", at)
	assert.ErrorIs(t, err, ErrInvalidFormat)

	_, err = NewBillEntry("2025-02-18", BillType("gift"), 1, "", at)
	assert.ErrorIs(t, err, ErrInvalidBillType)

	_, err = NewBillEntry("2025-02-18", BillTypeAddition, 0, "", at)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewBillEntry("2025-02-18", BillTypeIncome, 0.004, "", at)
	assert.ErrorIs(t, err, ErrValidation, "rounds to zero cents")

	entry := BillEntry{Date: "2025-02-18", Type: BillTypeExpense, Amount: 5, Time: at}
	assert.ErrorIs(t, entry.Validate(), ErrValidation)
}

func TestBillTotalsDoNotDrift(t *testing.T) {
	t.Parallel()

	at := MustParseTimeOfDay("09:00")

	var total Money
	for i := 0; i < 10; i++ {
		entry, err := NewBillEntry("2025-02-18", BillTypeIncome, 0.1, "", at)
		require.NoError(t, err)
		total += entry.Amount
	}
	assert.Equal(t, Money(100), total)
	assert.Equal(t, "1.00", total.String())
}

