package domain

import (
	"strings"
	"time"
)

// BillType classifies a bill entry.
type BillType string

// Bill entry types. Expenses carry a negative amount; the others are positive.
const (
	BillTypeIncome   BillType = "income"
	BillTypeExpense  BillType = "expense"
	BillTypeAddition BillType = "addition"
)

// Valid reports whether t is a known bill type.
func (t BillType) Valid() bool {
	return t == BillTypeIncome || t == BillTypeExpense || t == BillTypeAddition
}

// BillEntry is a single money movement recorded for a calendar day.
type BillEntry struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	Type        BillType  `json:"type"`
	Amount      Money     `json:"amount"`
	Description string    `json:"description"`
	Time        TimeOfDay `json:"time"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewBillEntry creates a bill entry with amount rounded to the cent. The sign
// is normalized from the type, so callers may pass either a signed or an
// absolute value.
func NewBillEntry(date string, billType BillType, amount float64, description string, at TimeOfDay) (*BillEntry, error) {
	cents, err := MoneyFromFloat(amount)
	if err != nil {
		return nil, err
	}
	cents = cents.Abs()
	if billType == BillTypeExpense {
		cents = -cents
	}

	entry := &BillEntry{
		Date:        strings.TrimSpace(date),
		Type:        billType,
		Amount:      cents,
		Description: strings.TrimSpace(description),
		Time:        at,
		CreatedAt:   time.Now().UTC(),
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Validate checks that the entry is well-formed.
func (b *BillEntry) Validate() error {
	if _, err := time.Parse(DateLayout, b.Date); err != nil {
		return NewValidationError("date", "must be YYYY-MM-DD", ErrInvalidFormat)
	}

	if !b.Type.Valid() {
		return NewValidationError("type", string(b.Type), ErrInvalidBillType)
	}

	if b.Amount == 0 {
		return NewValidationError("amount", "must be at least one cent", ErrValidation)
	}
	if b.Amount.Abs() > MaxMoney {
		return NewValidationError("amount", "is out of range", ErrValidation)
	}

	if (b.Type == BillTypeExpense) != (b.Amount < 0) {
		return NewValidationError("amount", "sign does not match type", ErrValidation)
	}

	if !b.Time.Valid() {
		return NewValidationError("time", "is out of range", ErrInvalidTimeOfDay)
	}

	return nil
}
