package models

import (
	"github.com/shopspring/decimal"
)

type Customer struct {
	ID   string `json:"id" yaml:"id" validate:"required"`
	Name string `json:"name" yaml:"name"`
	// CreditRemaining caps what allocations for this customer may cost.
	CreditRemaining decimal.Decimal `json:"credit_remaining" yaml:"credit_remaining"`
	// ClosingBalance is shown to the operator only.
	ClosingBalance decimal.Decimal `json:"closing_balance" yaml:"closing_balance"`
}

func (c *Customer) clone() *Customer {
	cc := *c
	return &cc
}

// availableCredit never goes below zero.
func (c *Customer) availableCredit() decimal.Decimal {
	if c.CreditRemaining.IsNegative() {
		return decimal.Zero
	}
	return c.CreditRemaining
}
