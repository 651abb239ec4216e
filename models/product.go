package models

import (
	"github.com/shopspring/decimal"
)

// Product is reference data; it does not change during an allocation session.
type Product struct {
	ID    string          `json:"id" yaml:"id" validate:"required"`
	Name  string          `json:"name" yaml:"name"`
	Price decimal.Decimal `json:"price" yaml:"price"`
}

func (p *Product) clone() *Product {
	c := *p
	return &c
}
