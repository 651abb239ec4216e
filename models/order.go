package models

import (
	"github.com/shopspring/decimal"
)

type Order struct {
	ID           string `json:"id" yaml:"id" validate:"required"`
	CustomerId   string `json:"customer_id" yaml:"customer_id" validate:"required"`
	ProductId    string `json:"product_id" yaml:"product_id" validate:"required"`
	RequestedQty int    `json:"requested_qty" yaml:"requested_qty"`
	AllocatedQty int    `json:"allocated_qty" yaml:"allocated_qty"`
	Suggestion   int    `json:"suggestion" yaml:"suggestion"`
	// PricePerUnit is copied from the product when the order is created and may
	// diverge from the live product price afterwards.
	PricePerUnit decimal.Decimal `json:"price_per_unit" yaml:"price_per_unit"`
	// Total is always AllocatedQty * PricePerUnit; only setAllocation writes it.
	Total decimal.Decimal `json:"total" yaml:"-"`
}

func (o *Order) clone() *Order {
	c := *o
	return &c
}

func (o *Order) setAllocation(qty int) {
	o.AllocatedQty = qty
	o.Total = o.PricePerUnit.Mul(decimal.NewFromInt(int64(qty)))
}

// normalize clamps negative quantities to zero and the allocation to the request.
func (o *Order) normalize() {
	if o.RequestedQty < 0 {
		o.RequestedQty = 0
	}
	if o.Suggestion < 0 {
		o.Suggestion = 0
	}
	qty := o.AllocatedQty
	if qty < 0 {
		qty = 0
	}
	if qty > o.RequestedQty {
		qty = o.RequestedQty
	}
	o.setAllocation(qty)
}
