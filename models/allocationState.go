package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mmdatafocus/allocation_backend/utils"
	"github.com/shopspring/decimal"
)

// AllocationState is one snapshot of an allocation session. Engine functions never
// mutate a state they receive; they return a fresh copy.
type AllocationState struct {
	TotalStock int         `json:"total_stock" yaml:"total_stock" validate:"gte=0"`
	Orders     []*Order    `json:"orders" yaml:"orders" validate:"dive,required"`
	Customers  []*Customer `json:"customers" yaml:"customers" validate:"dive,required"`
	Products   []*Product  `json:"products" yaml:"products" validate:"dive,required"`
}

// RemainingStock is derived, never stored.
func (s *AllocationState) RemainingStock() int {
	return s.TotalStock - s.AllocatedUnits()
}

func (s *AllocationState) AllocatedUnits() int {
	total := 0
	for _, o := range s.Orders {
		total += o.AllocatedQty
	}
	return total
}

func (s *AllocationState) AllocatedValue() decimal.Decimal {
	total := decimal.Zero
	for _, o := range s.Orders {
		total = total.Add(o.Total)
	}
	return total
}

func (s AllocationState) MarshalJSON() ([]byte, error) {
	type alias AllocationState
	return json.Marshal(struct {
		alias
		RemainingStock int `json:"remaining_stock"`
	}{alias(s), s.RemainingStock()})
}

func (s *AllocationState) Clone() *AllocationState {
	if s == nil {
		return &AllocationState{}
	}
	c := &AllocationState{
		TotalStock: s.TotalStock,
		Orders:     make([]*Order, 0, len(s.Orders)),
		Customers:  make([]*Customer, 0, len(s.Customers)),
		Products:   make([]*Product, 0, len(s.Products)),
	}
	for _, o := range s.Orders {
		c.Orders = append(c.Orders, o.clone())
	}
	for _, cu := range s.Customers {
		c.Customers = append(c.Customers, cu.clone())
	}
	for _, p := range s.Products {
		c.Products = append(c.Products, p.clone())
	}
	return c
}

func (s *AllocationState) FindOrder(id string) *Order {
	for _, o := range s.Orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (s *AllocationState) FindCustomer(id string) *Customer {
	for _, c := range s.Customers {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (s *AllocationState) FindProduct(id string) *Product {
	for _, p := range s.Products {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// ResolveOrder returns the order and its customer; ok is false when either is missing.
func (s *AllocationState) ResolveOrder(orderId string) (*Order, *Customer, bool) {
	order := s.FindOrder(orderId)
	if order == nil {
		return nil, nil, false
	}
	customer := s.FindCustomer(order.CustomerId)
	if customer == nil {
		return order, nil, false
	}
	return order, customer, true
}

func (s *AllocationState) customerIndex() map[string]*Customer {
	idx := make(map[string]*Customer, len(s.Customers))
	for _, c := range s.Customers {
		if _, exists := idx[c.ID]; !exists {
			idx[c.ID] = c
		}
	}
	return idx
}

func (s *AllocationState) normalize() {
	if s.TotalStock < 0 {
		s.TotalStock = 0
	}
	for _, o := range s.Orders {
		o.normalize()
	}
}

// PrepareSnapshot normalizes a caller supplied snapshot and checks that it already
// satisfies the allocation invariants. The input is not modified.
func PrepareSnapshot(input *AllocationState) (*AllocationState, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: snapshot is empty", utils.ErrInvalidSnapshot)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return nil, fmt.Errorf("%w: %s", utils.ErrInvalidSnapshot, utils.ValidationSummary(err))
	}
	state := input.Clone()
	state.normalize()
	if err := state.checkReferences(); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidSnapshot, err)
	}
	if err := state.checkInvariants(); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidSnapshot, err)
	}
	return state, nil
}

func (s *AllocationState) checkReferences() error {
	var problems []string

	orderIds := make([]string, 0, len(s.Orders))
	for _, o := range s.Orders {
		orderIds = append(orderIds, o.ID)
	}
	customerIds := make([]string, 0, len(s.Customers))
	for _, c := range s.Customers {
		customerIds = append(customerIds, c.ID)
		if c.CreditRemaining.IsNegative() {
			problems = append(problems, fmt.Sprintf("customer %s has negative credit", c.ID))
		}
	}
	productIds := make([]string, 0, len(s.Products))
	for _, p := range s.Products {
		productIds = append(productIds, p.ID)
		if p.Price.IsNegative() {
			problems = append(problems, fmt.Sprintf("product %s has negative price", p.ID))
		}
	}
	if dup := utils.DuplicateValues(orderIds); len(dup) > 0 {
		problems = append(problems, "duplicate order ids "+strings.Join(dup, ","))
	}
	if dup := utils.DuplicateValues(customerIds); len(dup) > 0 {
		problems = append(problems, "duplicate customer ids "+strings.Join(dup, ","))
	}
	if dup := utils.DuplicateValues(productIds); len(dup) > 0 {
		problems = append(problems, "duplicate product ids "+strings.Join(dup, ","))
	}

	for _, o := range s.Orders {
		if s.FindCustomer(o.CustomerId) == nil {
			problems = append(problems, fmt.Sprintf("order %s references unknown customer %s", o.ID, o.CustomerId))
		}
		if s.FindProduct(o.ProductId) == nil {
			problems = append(problems, fmt.Sprintf("order %s references unknown product %s", o.ID, o.ProductId))
		}
		if o.PricePerUnit.IsNegative() {
			problems = append(problems, fmt.Sprintf("order %s has negative price", o.ID))
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// checkInvariants verifies stock and credit caps on pre-existing allocations.
func (s *AllocationState) checkInvariants() error {
	if allocated := s.AllocatedUnits(); allocated > s.TotalStock {
		return fmt.Errorf("allocated %d exceeds total stock %d", allocated, s.TotalStock)
	}
	for _, o := range s.Orders {
		customer := s.FindCustomer(o.CustomerId)
		if customer == nil {
			continue
		}
		if o.Total.GreaterThan(customer.availableCredit()) {
			return fmt.Errorf("order %s total %s exceeds customer %s credit %s",
				o.ID, o.Total.String(), customer.ID, customer.CreditRemaining.String())
		}
	}
	return nil
}
