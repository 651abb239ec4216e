package models

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultOrderRequestedQty = 1
	DefaultOrderSuggestion   = 1
	defaultOrderIdFormat     = "ORD-%03d"
	unboundedQty             = math.MaxInt
)

// DefaultOrderPrice is the unit price given to orders created with AddOrder.
var DefaultOrderPrice = decimal.RequireFromString("515.75")

var (
	decimalOne    = decimal.NewFromInt(1)
	decimalMaxInt = decimal.NewFromInt(math.MaxInt64)
)

// AllocationPolicy tunes the auto-assignment pass.
type AllocationPolicy struct {
	// RunningCustomerCredit charges every allocation against what is left of the
	// customer's credit after earlier orders of the same pass. When false each order is
	// checked against the customer's starting credit.
	RunningCustomerCredit bool `json:"running_customer_credit"`
}

// SaveAck acknowledges a save. Nothing is persisted.
type SaveAck struct {
	Version        int64     `json:"version"`
	OrderCount     int       `json:"order_count"`
	AllocatedUnits int       `json:"allocated_units"`
	RemainingStock int       `json:"remaining_stock"`
	SavedAt        time.Time `json:"saved_at"`
}

// maxAffordableQty is floor(credit / price). bounded is false for a zero price.
func maxAffordableQty(credit, price decimal.Decimal) (qty int, bounded bool) {
	if price.Sign() <= 0 {
		return unboundedQty, false
	}
	if credit.Sign() <= 0 {
		return 0, true
	}
	q := credit.Div(price).Floor()
	// Div rounds at DivisionPrecision; settle the floor exactly.
	for q.Sign() > 0 && q.Mul(price).GreaterThan(credit) {
		q = q.Sub(decimalOne)
	}
	for q.Add(decimalOne).Mul(price).LessThanOrEqual(credit) {
		q = q.Add(decimalOne)
	}
	if q.GreaterThanOrEqual(decimalMaxInt) {
		return unboundedQty, true
	}
	return int(q.IntPart()), true
}

func clamp(v, lower, upper int) int {
	return max(lower, min(v, upper))
}

// prioritize orders by customer credit, highest first. Ties keep their input order.
func prioritize(orders []*Order, customers map[string]*Customer) []*Order {
	ranked := make([]*Order, len(orders))
	copy(ranked, orders)
	creditOf := func(o *Order) decimal.Decimal {
		if c, ok := customers[o.CustomerId]; ok {
			return c.CreditRemaining
		}
		return decimal.Zero
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return creditOf(ranked[i]).GreaterThan(creditOf(ranked[j]))
	})
	return ranked
}

// autoPass is the accumulator threaded through the priority-ordered fold.
type autoPass struct {
	remainingStock int
	spentCredit    map[string]decimal.Decimal
	violations     []Violation
}

func (p autoPass) step(order *Order, customer *Customer, policy AllocationPolicy) autoPass {
	if customer == nil {
		order.setAllocation(0)
		return p
	}

	credit := customer.availableCredit()
	if policy.RunningCustomerCredit {
		credit = credit.Sub(p.spentCredit[customer.ID])
	}
	maxAffordable, bounded := maxAffordableQty(credit, order.PricePerUnit)

	qty := max(0, min(order.RequestedQty, p.remainingStock, maxAffordable))
	order.setAllocation(qty)
	p.remainingStock -= qty
	if policy.RunningCustomerCredit {
		p.spentCredit[customer.ID] = p.spentCredit[customer.ID].Add(order.Total)
	}

	if bounded && order.Total.GreaterThan(customer.availableCredit()) {
		p.violations = append(p.violations, overCreditViolation(order, customer.CreditRemaining.String()))
	}
	if order.AllocatedQty > order.RequestedQty {
		p.violations = append(p.violations, overRequestedViolation(order))
	}
	return p
}

// RunAutoAssignment allocates every order from scratch in customer-credit priority,
// checking each order against its customer's starting credit.
func RunAutoAssignment(state *AllocationState) (*AllocationState, []Violation) {
	return RunAutoAssignmentWithPolicy(state, AllocationPolicy{})
}

func RunAutoAssignmentWithPolicy(state *AllocationState, policy AllocationPolicy) (*AllocationState, []Violation) {
	next := state.Clone()
	next.normalize()

	customers := next.customerIndex()
	pass := autoPass{
		remainingStock: next.TotalStock,
		spentCredit:    map[string]decimal.Decimal{},
		violations:     []Violation{},
	}
	for _, order := range prioritize(next.Orders, customers) {
		pass = pass.step(order, customers[order.CustomerId], policy)
	}
	return next, pass.violations
}

// UpdateAllocation sets one order's allocation as close to desiredQty as the order's
// request, its customer's credit and the stock left by the other orders allow.
// An unknown order or customer leaves the state as it was.
func UpdateAllocation(state *AllocationState, orderId string, desiredQty int) (*AllocationState, []Violation) {
	next := state.Clone()
	if _, _, ok := next.ResolveOrder(orderId); !ok {
		return next, []Violation{}
	}
	next.normalize()
	order, customer, _ := next.ResolveOrder(orderId)

	maxAffordable, bounded := maxAffordableQty(customer.availableCredit(), order.PricePerUnit)
	otherAllocated := next.AllocatedUnits() - order.AllocatedQty
	maxAvailable := next.TotalStock - otherAllocated

	upper := min(order.RequestedQty, maxAffordable, maxAvailable)
	constrained := clamp(desiredQty, 0, upper)
	order.setAllocation(constrained)

	violations := []Violation{}
	if constrained < desiredQty {
		switch {
		case bounded && constrained == maxAffordable:
			violations = append(violations, creditLimitViolation(order.ID, maxAffordable))
		case constrained == maxAvailable:
			violations = append(violations, stockLimitViolation(order.ID, maxAvailable))
		}
	}
	return next, violations
}

// ResetAllocations zeroes every allocation.
func ResetAllocations(state *AllocationState) *AllocationState {
	next := state.Clone()
	next.normalize()
	for _, o := range next.Orders {
		o.setAllocation(0)
	}
	return next
}

// AddOrder appends a default order bound to the first customer and product.
// Existing orders are left untouched.
func AddOrder(state *AllocationState) *AllocationState {
	next := state.Clone()
	order := &Order{
		ID:           next.nextOrderId(),
		RequestedQty: DefaultOrderRequestedQty,
		Suggestion:   DefaultOrderSuggestion,
		PricePerUnit: DefaultOrderPrice,
	}
	if len(next.Customers) > 0 {
		order.CustomerId = next.Customers[0].ID
	}
	if len(next.Products) > 0 {
		order.ProductId = next.Products[0].ID
	}
	order.setAllocation(0)
	next.Orders = append(next.Orders, order)
	return next
}

// nextOrderId derives the id from the order count, skipping ids already taken.
func (s *AllocationState) nextOrderId() string {
	n := len(s.Orders) + 1
	for {
		id := fmt.Sprintf(defaultOrderIdFormat, n)
		if s.FindOrder(id) == nil {
			return id
		}
		n++
	}
}

// Save acknowledges the state without storing it.
func Save(state *AllocationState, at time.Time) SaveAck {
	return SaveAck{
		OrderCount:     len(state.Orders),
		AllocatedUnits: state.AllocatedUnits(),
		RemainingStock: state.RemainingStock(),
		SavedAt:        at.UTC(),
	}
}
