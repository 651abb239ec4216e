package models

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func singleOrderState() *AllocationState {
	return &AllocationState{
		TotalStock: 10,
		Products:   []*Product{{ID: "P1", Name: "Rice", Price: dec("515.75")}},
		Customers:  []*Customer{{ID: "C1", Name: "Acme", CreditRemaining: dec("3000")}},
		Orders: []*Order{
			{ID: "ORD-001", CustomerId: "C1", ProductId: "P1", RequestedQty: 10, Suggestion: 1, PricePerUnit: dec("515.75")},
		},
	}
}

func TestMaxAffordableQty(t *testing.T) {
	cases := []struct {
		name        string
		credit      string
		price       string
		expected    int
		expectBound bool
	}{
		{"fractional quotient floors", "3000", "515.75", 5, true},
		{"exact quotient", "3000", "500", 6, true},
		{"credit below price", "100", "515.75", 0, true},
		{"zero credit", "0", "10", 0, true},
		{"negative credit", "-50", "10", 0, true},
		{"zero price is unbounded", "0", "0", unboundedQty, false},
		{"repeating quotient", "1", "0.3", 3, true},
		{"tiny price", "10", "0.0000000000000000001", unboundedQty, true},
	}
	for _, tc := range cases {
		got, bounded := maxAffordableQty(dec(tc.credit), dec(tc.price))
		if got != tc.expected || bounded != tc.expectBound {
			t.Fatalf("%s: expected (%d,%v), got (%d,%v)", tc.name, tc.expected, tc.expectBound, got, bounded)
		}
	}
}

func TestRunAutoAssignment_LimitedByCredit(t *testing.T) {
	state := singleOrderState()
	next, violations := RunAutoAssignment(state)

	order := next.FindOrder("ORD-001")
	if order.AllocatedQty != 5 {
		t.Fatalf("expected allocated 5, got %d", order.AllocatedQty)
	}
	if !order.Total.Equal(dec("2578.75")) {
		t.Fatalf("expected total 2578.75, got %s", order.Total)
	}
	if next.RemainingStock() != 5 {
		t.Fatalf("expected remaining stock 5, got %d", next.RemainingStock())
	}
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
	if state.Orders[0].AllocatedQty != 0 {
		t.Fatalf("input state was mutated")
	}
}

func TestUpdateAllocation_ClippedByCredit(t *testing.T) {
	state, _ := RunAutoAssignment(singleOrderState())
	next, violations := UpdateAllocation(state, "ORD-001", 7)

	order := next.FindOrder("ORD-001")
	if order.AllocatedQty != 5 {
		t.Fatalf("expected allocated 5, got %d", order.AllocatedQty)
	}
	if len(violations) != 1 || violations[0].Kind != ViolationKindCreditLimit {
		t.Fatalf("expected one credit violation, got %v", violations)
	}
	if violations[0].Message != "ORD-001: quantity limited by customer credit (max 5)" {
		t.Fatalf("unexpected message %q", violations[0].Message)
	}
}

func TestUpdateAllocation_ClippedByStock(t *testing.T) {
	state := &AllocationState{
		TotalStock: 10,
		Products:   []*Product{{ID: "P1", Price: dec("10")}},
		Customers:  []*Customer{{ID: "C1", CreditRemaining: dec("100000")}},
		Orders: []*Order{
			{ID: "A", CustomerId: "C1", ProductId: "P1", RequestedQty: 8, AllocatedQty: 8, PricePerUnit: dec("10")},
			{ID: "B", CustomerId: "C1", ProductId: "P1", RequestedQty: 6, PricePerUnit: dec("10")},
		},
	}
	next, violations := UpdateAllocation(state, "B", 5)

	if got := next.FindOrder("B").AllocatedQty; got != 2 {
		t.Fatalf("expected allocated 2, got %d", got)
	}
	if got := next.FindOrder("A").AllocatedQty; got != 8 {
		t.Fatalf("other order changed: %d", got)
	}
	if next.RemainingStock() != 0 {
		t.Fatalf("expected remaining stock 0, got %d", next.RemainingStock())
	}
	if len(violations) != 1 || violations[0].Kind != ViolationKindStockLimit {
		t.Fatalf("expected one stock violation, got %v", violations)
	}
}

func TestUpdateAllocation_RequestedCapEmitsNothing(t *testing.T) {
	state := &AllocationState{
		TotalStock: 100,
		Products:   []*Product{{ID: "P1", Price: dec("1")}},
		Customers:  []*Customer{{ID: "C1", CreditRemaining: dec("1000")}},
		Orders:     []*Order{{ID: "A", CustomerId: "C1", ProductId: "P1", RequestedQty: 4, PricePerUnit: dec("1")}},
	}
	next, violations := UpdateAllocation(state, "A", 9)
	if got := next.FindOrder("A").AllocatedQty; got != 4 {
		t.Fatalf("expected allocated 4, got %d", got)
	}
	if len(violations) != 0 {
		t.Fatalf("expected no violations when the request caps, got %v", violations)
	}
}

func TestUpdateAllocation_CreditWinsTieWithStock(t *testing.T) {
	state := &AllocationState{
		TotalStock: 3,
		Products:   []*Product{{ID: "P1", Price: dec("10")}},
		Customers:  []*Customer{{ID: "C1", CreditRemaining: dec("30")}},
		Orders:     []*Order{{ID: "A", CustomerId: "C1", ProductId: "P1", RequestedQty: 10, PricePerUnit: dec("10")}},
	}
	_, violations := UpdateAllocation(state, "A", 5)
	if len(violations) != 1 || violations[0].Kind != ViolationKindCreditLimit {
		t.Fatalf("expected credit to be reported first, got %v", violations)
	}
}

func TestUpdateAllocation_NegativeAndFractionalRequests(t *testing.T) {
	state, _ := RunAutoAssignment(singleOrderState())
	next, violations := UpdateAllocation(state, "ORD-001", -4)
	order := next.FindOrder("ORD-001")
	if order.AllocatedQty != 0 || !order.Total.IsZero() {
		t.Fatalf("expected zero allocation, got %d / %s", order.AllocatedQty, order.Total)
	}
	if len(violations) != 0 {
		t.Fatalf("expected no violations for a negative request, got %v", violations)
	}
	if next.RemainingStock() != 10 {
		t.Fatalf("expected remaining stock 10, got %d", next.RemainingStock())
	}
}

func TestUpdateAllocation_UnknownOrderOrCustomerIsNoop(t *testing.T) {
	state, _ := RunAutoAssignment(singleOrderState())

	next, violations := UpdateAllocation(state, "ORD-404", 3)
	if len(violations) != 0 || next.FindOrder("ORD-001").AllocatedQty != 5 {
		t.Fatalf("unknown order changed state: %v", violations)
	}

	orphan := state.Clone()
	orphan.Orders[0].CustomerId = "C404"
	next, violations = UpdateAllocation(orphan, "ORD-001", 1)
	if len(violations) != 0 || next.FindOrder("ORD-001").AllocatedQty != 5 {
		t.Fatalf("unknown customer changed state: %v", violations)
	}
}

func TestZeroPriceIsUnbounded(t *testing.T) {
	state := &AllocationState{
		TotalStock: 6,
		Products:   []*Product{{ID: "P1", Price: decimal.Zero}},
		Customers:  []*Customer{{ID: "C1", CreditRemaining: decimal.Zero}},
		Orders:     []*Order{{ID: "A", CustomerId: "C1", ProductId: "P1", RequestedQty: 9, PricePerUnit: decimal.Zero}},
	}
	next, violations := RunAutoAssignment(state)
	if got := next.FindOrder("A").AllocatedQty; got != 6 {
		t.Fatalf("expected stock-limited allocation 6, got %d", got)
	}
	if len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}

	next, violations = UpdateAllocation(next, "A", 8)
	if got := next.FindOrder("A").AllocatedQty; got != 6 {
		t.Fatalf("expected allocation 6, got %d", got)
	}
	if len(violations) != 1 || violations[0].Kind != ViolationKindStockLimit {
		t.Fatalf("expected stock violation, got %v", violations)
	}
}

func TestRunAutoAssignment_PriorityIsStableByCredit(t *testing.T) {
	state := &AllocationState{
		TotalStock: 10,
		Products:   []*Product{{ID: "P1", Price: dec("1")}},
		Customers: []*Customer{
			{ID: "LOW", CreditRemaining: dec("100")},
			{ID: "TIE1", CreditRemaining: dec("500")},
			{ID: "TIE2", CreditRemaining: dec("500")},
		},
		Orders: []*Order{
			{ID: "low", CustomerId: "LOW", ProductId: "P1", RequestedQty: 10, PricePerUnit: dec("1")},
			{ID: "second", CustomerId: "TIE2", ProductId: "P1", RequestedQty: 6, PricePerUnit: dec("1")},
			{ID: "first", CustomerId: "TIE1", ProductId: "P1", RequestedQty: 6, PricePerUnit: dec("1")},
		},
	}
	next, _ := RunAutoAssignment(state)

	// Equal credit keeps input order: "second" precedes "first".
	if got := next.FindOrder("second").AllocatedQty; got != 6 {
		t.Fatalf("expected second=6, got %d", got)
	}
	if got := next.FindOrder("first").AllocatedQty; got != 4 {
		t.Fatalf("expected first=4, got %d", got)
	}
	if got := next.FindOrder("low").AllocatedQty; got != 0 {
		t.Fatalf("expected low=0, got %d", got)
	}
	if next.Orders[0].ID != "low" || next.Orders[1].ID != "second" || next.Orders[2].ID != "first" {
		t.Fatalf("order sequence changed")
	}
}

func TestRunAutoAssignment_SameCustomerCredit(t *testing.T) {
	state := &AllocationState{
		TotalStock: 100,
		Products:   []*Product{{ID: "P1", Price: dec("100")}},
		Customers:  []*Customer{{ID: "C1", CreditRemaining: dec("500")}},
		Orders: []*Order{
			{ID: "A", CustomerId: "C1", ProductId: "P1", RequestedQty: 4, PricePerUnit: dec("100")},
			{ID: "B", CustomerId: "C1", ProductId: "P1", RequestedQty: 4, PricePerUnit: dec("100")},
		},
	}

	next, _ := RunAutoAssignment(state)
	if next.FindOrder("A").AllocatedQty != 4 || next.FindOrder("B").AllocatedQty != 4 {
		t.Fatalf("starting-credit policy should check each order alone")
	}

	next, _ = RunAutoAssignmentWithPolicy(state, AllocationPolicy{RunningCustomerCredit: true})
	if next.FindOrder("A").AllocatedQty != 4 || next.FindOrder("B").AllocatedQty != 1 {
		t.Fatalf("running credit expected 4/1, got %d/%d",
			next.FindOrder("A").AllocatedQty, next.FindOrder("B").AllocatedQty)
	}
	if !next.AllocatedValue().Equal(dec("500")) {
		t.Fatalf("expected allocated value 500, got %s", next.AllocatedValue())
	}
}

func TestRunAutoAssignment_ReallocatesFromScratch(t *testing.T) {
	state := singleOrderState()
	state.Orders[0].AllocatedQty = 3
	state.Orders[0].RequestedQty = -2
	next, _ := RunAutoAssignment(state)
	order := next.FindOrder("ORD-001")
	if order.RequestedQty != 0 || order.AllocatedQty != 0 || !order.Total.IsZero() {
		t.Fatalf("negative request should normalize to zero, got %+v", order)
	}
}

func TestRunAutoAssignment_MissingCustomerGetsNothing(t *testing.T) {
	state := singleOrderState()
	state.Orders[0].CustomerId = "C404"
	next, violations := RunAutoAssignment(state)
	if next.FindOrder("ORD-001").AllocatedQty != 0 || len(violations) != 0 {
		t.Fatalf("expected orphan order to stay at zero")
	}
}

func TestResetAllocations(t *testing.T) {
	state, _ := RunAutoAssignment(DefaultSnapshot())
	if state.AllocatedUnits() == 0 {
		t.Fatalf("expected the default snapshot to allocate something")
	}
	reset := ResetAllocations(state)
	for _, o := range reset.Orders {
		if o.AllocatedQty != 0 || !o.Total.IsZero() {
			t.Fatalf("order %s not reset", o.ID)
		}
	}
	if reset.RemainingStock() != reset.TotalStock {
		t.Fatalf("expected remaining stock %d, got %d", reset.TotalStock, reset.RemainingStock())
	}
	if state.AllocatedUnits() == 0 {
		t.Fatalf("input state was mutated")
	}
}

func TestAddOrder(t *testing.T) {
	state := DefaultSnapshot()
	next := AddOrder(state)

	if len(next.Orders) != len(state.Orders)+1 {
		t.Fatalf("expected one more order")
	}
	added := next.Orders[len(next.Orders)-1]
	if added.ID != "ORD-006" {
		t.Fatalf("expected ORD-006, got %s", added.ID)
	}
	if added.CustomerId != "C001" || added.ProductId != "P001" {
		t.Fatalf("expected default bindings, got %s/%s", added.CustomerId, added.ProductId)
	}
	if added.RequestedQty != 1 || added.Suggestion != 1 || added.AllocatedQty != 0 || !added.Total.IsZero() {
		t.Fatalf("unexpected defaults %+v", added)
	}
	if !added.PricePerUnit.Equal(DefaultOrderPrice) {
		t.Fatalf("expected default price, got %s", added.PricePerUnit)
	}
	if next.RemainingStock() != state.RemainingStock() {
		t.Fatalf("stock counters changed")
	}
}

func TestAddOrder_SkipsTakenIds(t *testing.T) {
	state := &AllocationState{
		Customers: []*Customer{{ID: "C1"}},
		Products:  []*Product{{ID: "P1"}},
		Orders:    []*Order{{ID: "ORD-002", CustomerId: "C1", ProductId: "P1"}},
	}
	next := AddOrder(state)
	if got := next.Orders[1].ID; got != "ORD-003" {
		t.Fatalf("expected ORD-003, got %s", got)
	}
}

func TestSave(t *testing.T) {
	state, _ := RunAutoAssignment(singleOrderState())
	ack := Save(state, mustTime(t, "2026-10-15T08:00:00+06:30"))
	if ack.OrderCount != 1 || ack.AllocatedUnits != 5 || ack.RemainingStock != 5 {
		t.Fatalf("unexpected ack %+v", ack)
	}
	if ack.SavedAt.Location().String() != "UTC" || ack.SavedAt.Hour() != 1 {
		t.Fatalf("expected UTC timestamp, got %s", ack.SavedAt)
	}
}
