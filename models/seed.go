package models

import (
	"fmt"
	"io"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultSnapshot is the demo data a session starts from when no seed is configured.
func DefaultSnapshot() *AllocationState {
	return &AllocationState{
		TotalStock: 100,
		Products: []*Product{
			{ID: "P001", Name: "Jasmine Rice 25kg", Price: decimal.RequireFromString("515.75")},
			{ID: "P002", Name: "Palm Oil 18L", Price: decimal.RequireFromString("312.40")},
		},
		Customers: []*Customer{
			{ID: "C001", Name: "Golden Harvest Trading", CreditRemaining: decimal.NewFromInt(3000), ClosingBalance: decimal.RequireFromString("1250.00")},
			{ID: "C002", Name: "Shwe Taung Mart", CreditRemaining: decimal.NewFromInt(12000), ClosingBalance: decimal.RequireFromString("480.50")},
			{ID: "C003", Name: "Lucky Star Wholesale", CreditRemaining: decimal.NewFromInt(12000), ClosingBalance: decimal.Zero},
			{ID: "C004", Name: "Mingalar Grocery", CreditRemaining: decimal.NewFromInt(800), ClosingBalance: decimal.RequireFromString("95.25")},
		},
		Orders: []*Order{
			{ID: "ORD-001", CustomerId: "C001", ProductId: "P001", RequestedQty: 10, Suggestion: 5, PricePerUnit: decimal.RequireFromString("515.75")},
			{ID: "ORD-002", CustomerId: "C002", ProductId: "P001", RequestedQty: 20, Suggestion: 18, PricePerUnit: decimal.RequireFromString("515.75")},
			{ID: "ORD-003", CustomerId: "C003", ProductId: "P002", RequestedQty: 40, Suggestion: 30, PricePerUnit: decimal.RequireFromString("298.00")},
			{ID: "ORD-004", CustomerId: "C004", ProductId: "P002", RequestedQty: 5, Suggestion: 2, PricePerUnit: decimal.RequireFromString("312.40")},
			{ID: "ORD-005", CustomerId: "C002", ProductId: "P002", RequestedQty: 30, Suggestion: 20, PricePerUnit: decimal.RequireFromString("312.40")},
		},
	}
}

// LoadSnapshotYAML decodes a seed snapshot. Totals are derived and never read.
func LoadSnapshotYAML(r io.Reader) (*AllocationState, error) {
	var state AllocationState
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&state); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return PrepareSnapshot(&state)
}

func LoadSnapshotYAMLFile(path string) (*AllocationState, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadSnapshotYAML(f)
}
