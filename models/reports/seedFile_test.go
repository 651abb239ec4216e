package reports

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mmdatafocus/allocation_backend/models"
)

func TestLoadSeedFile(t *testing.T) {
	dir := t.TempDir()

	f, err := SnapshotWorkbook(models.DefaultSnapshot())
	if err != nil {
		t.Fatalf("snapshot workbook: %v", err)
	}
	xlsxPath := filepath.Join(dir, "seed.XLSX")
	if err := f.SaveAs(xlsxPath); err != nil {
		t.Fatalf("save: %v", err)
	}

	yamlPath := filepath.Join(dir, "seed.yaml")
	seed := "total_stock: 5\nproducts:\n  - id: P1\n    price: 2\ncustomers:\n  - id: C1\n    credit_remaining: 10\norders: []\n"
	if err := os.WriteFile(yamlPath, []byte(seed), 0o600); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	tests := []struct {
		path      string
		wantStock int
	}{
		{xlsxPath, 100},
		{yamlPath, 5},
	}
	for _, tt := range tests {
		state, err := LoadSeedFile(tt.path)
		if err != nil {
			t.Fatalf("%s: %v", tt.path, err)
		}
		if state.TotalStock != tt.wantStock {
			t.Fatalf("%s: expected stock %d, got %d", tt.path, tt.wantStock, state.TotalStock)
		}
	}

	if _, err := LoadSeedFile(filepath.Join(dir, "missing.xlsx")); err == nil {
		t.Fatalf("expected error for missing workbook")
	}
}
