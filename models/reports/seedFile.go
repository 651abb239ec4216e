package reports

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mmdatafocus/allocation_backend/models"
)

// LoadSeedFile reads a snapshot from an .xlsx workbook or a YAML file.
func LoadSeedFile(path string) (*models.AllocationState, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ImportSnapshot(f)
	default:
		return models.LoadSnapshotYAMLFile(path)
	}
}
