package rules

import (
	"path/filepath"

	"github.com/fenilsonani/tidyrules/internal/storage"
)

// FileName is the rule collection's file inside the data directory
const FileName = "rules.yaml"

// NewFileStore returns a Store backed by dataDir/rules.yaml
func NewFileStore(dataDir string) *storage.YAMLFile[[]CleaningRule] {
	return storage.NewYAMLFile[[]CleaningRule](filepath.Join(dataDir, FileName))
}
