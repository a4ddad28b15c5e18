package toolkit

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ericfisherdev/upkeep/internal/domain/model"
)

const versionFileName = "VERSION"

// InstalledVersion reads the toolkit's VERSION file and parses its content.
// Leading/trailing whitespace and a v prefix are tolerated.
func InstalledVersion(root string) (model.Version, error) {
	path := filepath.Join(root, versionFileName)

	data, err := os.ReadFile(path)
	if err != nil {
		return model.Version{}, fmt.Errorf("read %s: %w", path, err)
	}

	version, err := model.ParseVersion(strings.TrimSpace(string(data)))
	if err != nil {
		return model.Version{}, fmt.Errorf("parse %s: %w", path, err)
	}

	return version, nil
}
