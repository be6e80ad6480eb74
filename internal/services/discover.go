package services

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/trobanga/spittal/internal/models"
)

// DiscoverFiles scans a section directory for files following the naming
// convention <category>_<name>_<module_supplier_id>.<ext>, for example
// dict_areaperil_3.csv. Only top-level regular files are considered.
func DiscoverFiles(dir string) (map[models.ResourceKey]models.FileEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	found := make(map[models.ResourceKey]models.FileEntry)
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		key, msid, err := ParseConventionalName(entry.Name())
		if err != nil {
			return nil, err
		}
		if prev, dup := found[key]; dup {
			return nil, fmt.Errorf("%s and %s both provide %s", prev.Filename, entry.Name(), key)
		}
		found[key] = models.FileEntry{Filename: entry.Name(), ModuleSupplierID: msid}
	}
	return found, nil
}

// ParseConventionalName splits <category>_<name>_<msid>.<ext> into its parts
func ParseConventionalName(filename string) (models.ResourceKey, int, error) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	if len(parts) != 3 || filepath.Ext(filename) == "" {
		return models.ResourceKey{}, 0, fmt.Errorf("bad file name %q: expected <category>_<name>_<module_supplier_id>.<ext>", filename)
	}

	key, err := models.ParseResourceKey(parts[0] + "_" + parts[1])
	if err != nil {
		return models.ResourceKey{}, 0, fmt.Errorf("bad file name %q: %w", filename, err)
	}

	msid, err := strconv.Atoi(parts[2])
	if err != nil || msid <= 0 {
		return models.ResourceKey{}, 0, fmt.Errorf("bad file name %q: module supplier id %q is not a positive integer", filename, parts[2])
	}
	return key, msid, nil
}
