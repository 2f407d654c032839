// Package vecfile loads query/input vectors from .npy and .json files for
// the command line tool.
package vecfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sbinet/npyio"
)

// Load reads a vector from path, dispatching on the file extension.
// Supported: .npy (1-D float32/float64) and .json (flat number array).
func Load(path string) ([]float32, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".npy":
		return LoadNpy(path)
	case ".json":
		return LoadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported vector file extension %q", filepath.Ext(path))
	}
}

// LoadJSON reads a flat JSON number array.
func LoadJSON(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var values []float32
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return values, nil
}

// LoadNpy reads a 1-D NumPy array of float32 or float64 values. Float64
// input is narrowed to float32.
func LoadNpy(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if len(r.Header.Descr.Shape) != 1 {
		return nil, fmt.Errorf("%s: expected 1-D array, got %d dimensions", path, len(r.Header.Descr.Shape))
	}

	switch r.Header.Descr.Type {
	case "<f4", "|f4":
		var values []float32
		if err := r.Read(&values); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return values, nil
	case "<f8":
		var raw []float64
		if err := r.Read(&raw); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		values := make([]float32, len(raw))
		for i, v := range raw {
			values[i] = float32(v)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("%s: unsupported npy dtype %q", path, r.Header.Descr.Type)
	}
}
