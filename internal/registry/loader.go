// Package registry describes GGUF model files on disk.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"llmgate/internal/common/fsutil"
	"llmgate/pkg/types"
)

var quantRe = regexp.MustCompile(`^(I?Q\d+(_[0-9A-Z]+)*|F16|F32|BF16)$`)

// Describe resolves path and builds the ModelInfo served for it. An empty id
// defaults to the file name.
func Describe(path, id string) (types.ModelInfo, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return types.ModelInfo{}, err
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return types.ModelInfo{}, fmt.Errorf("abs path: %w", err)
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return types.ModelInfo{}, err
	}
	if fi.IsDir() {
		return types.ModelInfo{}, fmt.Errorf("%s is a directory", abs)
	}
	if strings.TrimSpace(id) == "" {
		id = filepath.Base(abs)
	}
	return types.ModelInfo{
		ID:     id,
		Path:   abs,
		Quant:  Quant(abs),
		SizeMB: int(fi.Size() >> 20),
	}, nil
}

// Quant extracts the quantization tag from a model file name, e.g. Q4_K_M
// from "tinyllama-1.1b-chat.Q4_K_M.gguf". Returns "" when none is present.
func Quant(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	fields := strings.FieldsFunc(name, func(r rune) bool { return r == '.' || r == '-' })
	for i := len(fields) - 1; i >= 0; i-- {
		if f := strings.ToUpper(fields[i]); quantRe.MatchString(f) {
			return f
		}
	}
	return ""
}

// Scan lists the *.gguf files in dir, sorted by name.
func Scan(dir string) ([]types.ModelInfo, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.ModelInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".gguf") {
			continue
		}
		mi, err := Describe(filepath.Join(abs, e.Name()), "")
		if err != nil {
			continue
		}
		models = append(models, mi)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}
