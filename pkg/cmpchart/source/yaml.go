package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/komsit37/cmpchart/pkg/cmpchart/types"
)

// YAMLSource loads prices from a YAML or JSON file, or from every such
// file under a directory.
//
// Each document maps tickers to [time, price] pairs:
//
//	AAPL:
//	  - [2024-01-02, 185.64]
//	  - [2024-01-03, 184.25]
type YAMLSource struct{}

// Load expects spec to be a string filepath.
func (YAMLSource) Load(ctx context.Context, spec any) (*types.RawPriceSet, error) {
	path, ok := spec.(string)
	if !ok || strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("yaml source expects a filepath")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return readFile(path, nil)
	}

	// Directory: merge files in path order. A ticker seen again keeps its
	// first position and takes the later data.
	var files []string
	err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(d.Name())) {
		case ".yaml", ".yml", ".json":
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)

	all := types.NewRawPriceSet(len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := readFile(f, all); err != nil {
			return nil, err
		}
	}
	return all, nil
}

func readFile(path string, into *types.RawPriceSet) (*types.RawPriceSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if into == nil {
		return raw, nil
	}
	for ticker, points := range raw.All() {
		into.Set(ticker, points)
	}
	return into, nil
}

func parseYAML(data []byte) (*types.RawPriceSet, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	raw := types.NewRawPriceSet(0)
	// empty document: no tickers
	if len(doc.Content) == 0 {
		return raw, nil
	}
	if err := doc.Decode(raw); err != nil {
		return nil, err
	}
	return raw, nil
}
