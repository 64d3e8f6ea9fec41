// Package packagemap reads the on-disk package-name-to-URI map that feeds
// internal/uri's prefix matching. Two on-disk formats are supported: the
// legacy ".packages" line format and the newer
// ".dart_tool/package_config.json" format; the format is sniffed from the
// first non-whitespace byte.
package packagemap

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Mapping is one packageName -> prefixURI entry, in file order. Order is
// behaviorally significant to internal/uri.New and must be preserved.
type Mapping struct {
	Name      string
	PrefixURI string
}

// packageConfig mirrors the subset of package_config.json this reader
// cares about.
type packageConfig struct {
	Packages []struct {
		Name           string `json:"name"`
		RootURI        string `json:"rootUri"`
		PackageURI     string `json:"packageUri"`
	} `json:"packages"`
}

// Read loads path and returns its mappings in file order.
func Read(path string) ([]Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading package map %s: %w", path, err)
	}

	trimmed := strings.TrimLeft(string(data), " \t\r\n")
	if strings.HasPrefix(trimmed, "{") {
		return readPackageConfig(data)
	}
	return readLegacy(data)
}

func readPackageConfig(data []byte) ([]Mapping, error) {
	var cfg packageConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing package_config.json: %w", err)
	}
	mappings := make([]Mapping, 0, len(cfg.Packages))
	for _, p := range cfg.Packages {
		root := strings.TrimSuffix(p.RootURI, "/")
		sub := strings.Trim(p.PackageURI, "/")
		prefix := root + "/"
		if sub != "" {
			prefix = root + "/" + sub + "/"
		}
		mappings = append(mappings, Mapping{Name: p.Name, PrefixURI: prefix})
	}
	return mappings, nil
}

func readLegacy(data []byte) ([]Mapping, error) {
	var mappings []Mapping
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, ":")
		if idx < 0 {
			continue
		}
		name := line[:idx]
		prefixURI := line[idx+1:]
		mappings = append(mappings, Mapping{Name: name, PrefixURI: prefixURI})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning package map: %w", err)
	}
	return mappings, nil
}
