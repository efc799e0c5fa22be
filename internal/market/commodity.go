package market

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed commodities.yaml
var defaultCommodities []byte

// CommodityMap maps crop labels to Agmarknet commodity names.
// Keys are lowercase and trimmed.
type CommodityMap map[string]string

// LoadCommodityMap parses a YAML mapping of crop label to commodity name.
func LoadCommodityMap(raw []byte) (CommodityMap, error) {
	var parsed map[string]string
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse commodity map: %w", err)
	}
	m := make(CommodityMap, len(parsed))
	for label, commodity := range parsed {
		m[normalize(label)] = strings.TrimSpace(commodity)
	}
	return m, nil
}

// DefaultCommodityMap returns the built-in mapping.
func DefaultCommodityMap() CommodityMap {
	m, err := LoadCommodityMap(defaultCommodities)
	if err != nil {
		panic(err)
	}
	return m
}

// Commodity returns the commodity for a crop label, or the trimmed label
// itself when it is not mapped.
func (m CommodityMap) Commodity(label string) string {
	if c, ok := m[normalize(label)]; ok {
		return c
	}
	return strings.TrimSpace(label)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
