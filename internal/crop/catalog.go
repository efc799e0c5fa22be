// Package crop holds the crop reference catalog and the ranking pipeline that
// fuses model suitability, weather and market signals into a recommendation.
package crop

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"github.com/agrimind/agrimind/internal/apperr"
)

var (
	//go:embed metadata.yaml
	defaultMetadata []byte

	//go:embed yields.csv
	defaultYields []byte

	//go:embed districts.yaml
	defaultDistricts []byte
)

// ErrUnknownCrop is returned for crop names missing from the catalog.
var ErrUnknownCrop = fmt.Errorf("unknown crop: %w", apperr.ErrNotFound)

// Stage is one named growth phase lasting Days days.
type Stage struct {
	Name string
	Days int
}

// Stages is an ordered list of growth stages. In YAML it is written as a
// mapping of stage name to length, and document order is preserved.
type Stages []Stage

// UnmarshalYAML decodes a mapping node, keeping key order.
func (s *Stages) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: growth_stages must be a mapping", node.Line)
	}
	out := make(Stages, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var days int
		if err := node.Content[i+1].Decode(&days); err != nil {
			return fmt.Errorf("line %d: stage %q: %w", node.Content[i+1].Line, node.Content[i].Value, err)
		}
		out = append(out, Stage{Name: node.Content[i].Value, Days: days})
	}
	*s = out
	return nil
}

// Total returns the summed stage length.
func (s Stages) Total() int {
	total := 0
	for _, st := range s {
		total += st.Days
	}
	return total
}

// Metadata is the static reference data for one crop.
type Metadata struct {
	Name                   string           `yaml:"-"`
	DurationDays           int              `yaml:"duration_days"`
	GrowthStages           Stages           `yaml:"growth_stages"`
	RecommendedFertilizers map[string][]int `yaml:"recommended_fertilizers"`
}

func (m *Metadata) validate() error {
	if m.DurationDays <= 0 {
		return fmt.Errorf("crop %q: duration_days must be positive", m.Name)
	}
	if len(m.GrowthStages) == 0 {
		return fmt.Errorf("crop %q: no growth stages", m.Name)
	}
	for _, st := range m.GrowthStages {
		if st.Days <= 0 {
			return fmt.Errorf("crop %q: stage %q must last at least one day", m.Name, st.Name)
		}
	}
	if total := m.GrowthStages.Total(); total != m.DurationDays {
		return fmt.Errorf("crop %q: stages sum to %d days, duration is %d", m.Name, total, m.DurationDays)
	}
	for fert, days := range m.RecommendedFertilizers {
		for _, d := range days {
			if d < 0 {
				return fmt.Errorf("crop %q: fertilizer %q has negative day %d", m.Name, fert, d)
			}
		}
	}
	return nil
}

type yieldRow struct {
	Crop           string  `csv:"crop"`
	YieldKgPerAcre float64 `csv:"yield_kg_per_acre"`
}

// Catalog is the read-only crop reference data loaded once at startup.
type Catalog struct {
	crops     map[string]*Metadata
	yields    map[string]float64
	districts map[string][]string
}

// LoadCatalog parses crop metadata (YAML), base yields (CSV) and district
// crop lists (YAML). Keys are normalised to lowercase.
func LoadCatalog(metadataYAML, yieldsCSV, districtsYAML []byte) (*Catalog, error) {
	var raw map[string]*Metadata
	if err := yaml.Unmarshal(metadataYAML, &raw); err != nil {
		return nil, fmt.Errorf("parse crop metadata: %w", err)
	}

	c := &Catalog{
		crops:     make(map[string]*Metadata, len(raw)),
		yields:    make(map[string]float64),
		districts: make(map[string][]string),
	}
	for name, meta := range raw {
		if meta == nil {
			return nil, fmt.Errorf("crop %q has no metadata", name)
		}
		key := normalize(name)
		meta.Name = key
		if err := meta.validate(); err != nil {
			return nil, err
		}
		c.crops[key] = meta
	}

	var rows []yieldRow
	if err := gocsv.UnmarshalBytes(yieldsCSV, &rows); err != nil {
		return nil, fmt.Errorf("parse yields: %w", err)
	}
	for _, r := range rows {
		if r.YieldKgPerAcre <= 0 {
			return nil, fmt.Errorf("yield for %q must be positive", r.Crop)
		}
		c.yields[normalize(r.Crop)] = r.YieldKgPerAcre
	}

	if len(districtsYAML) > 0 {
		var districts map[string][]string
		if err := yaml.Unmarshal(districtsYAML, &districts); err != nil {
			return nil, fmt.Errorf("parse districts: %w", err)
		}
		for d, crops := range districts {
			c.districts[normalize(d)] = crops
		}
	}

	return c, nil
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return LoadCatalog(defaultMetadata, defaultYields, defaultDistricts)
}

// Lookup returns metadata for name, matched case-insensitively.
func (c *Catalog) Lookup(name string) (*Metadata, error) {
	meta, ok := c.crops[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrUnknownCrop)
	}
	return meta, nil
}

// Labels returns all crop names in the catalog, sorted.
func (c *Catalog) Labels() []string {
	out := make([]string, 0, len(c.crops))
	for name := range c.crops {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// BaseYield returns the base yield (kg/acre) for a crop label.
func (c *Catalog) BaseYield(label string) (float64, bool) {
	y, ok := c.yields[normalize(label)]
	return y, ok
}

// LocalCrops returns crops commonly grown in district, or nil.
func (c *Catalog) LocalCrops(district string) []string {
	crops := c.districts[normalize(district)]
	if crops == nil {
		return nil
	}
	return append([]string(nil), crops...)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
