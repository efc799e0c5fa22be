package model

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed encoders.yaml
var defaultEncoders []byte

// Match describes how Encode resolved a value.
type Match string

const (
	// MatchExact means the value was a known class.
	MatchExact Match = "exact"
	// MatchCaseInsensitive means the value matched a class after trimming and lowercasing.
	MatchCaseInsensitive Match = "case_insensitive"
	// MatchDefault means nothing matched and the default index 0 was used.
	MatchDefault Match = "default_index"
)

// Fallback reports whether the match was an encoding fallback rather than exact.
func (m Match) Fallback() bool {
	return m != MatchExact
}

// LabelEncoder maps categorical values to the integer indices a model was trained on.
// Classes are kept in training order; index i encodes Classes()[i].
type LabelEncoder struct {
	name    string
	classes []string
	exact   map[string]int
	folded  map[string]int
}

// NewLabelEncoder builds an encoder over classes. classes must be non-empty.
func NewLabelEncoder(name string, classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, fmt.Errorf("encoder %q has no classes", name)
	}
	e := &LabelEncoder{
		name:    name,
		classes: append([]string(nil), classes...),
		exact:   make(map[string]int, len(classes)),
		folded:  make(map[string]int, len(classes)),
	}
	for i, c := range classes {
		if _, dup := e.exact[c]; dup {
			return nil, fmt.Errorf("encoder %q has duplicate class %q", name, c)
		}
		e.exact[c] = i
		key := fold(c)
		if _, seen := e.folded[key]; !seen {
			e.folded[key] = i
		}
	}
	return e, nil
}

// Name returns the encoder name used in logs.
func (e *LabelEncoder) Name() string {
	return e.name
}

// Encode resolves value: exact match, then trimmed case-insensitive match,
// then index 0. It never fails.
func (e *LabelEncoder) Encode(value string) (int, Match) {
	if i, ok := e.exact[value]; ok {
		return i, MatchExact
	}
	if i, ok := e.folded[fold(value)]; ok {
		return i, MatchCaseInsensitive
	}
	return 0, MatchDefault
}

// Decode returns the class at index i.
func (e *LabelEncoder) Decode(i int) (string, error) {
	if i < 0 || i >= len(e.classes) {
		return "", fmt.Errorf("encoder %q: class index %d out of range [0,%d)", e.name, i, len(e.classes))
	}
	return e.classes[i], nil
}

// Classes returns a copy of the known classes.
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}

func fold(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Encoders are the categorical encoders used by the fertilizer model.
type Encoders struct {
	Soil       *LabelEncoder
	Crop       *LabelEncoder
	Fertilizer *LabelEncoder
}

type encodersFile struct {
	SoilType   []string `yaml:"soil_type"`
	CropType   []string `yaml:"crop_type"`
	Fertilizer []string `yaml:"fertilizer"`
}

// LoadEncoders reads encoder classes from path, or the built-in classes when
// path is empty. A missing or invalid file wraps ErrModelUnavailable.
func LoadEncoders(path string) (*Encoders, error) {
	raw := defaultEncoders
	if path != "" {
		b, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("encoder file %s not found: %w", path, ErrModelUnavailable)
		}
		if err != nil {
			return nil, fmt.Errorf("read encoder file: %v: %w", err, ErrModelUnavailable)
		}
		raw = b
	}
	return ParseEncoders(raw)
}

// ParseEncoders parses the YAML encoder document.
func ParseEncoders(raw []byte) (*Encoders, error) {
	var f encodersFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse encoders: %v: %w", err, ErrModelUnavailable)
	}

	soil, err := NewLabelEncoder("soil_type", f.SoilType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	crop, err := NewLabelEncoder("crop_type", f.CropType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	fert, err := NewLabelEncoder("fertilizer", f.Fertilizer)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	return &Encoders{Soil: soil, Crop: crop, Fertilizer: fert}, nil
}
