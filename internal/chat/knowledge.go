// Package chat answers free-text agriculture questions from keyword rules,
// a searchable FAQ and an optional LLM fallback.
package chat

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed knowledge.yaml
var defaultKnowledge []byte

// Rule answers a question when every keyword appears in it.
type Rule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Response string   `yaml:"response"`
}

// Match reports whether every keyword is a substring of the lowercased query.
func (r Rule) Match(lowered string) bool {
	if len(r.Keywords) == 0 {
		return false
	}
	for _, kw := range r.Keywords {
		if !strings.Contains(lowered, kw) {
			return false
		}
	}
	return true
}

// FAQ is one knowledge base entry.
type FAQ struct {
	ID       string   `yaml:"id"`
	Question string   `yaml:"question"`
	Tags     []string `yaml:"tags"`
	Answer   string   `yaml:"answer"`
}

// Knowledge is the static chat content.
type Knowledge struct {
	Greeting string `yaml:"greeting"`
	Rules    []Rule `yaml:"rules"`
	FAQ      []FAQ  `yaml:"faq"`
}

// LoadKnowledge parses chat content. Rule keywords are lowercased.
func LoadKnowledge(raw []byte) (*Knowledge, error) {
	var k Knowledge
	if err := yaml.Unmarshal(raw, &k); err != nil {
		return nil, fmt.Errorf("parse chat knowledge: %w", err)
	}
	if strings.TrimSpace(k.Greeting) == "" {
		return nil, fmt.Errorf("chat knowledge has no greeting")
	}
	for i := range k.Rules {
		if len(k.Rules[i].Keywords) == 0 {
			return nil, fmt.Errorf("rule %q has no keywords", k.Rules[i].Name)
		}
		for j, kw := range k.Rules[i].Keywords {
			k.Rules[i].Keywords[j] = strings.ToLower(strings.TrimSpace(kw))
		}
	}
	seen := make(map[string]bool, len(k.FAQ))
	for _, f := range k.FAQ {
		if f.ID == "" || seen[f.ID] {
			return nil, fmt.Errorf("faq entry %q: id must be unique and non-empty", f.ID)
		}
		seen[f.ID] = true
	}
	return &k, nil
}

// DefaultKnowledge returns the built-in chat content.
func DefaultKnowledge() (*Knowledge, error) {
	return LoadKnowledge(defaultKnowledge)
}
