// Package rules holds the escalation and post-processing decisions of the
// intake pipeline. Every function here is pure: no I/O, no logging, no clock.
// An Engine is immutable after construction and safe for concurrent use.
//
// The tables (keywords, transfer types, correction map, notices) come from an
// embedded YAML document; an optional file can be layered over it at startup.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultTables []byte

// Tables is the YAML shape of every rule table.
type Tables struct {
	TextTransferKeywords []string `yaml:"text_transfer_keywords"`
	TextExemptKeywords   []string `yaml:"text_transfer_exempt_keywords"`
	TransferProductTypes []string `yaml:"transfer_product_types"`
	NameplateType        string   `yaml:"nameplate_type"`
	InStockLabel         string   `yaml:"in_stock_label"`
	OutOfStockLabel      string   `yaml:"out_of_stock_label"`
	NoLinkURL            string   `yaml:"no_link_url"`
	RecognitionErrors    []string `yaml:"recognition_errors"`

	SecurityNotices    []string   `yaml:"security_notices"`
	SystemPhrases      []string   `yaml:"system_phrases"`
	HandoffPhrasePairs [][]string `yaml:"handoff_phrase_pairs"`
	EmoticonPrefix     string     `yaml:"emoticon_prefix"`
	EmoticonMaxRunes   int        `yaml:"emoticon_max_runes"`
	SentenceDelimiter  string     `yaml:"sentence_delimiter"`

	TestUsers []string `yaml:"test_users"`

	Correction          map[string]string `yaml:"correction"`
	ProductTypeLabels   map[string]string `yaml:"product_type_labels"`
	ProductStatusLabels map[string]string `yaml:"product_status_labels"`
}

// Option customizes an Engine at construction time.
type Option func(*Tables)

// WithTestUsers adds buyer ids or nicks to the test-user list.
func WithTestUsers(ids ...string) Option {
	return func(t *Tables) {
		for _, id := range ids {
			if s := strings.TrimSpace(id); s != "" {
				t.TestUsers = append(t.TestUsers, s)
			}
		}
	}
}

// Engine evaluates the rule tables.
type Engine struct {
	t             Tables
	transferTypes map[string]struct{}
	notices       map[string]struct{}
	testUsers     map[string]struct{}
	recogErrors   map[string]struct{}
}

// DefaultTables decodes the embedded rule tables.
func DefaultTables() (Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(defaultTables, &t); err != nil {
		return Tables{}, fmt.Errorf("decode built-in rules: %w", err)
	}
	return t, nil
}

// Default returns an Engine over the embedded tables. It panics only if the
// embedded document is malformed, which the package tests guard against.
func Default(opts ...Option) *Engine {
	t, err := DefaultTables()
	if err != nil {
		panic(err)
	}
	return New(t, opts...)
}

// Load returns an Engine over the embedded tables with the YAML file at path
// layered on top. Keys present in the file replace list values and extend map
// values. An empty path yields the defaults.
func Load(path string, opts ...Option) (*Engine, error) {
	t, err := DefaultTables()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read rules file: %w", err)
		}
		if err := yaml.Unmarshal(b, &t); err != nil {
			return nil, fmt.Errorf("decode rules file %s: %w", path, err)
		}
	}
	return New(t, opts...), nil
}

// New builds an Engine from explicit tables.
func New(t Tables, opts ...Option) *Engine {
	for _, o := range opts {
		o(&t)
	}
	if t.SentenceDelimiter == "" {
		t.SentenceDelimiter = "。"
	}
	if t.EmoticonMaxRunes <= 0 {
		t.EmoticonMaxRunes = 6
	}
	return &Engine{
		t:             t,
		transferTypes: toSet(t.TransferProductTypes),
		notices:       toSet(t.SecurityNotices),
		testUsers:     toSet(t.TestUsers),
		recogErrors:   toSet(t.RecognitionErrors),
	}
}

// Tables returns a copy of the tables in effect.
func (e *Engine) Tables() Tables { return e.t }

// IsTestUser reports whether any of the given identities is a test user.
func (e *Engine) IsTestUser(ids ...string) bool {
	for _, id := range ids {
		if _, ok := e.testUsers[id]; ok && id != "" {
			return true
		}
	}
	return false
}

// IsSystemMessage reports whether body is a platform service or handoff
// notice rather than something the buyer typed.
func (e *Engine) IsSystemMessage(body string) bool {
	for _, p := range e.t.SystemPhrases {
		if p != "" && strings.Contains(body, p) {
			return true
		}
	}
	for _, pair := range e.t.HandoffPhrasePairs {
		if len(pair) == 0 {
			continue
		}
		all := true
		for _, p := range pair {
			if !strings.Contains(body, p) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

func toSet(xs []string) map[string]struct{} {
	m := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		m[x] = struct{}{}
	}
	return m
}
