package version

import (
	"embed"
	"errors"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed aliases/*.yaml
var aliasFS embed.FS

// ErrAliasConflict is returned when an alias table cannot be inverted.
var ErrAliasConflict = errors.New("alias table conflict")

// AliasTable is the on-disk form of a legacy name table.
type AliasTable struct {
	Protocol   string          `yaml:"protocol"`
	Properties []PropertyAlias `yaml:"properties"`
}

// PropertyAlias maps one legacy property name, and its item names, to the
// current spelling.
type PropertyAlias struct {
	Legacy  string            `yaml:"legacy"`
	Current string            `yaml:"current"`
	Items   map[string]string `yaml:"items"`
}

// propertyMapping is the indexed, bidirectional form of a PropertyAlias.
type propertyMapping struct {
	legacy    string
	current   string
	toCurrent map[string]string
	toLegacy  map[string]string
}

// Translator rewrites property and item names between the in-process
// spelling and the spelling of a peer's negotiated protocol. Only Legacy
// peers see rewritten names; every other version passes through.
type Translator struct {
	byLegacy  map[string]*propertyMapping
	byCurrent map[string]*propertyMapping
}

// NewTranslator indexes an alias table. Tables whose legacy or current
// names collide are rejected, so translation is always an involution.
func NewTranslator(table AliasTable) (*Translator, error) {
	t := &Translator{
		byLegacy:  make(map[string]*propertyMapping, len(table.Properties)),
		byCurrent: make(map[string]*propertyMapping, len(table.Properties)),
	}
	for _, pa := range table.Properties {
		if pa.Legacy == "" || pa.Current == "" {
			return nil, fmt.Errorf("%w: empty property name in row %q/%q", ErrAliasConflict, pa.Legacy, pa.Current)
		}
		if _, dup := t.byLegacy[pa.Legacy]; dup {
			return nil, fmt.Errorf("%w: legacy property %s listed twice", ErrAliasConflict, pa.Legacy)
		}
		if prev, dup := t.byCurrent[pa.Current]; dup {
			return nil, fmt.Errorf("%w: %s and %s both map to %s", ErrAliasConflict, prev.legacy, pa.Legacy, pa.Current)
		}
		m := &propertyMapping{
			legacy:    pa.Legacy,
			current:   pa.Current,
			toCurrent: make(map[string]string, len(pa.Items)),
			toLegacy:  make(map[string]string, len(pa.Items)),
		}
		for legacyItem, currentItem := range pa.Items {
			if prev, dup := m.toLegacy[currentItem]; dup {
				return nil, fmt.Errorf("%w: %s.%s and %s.%s both map to %s", ErrAliasConflict,
					pa.Legacy, prev, pa.Legacy, legacyItem, currentItem)
			}
			m.toCurrent[legacyItem] = currentItem
			m.toLegacy[currentItem] = legacyItem
		}
		t.byLegacy[pa.Legacy] = m
		t.byCurrent[pa.Current] = m
	}
	return t, nil
}

// LoadTranslator parses a YAML alias table.
func LoadTranslator(data []byte) (*Translator, error) {
	var table AliasTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parsing alias table: %w", err)
	}
	return NewTranslator(table)
}

var (
	defaultOnce       sync.Once
	defaultTranslator *Translator
	defaultErr        error
)

// Default returns the translator for the embedded 1.7 alias table. The
// table is parsed once and cached.
func Default() *Translator {
	defaultOnce.Do(func() {
		data, err := aliasFS.ReadFile("aliases/legacy.yaml")
		if err != nil {
			defaultErr = err
			return
		}
		defaultTranslator, defaultErr = LoadTranslator(data)
	})
	if defaultErr != nil {
		// The table is compiled in; failing here is a build defect.
		panic(fmt.Sprintf("version: embedded alias table: %v", defaultErr))
	}
	return defaultTranslator
}

// PropertyName returns the spelling of the current property name for a
// peer speaking v.
func (t *Translator) PropertyName(v Protocol, current string) string {
	if v != Legacy || t == nil {
		return current
	}
	if m, ok := t.byCurrent[current]; ok {
		return m.legacy
	}
	return current
}

// ItemName returns the spelling of an item of the current property
// currentProperty for a peer speaking v.
func (t *Translator) ItemName(v Protocol, currentProperty, current string) string {
	if v != Legacy || t == nil {
		return current
	}
	if m, ok := t.byCurrent[currentProperty]; ok {
		if legacy, ok := m.toLegacy[current]; ok {
			return legacy
		}
	}
	return current
}

// CurrentPropertyName maps a property name received from a peer speaking v
// to the current spelling.
func (t *Translator) CurrentPropertyName(v Protocol, name string) string {
	if v != Legacy || t == nil {
		return name
	}
	if m, ok := t.byLegacy[name]; ok {
		return m.current
	}
	return name
}

// CurrentItemName maps an item name received from a peer speaking v to the
// current spelling. currentProperty must already be translated.
func (t *Translator) CurrentItemName(v Protocol, currentProperty, name string) string {
	if v != Legacy || t == nil {
		return name
	}
	if m, ok := t.byCurrent[currentProperty]; ok {
		if current, ok := m.toCurrent[name]; ok {
			return current
		}
	}
	return name
}

// Aliases returns the current names of every aliased property.
func (t *Translator) Aliases() []string {
	out := make([]string, 0, len(t.byCurrent))
	for name := range t.byCurrent {
		out = append(out, name)
	}
	return out
}
