// Package fallback holds the canned answers served when no live service
// produces one.
package fallback

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"wisdom-core/internal/domain/entity"
)

//go:embed table.yaml
var embeddedTable []byte

type entries map[entity.Language]map[entity.Category]string

// Table is a language -> category -> text mapping. Lookups never fail:
// a missing category falls back to the language's default entry and a
// missing language falls back to english. Safe for concurrent use; Replace
// swaps the whole mapping atomically.
type Table struct {
	data atomic.Pointer[entries]
}

// Default returns the table compiled into the binary.
func Default() *Table {
	t, err := Parse(embeddedTable)
	if err != nil {
		panic(fmt.Sprintf("fallback: embedded table is invalid: %v", err))
	}
	return t
}

// Load reads a YAML table from path.
func Load(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fallback table: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a YAML table.
func Parse(raw []byte) (*Table, error) {
	e, err := decode(raw)
	if err != nil {
		return nil, err
	}
	t := &Table{}
	t.data.Store(&e)
	return t, nil
}

func decode(raw []byte) (entries, error) {
	var doc map[string]map[string]string
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse fallback table: %w", err)
	}

	e := make(entries, len(doc))
	for lang, cats := range doc {
		l := entity.Language(strings.ToLower(lang))
		e[l] = make(map[entity.Category]string, len(cats))
		for cat, text := range cats {
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			e[l][entity.Category(strings.ToLower(cat))] = text
		}
	}

	if e[entity.LanguageEnglish][entity.CategoryDefault] == "" {
		return nil, fmt.Errorf("fallback table: english.default is required")
	}
	return e, nil
}

// Replace validates raw and swaps it in. On error the current table is kept.
func (t *Table) Replace(raw []byte) error {
	e, err := decode(raw)
	if err != nil {
		return err
	}
	t.data.Store(&e)
	return nil
}

// Lookup returns the canned text for (language, category).
func (t *Table) Lookup(language entity.Language, category entity.Category) string {
	e := *t.data.Load()

	cats, ok := e[language]
	if !ok {
		cats = e[entity.LanguageEnglish]
	}
	if text, ok := cats[category]; ok {
		return text
	}
	if text, ok := cats[entity.CategoryDefault]; ok {
		return text
	}
	// A language present without its own default entry.
	english := e[entity.LanguageEnglish]
	if text, ok := english[category]; ok {
		return text
	}
	return english[entity.CategoryDefault]
}

// Languages lists the languages the table has entries for.
func (t *Table) Languages() []entity.Language {
	e := *t.data.Load()
	out := make([]entity.Language, 0, len(e))
	for l := range e {
		out = append(out, l)
	}
	return out
}
