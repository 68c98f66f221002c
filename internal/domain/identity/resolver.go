// Package identity maps upstream competitor spellings to stable CompetitorIDs.
//
// Two providers rarely agree on how a name is written ("Kimi Räikkönen" vs
// "Kimi RAIKKONEN"). Names are first reduced to a match key (accents stripped,
// case folded, whitespace collapsed); an optional alias table maps match keys to
// a canonical ID. Without an alias the ID is the title-cased match key.
package identity

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/okian/gridelo/internal/domain/model"
	"github.com/okian/gridelo/pkg/logger"
)

// aliasFile is the on-disk alias table format:
//
//	aliases:
//	  Kimi Raikkonen: ["Kimi Räikkönen", "K. Raikkonen"]
type aliasFile struct {
	Aliases map[string][]string `yaml:"aliases"`
}

// table maps match keys to canonical IDs.
type table map[string]model.CompetitorID

// Resolver resolves competitor names. It is safe for concurrent use; the alias
// table is swapped atomically on reload.
type Resolver struct {
	log   logger.Logger
	table atomic.Pointer[table]
}

// NewResolver creates a Resolver with an empty alias table.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{log: logger.Nop()}
	empty := table{}
	r.table.Store(&empty)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// MatchKey reduces name to its comparison form: NFD decomposition with combining
// marks removed, Unicode case folding, and single spaces between words.
func MatchKey(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, name)
	if err != nil {
		stripped = name
	}
	return strings.Join(strings.Fields(cases.Fold().String(stripped)), " ")
}

// Resolve returns the CompetitorID for name, or "" when name is blank.
func (r *Resolver) Resolve(name string) model.CompetitorID {
	key := MatchKey(name)
	if key == "" {
		return ""
	}
	if id, ok := (*r.table.Load())[key]; ok {
		return id
	}
	// Casers keep state, so each call gets its own.
	return model.CompetitorID(cases.Title(language.Und).String(key))
}

// Aliases returns the number of match keys covered by the alias table.
func (r *Resolver) Aliases() int { return len(*r.table.Load()) }

// LoadFile replaces the alias table with the contents of path. On error the
// previous table stays active.
func (r *Resolver) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrReadAliases, err)
	}
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidAliases, path, err)
	}
	t, err := buildTable(f.Aliases)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	r.table.Store(t)
	return nil
}

func buildTable(aliases map[string][]string) (*table, error) {
	t := make(table, len(aliases)*2)
	for canonical, spellings := range aliases {
		id := model.CompetitorID(strings.TrimSpace(canonical))
		if id == "" {
			return nil, fmt.Errorf("%w: empty canonical id", ErrInvalidAliases)
		}
		for _, s := range append([]string{canonical}, spellings...) {
			key := MatchKey(s)
			if key == "" {
				continue
			}
			if prev, ok := t[key]; ok && prev != id {
				return nil, fmt.Errorf("%w: %q maps to both %q and %q", ErrInvalidAliases, s, prev, id)
			}
			t[key] = id
		}
	}
	return &t, nil
}
