// Package schema supplies table-structure context for the classifier
// prompt. It introspects the connected store and ranks per-table fragments
// against the utterance; it is never part of the validated or executed
// path.
package schema

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/TFMV/parley/pkg/errors"
	"github.com/TFMV/parley/pkg/repositories"
)

// Provider returns up to k schema fragments relevant to a query.
type Provider interface {
	Retrieve(ctx context.Context, query string, k int) ([]string, error)
}

// tableFragment is one table rendered as prompt text, with the lowercased
// names kept for ranking.
type tableFragment struct {
	table   string
	columns []string
	text    string
}

type introspectProvider struct {
	repo   repositories.SchemaRepository
	cache  *fragmentCache
	logger zerolog.Logger
}

// NewProvider creates a provider that introspects through repo and caches
// the result for ttl.
func NewProvider(repo repositories.SchemaRepository, ttl time.Duration, logger zerolog.Logger) Provider {
	return &introspectProvider{
		repo:   repo,
		cache:  newFragmentCache(ttl),
		logger: logger,
	}
}

// Retrieve ranks table fragments by token overlap with the query and
// returns the top k as prompt-ready text. Ties keep introspection order.
func (p *introspectProvider) Retrieve(ctx context.Context, query string, k int) ([]string, error) {
	fragments, ok := p.cache.Get()
	if !ok {
		tables, err := p.repo.DescribeTables(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeSchemaUnavailable,
				"schema introspection failed")
		}
		fragments = buildFragments(tables)
		p.cache.Put(fragments)
		p.logger.Debug().Int("tables", len(fragments)).Msg("Schema fragments refreshed")
	}

	ranked := rankFragments(fragments, query)
	if k <= 0 || k > len(ranked) {
		k = len(ranked)
	}

	out := make([]string, 0, k)
	for _, fragment := range ranked[:k] {
		out = append(out, fragment.text)
	}
	return out, nil
}

func buildFragments(tables []repositories.TableInfo) []tableFragment {
	fragments := make([]tableFragment, 0, len(tables))
	for _, table := range tables {
		var b strings.Builder
		fmt.Fprintf(&b, "TABLE %s (\n", table.Name)
		columns := make([]string, 0, len(table.Columns))
		for i, col := range table.Columns {
			columns = append(columns, strings.ToLower(col.Name))
			b.WriteString("  ")
			b.WriteString(col.Name)
			b.WriteString(" ")
			b.WriteString(col.Type)
			if i < len(table.Columns)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString(")")
		fragments = append(fragments, tableFragment{
			table:   strings.ToLower(table.Name),
			columns: columns,
			text:    b.String(),
		})
	}
	return fragments
}

// rankFragments orders fragments by descending token overlap. Table-name
// hits count double so "orders" beats a table that merely has an "orders"
// column.
func rankFragments(fragments []tableFragment, query string) []tableFragment {
	tokens := tokenize(query)
	ranked := make([]tableFragment, len(fragments))
	copy(ranked, fragments)
	scores := make(map[string]int, len(fragments))
	for _, fragment := range ranked {
		scores[fragment.table] = fragment.overlap(tokens)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return scores[ranked[i].table] > scores[ranked[j].table]
	})
	return ranked
}

func (f tableFragment) overlap(tokens []string) int {
	score := 0
	for _, token := range tokens {
		if token == f.table {
			score += 2
			continue
		}
		for _, col := range f.columns {
			if token == col {
				score++
				break
			}
		}
	}
	return score
}

func tokenize(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}
