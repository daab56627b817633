package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/TFMV/parley/pkg/errors"
)

// DefaultRowLimit caps result size when a query carries no LIMIT clause.
const DefaultRowLimit = 100

var (
	// Hard block anything that can mutate the database. Whole-word,
	// case-insensitive, anywhere in the text. A blunt denylist, not a
	// parser: it intentionally errs toward over-rejection.
	forbiddenKeywordPattern = regexp.MustCompile(`(?i)\b(insert|update|delete|drop|alter|truncate|create|replace|grant|revoke|attach|detach|pragma)\b`)

	// Standalone LIMIT token, used to avoid appending a second row cap.
	limitClausePattern = regexp.MustCompile(`(?i)\blimit\b`)
)

type sqlValidator struct {
	rowLimit int
}

// NewSQLValidator creates the safety validator with the given row cap.
// Non-positive caps fall back to DefaultRowLimit.
func NewSQLValidator(rowLimit int) SQLValidator {
	if rowLimit <= 0 {
		rowLimit = DefaultRowLimit
	}
	return &sqlValidator{rowLimit: rowLimit}
}

// RowLimit returns the configured row cap.
func (v *sqlValidator) RowLimit() int {
	return v.rowLimit
}

// Validate applies the safety rules in order, first failure wins, and
// returns the normalized, bounded SQL ready for execution:
//
//  1. reject empty or whitespace-only input
//  2. the trimmed, lower-cased text must start with "select"
//  3. reject any forbidden keyword as a whole word
//  4. reject ";" anywhere except as the optional final character
//  5. strip a single trailing ";" and append "LIMIT <cap>" when the text
//     has no standalone limit token
func (v *sqlValidator) Validate(sql string) (string, error) {
	trimmed := strings.TrimSpace(sql)
	if trimmed == "" {
		return "", errors.ErrEmptyQuery
	}

	lowered := strings.ToLower(trimmed)
	if !strings.HasPrefix(lowered, "select") {
		return "", errors.ErrNotASelect
	}

	if forbiddenKeywordPattern.MatchString(trimmed) {
		return "", errors.ErrForbiddenKeyword
	}

	if strings.Contains(trimmed[:len(trimmed)-1], ";") {
		return "", errors.ErrMultipleStatements
	}

	normalized := strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	if !limitClausePattern.MatchString(normalized) {
		normalized = fmt.Sprintf("%s LIMIT %d", normalized, v.rowLimit)
	}

	return normalized, nil
}
