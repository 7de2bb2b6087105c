package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LookupNormalizer folds lookup keys so equality search ignores casing.
type LookupNormalizer interface {
	NormalizeName(name string) string
	NormalizeEmail(email string) string
}

// UpperInvariantNormalizer upper-cases keys with culture-independent rules.
type UpperInvariantNormalizer struct{}

// NormalizeName implements LookupNormalizer.
func (UpperInvariantNormalizer) NormalizeName(name string) string {
	return upperInvariant(name)
}

// NormalizeEmail implements LookupNormalizer.
func (UpperInvariantNormalizer) NormalizeEmail(email string) string {
	return upperInvariant(email)
}

func upperInvariant(s string) string {
	if s == "" {
		return ""
	}
	// cases.Caser is stateful; a fresh one per call keeps this goroutine safe.
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}
