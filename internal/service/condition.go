package service

import (
	"errors"
	"regexp"
	"strings"
)

// DefaultCondition is assumed when the client sends no condition.
const DefaultCondition = "diabetes"

const maxConditionLength = 50

// Letters, digits, spaces, underscores and hyphens only.
var conditionPattern = regexp.MustCompile(`^[a-zA-Z0-9_\s-]+$`)

var ErrInvalidCondition = errors.New("invalid medical condition")

// NormalizeCondition validates a submitted medical condition and
// applies the default when it is empty. Submitting nothing behaves
// identically to submitting the default condition.
func NormalizeCondition(condition string) (string, error) {
	if condition == "" {
		return DefaultCondition, nil
	}
	if len(condition) > maxConditionLength || !conditionPattern.MatchString(condition) {
		return "", ErrInvalidCondition
	}
	return condition, nil
}

// FormatCondition renders a condition token for display:
// "kidney_disease" becomes "Kidney Disease".
func FormatCondition(condition string) string {
	words := strings.FieldsFunc(condition, func(r rune) bool {
		return r == '_' || r == ' ' || r == '-'
	})
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
