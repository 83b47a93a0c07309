// Package edition models plugin edition tiers and gating checks.
package edition

import (
	"errors"
	"fmt"
	"strings"
)

// Edition is a plugin tier.
type Edition string

const (
	Standard Edition = "standard"
	Lite     Edition = "lite"
	Pro      Edition = "pro"
)

var (
	// ErrUnknownEdition is returned when parsing an unrecognised edition handle.
	ErrUnknownEdition = errors.New("unknown edition")
	// ErrUnknownOperator is returned by Compare for unsupported operators.
	ErrUnknownOperator = errors.New("unknown comparison operator")
	// ErrEditionRequired signals that the current edition is below a requirement.
	ErrEditionRequired = errors.New("edition required")
)

var order = []Edition{Standard, Lite, Pro}

// All returns every edition from lowest to highest tier.
func All() []Edition {
	return append([]Edition(nil), order...)
}

// Parse resolves an edition handle case-insensitively.
func Parse(s string) (Edition, error) {
	e := Edition(strings.ToLower(strings.TrimSpace(s)))
	if e.Rank() < 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownEdition, s)
	}
	return e, nil
}

// Rank is the tier index, or -1 for unknown editions.
func (e Edition) Rank() int {
	for i, o := range order {
		if o == e {
			return i
		}
	}
	return -1
}

// Is reports whether e is exactly other.
func (e Edition) Is(other Edition) bool { return e == other }

// AtLeast reports whether e is at or above other. Unknown editions never qualify.
func (e Edition) AtLeast(other Edition) bool {
	r, o := e.Rank(), other.Rank()
	return r >= 0 && o >= 0 && r >= o
}

// Compare evaluates "e op other" for the operators = == != < <= > >=.
func (e Edition) Compare(other Edition, op string) (bool, error) {
	a, b := e.Rank(), other.Rank()
	if a < 0 {
		return false, fmt.Errorf("%w: %q", ErrUnknownEdition, e)
	}
	if b < 0 {
		return false, fmt.Errorf("%w: %q", ErrUnknownEdition, other)
	}
	switch op {
	case "=", "==":
		return a == b, nil
	case "!=":
		return a != b, nil
	case "<":
		return a < b, nil
	case "<=":
		return a <= b, nil
	case ">":
		return a > b, nil
	case ">=":
		return a >= b, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownOperator, op)
	}
}

// String returns the edition handle.
func (e Edition) String() string { return string(e) }

// Label is the display name ("Pro").
func (e Edition) Label() string {
	if e == "" {
		return ""
	}
	return strings.ToUpper(string(e[:1])) + string(e[1:])
}

// Gate checks feature requirements against the installed edition.
type Gate struct {
	Current Edition
}

// Allows reports whether the current edition satisfies required.
func (g Gate) Allows(required Edition) bool {
	return g.Current.AtLeast(required)
}

// Require returns ErrEditionRequired when the current edition is too low.
func (g Gate) Require(required Edition) error {
	if g.Allows(required) {
		return nil
	}
	return fmt.Errorf("%w: %s (current %s)", ErrEditionRequired, required.Label(), g.Current.Label())
}
