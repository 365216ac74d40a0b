// SPDX-License-Identifier: MPL-2.0

package libdoc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArguments is the sentinel error wrapped by InvalidArgumentsError.
var ErrInvalidArguments = errors.New("invalid argument list")

type (
	// Argument is one parameter of a keyword. The type annotation and the
	// default value are optional and distinguish "absent" from "empty", so they
	// are only reachable through Type and Default.
	Argument struct {
		// Name is the parameter identifier as written, including any "*" or
		// "**" prefix.
		Name string
		// IsStarArg marks an open-ended positional parameter (*args).
		IsStarArg bool
		// IsKeywordArg marks an open-ended named parameter (**kwargs).
		IsKeywordArg bool

		argType      string
		hasType      bool
		defaultValue string
		hasDefault   bool
	}

	// InvalidArgumentsError is returned when an argument list breaks the
	// ordering rules of the source language: at most one star-arg and one
	// keyword-arg, the keyword-arg last and the star-arg before it.
	InvalidArgumentsError struct {
		Keyword string
		Reason  string
	}
)

// NewArgument builds an Argument from its written form, inferring the star
// flags from the "*" / "**" prefix.
func NewArgument(name string) Argument {
	name = strings.TrimSpace(name)
	kw := strings.HasPrefix(name, "**")
	return Argument{
		Name:         name,
		IsKeywordArg: kw,
		IsStarArg:    !kw && strings.HasPrefix(name, "*"),
	}
}

// WithType returns a copy of a with the given type annotation.
func (a Argument) WithType(t string) Argument {
	a.argType, a.hasType = t, true
	return a
}

// WithDefault returns a copy of a with the given default literal.
func (a Argument) WithDefault(d string) Argument {
	a.defaultValue, a.hasDefault = d, true
	return a
}

// Type returns the type annotation and whether one is present.
func (a Argument) Type() (string, bool) { return a.argType, a.hasType }

// Default returns the default literal and whether one is present.
func (a Argument) Default() (string, bool) { return a.defaultValue, a.hasDefault }

// BareName returns Name without star prefixes.
func (a Argument) BareName() string {
	return strings.TrimLeft(a.Name, "*")
}

// String renders the argument the way it would appear in a signature, e.g.
// "a: int=10" or "**kwargs".
func (a Argument) String() string {
	var sb strings.Builder
	sb.WriteString(a.Name)
	if a.hasType {
		sb.WriteString(": ")
		sb.WriteString(a.argType)
	}
	if a.hasDefault {
		sb.WriteString("=")
		sb.WriteString(a.defaultValue)
	}
	return sb.String()
}

// Error implements the error interface for InvalidArgumentsError.
func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("keyword %q: %s", e.Keyword, e.Reason)
}

// Unwrap returns ErrInvalidArguments for errors.Is() compatibility.
func (e *InvalidArgumentsError) Unwrap() error { return ErrInvalidArguments }

// ValidateArguments checks the star-arg/keyword-arg ordering invariant for the
// argument list of the named keyword.
func ValidateArguments(keyword string, args []Argument) error {
	star, kw := -1, -1
	for i, a := range args {
		switch {
		case a.IsStarArg && a.IsKeywordArg:
			return &InvalidArgumentsError{Keyword: keyword, Reason: fmt.Sprintf("argument %q is both star-arg and keyword-arg", a.Name)}
		case a.IsStarArg:
			if star >= 0 {
				return &InvalidArgumentsError{Keyword: keyword, Reason: "more than one star-arg"}
			}
			star = i
		case a.IsKeywordArg:
			if kw >= 0 {
				return &InvalidArgumentsError{Keyword: keyword, Reason: "more than one keyword-arg"}
			}
			kw = i
		}
	}
	// Named-only arguments may sit between the star-arg and the keyword-arg,
	// as in `def f(*args, flag, **kw)`, so only the keyword-arg position is fixed.
	if kw >= 0 && kw != len(args)-1 {
		return &InvalidArgumentsError{Keyword: keyword, Reason: fmt.Sprintf("keyword-arg %q must be last", args[kw].Name)}
	}
	return nil
}
