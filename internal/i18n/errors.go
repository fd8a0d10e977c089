package i18n

import (
	"fmt"
	"strings"
)

// Problem is a single locale defect.
type Problem struct {
	Lang   Lang
	Detail string
}

func (p Problem) String() string {
	if p.Lang == "" {
		return p.Detail
	}
	return fmt.Sprintf("%s: %s", p.Lang, p.Detail)
}

// ValidationError is returned when the locale data breaks the key-set or
// slide-length invariants.
type ValidationError struct {
	problems []Problem
}

func (e *ValidationError) add(lang Lang, detail string) {
	e.problems = append(e.problems, Problem{Lang: lang, Detail: detail})
}

// HasProblems reports whether any defect was recorded.
func (e *ValidationError) HasProblems() bool { return e != nil && len(e.problems) > 0 }

// Problems returns a copy of the recorded defects.
func (e *ValidationError) Problems() []Problem {
	out := make([]Problem, len(e.problems))
	copy(out, e.problems)
	return out
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.problems))
	for _, p := range e.problems {
		parts = append(parts, p.String())
	}
	return fmt.Sprintf("locale validation failed: [%s]", strings.Join(parts, "; "))
}
