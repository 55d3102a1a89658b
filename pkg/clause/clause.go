// Package clause implements the boolean expressions used by conditional actions
// to branch on captured form answers and runtime tokens.
package clause

import (
	"fmt"
	"strings"
)

// Clause is an immutable boolean expression tree.
type Clause interface {
	// Description renders the clause for diagnostics.
	Description() string
	evaluate(State) bool
}

// State is the snapshot a clause is evaluated against.
type State struct {
	// Forms maps form block IDs to captured answers.
	Forms map[string]string
	// Tokens maps runtime token names to values.
	Tokens map[string]string
}

// And is true when every child is true. An empty And is true.
type And []Clause

// Or is true when any child is true. An empty Or is false.
type Or []Clause

// Not negates its child.
type Not struct {
	Clause Clause
}

// Survey compares the answer captured for a form block.
type Survey struct {
	BlockID  string
	Operator Operator
	Value    string
}

// Token compares a named runtime token.
type Token struct {
	Name     string
	Operator Operator
	Value    string
}

// Unknown is produced for unrecognised clause objects and always evaluates to false.
type Unknown struct{}

// Evaluate evaluates c against s. It never panics; a nil clause is false.
func Evaluate(c Clause, s State) bool {
	if c == nil {
		return false
	}
	return c.evaluate(s)
}

func (c And) evaluate(s State) bool {
	for _, child := range c {
		if !Evaluate(child, s) {
			return false
		}
	}
	return true
}

func (c Or) evaluate(s State) bool {
	for _, child := range c {
		if Evaluate(child, s) {
			return true
		}
	}
	return false
}

func (c Not) evaluate(s State) bool {
	return !Evaluate(c.Clause, s)
}

func (c Survey) evaluate(s State) bool {
	return c.Operator.Compare(lookup(s.Forms, c.BlockID), c.Value)
}

func (c Token) evaluate(s State) bool {
	return c.Operator.Compare(lookup(s.Tokens, c.Name), c.Value)
}

func (Unknown) evaluate(State) bool { return false }

func lookup(m map[string]string, key string) *string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	return &v
}

func (c And) Description() string { return join(c, "AND") }

func (c Or) Description() string { return join(c, "OR") }

func (c Not) Description() string {
	if c.Clause == nil {
		return "NOT (unknown)"
	}
	return "NOT " + c.Clause.Description()
}

func (c Survey) Description() string {
	return fmt.Sprintf("survey(%s) %s %q", c.BlockID, c.Operator.Description(), c.Value)
}

func (c Token) Description() string {
	return fmt.Sprintf("token(%s) %s %q", c.Name, c.Operator.Description(), c.Value)
}

func (Unknown) Description() string { return "unknown" }

func join(children []Clause, op string) string {
	if len(children) == 0 {
		if op == "AND" {
			return "(true)"
		}
		return "(false)"
	}
	parts := make([]string, 0, len(children))
	for _, child := range children {
		if child == nil {
			parts = append(parts, "unknown")
			continue
		}
		parts = append(parts, child.Description())
	}
	return "(" + strings.Join(parts, " "+op+" ") + ")"
}
