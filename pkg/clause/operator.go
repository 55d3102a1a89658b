package clause

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// Operator compares a resolved left-hand value against the clause's right-hand value.
type Operator string

const (
	Equals           Operator = "=="
	DoesntEqual      Operator = "!="
	Contains         Operator = "*"
	DoesntContain    Operator = "!*"
	StartsWith       Operator = "^"
	DoesntStartWith  Operator = "!^"
	EndsWith         Operator = "$"
	DoesntEndWith    Operator = "!$"
	MatchesRegex     Operator = "regex"
	IsOneOf          Operator = "in"
	IsntOneOf        Operator = "not in"
	IsGreaterThan    Operator = ">"
	IsGreaterOrEqual Operator = ">="
	IsLessThan       Operator = "<"
	IsLessOrEqual    Operator = "<="
)

// RegexTimeout bounds a single matchesRegex evaluation.
var RegexTimeout = 100 * time.Millisecond

var descriptions = map[Operator]string{
	Equals:           "equals",
	DoesntEqual:      "doesn't equal",
	Contains:         "contains",
	DoesntContain:    "doesn't contain",
	StartsWith:       "starts with",
	DoesntStartWith:  "doesn't start with",
	EndsWith:         "ends with",
	DoesntEndWith:    "doesn't end with",
	MatchesRegex:     "matches regex",
	IsOneOf:          "is one of",
	IsntOneOf:        "isn't one of",
	IsGreaterThan:    "is greater than",
	IsGreaterOrEqual: "is greater than or equal to",
	IsLessThan:       "is less than",
	IsLessOrEqual:    "is less than or equal to",
}

// Valid reports whether the operator is recognised.
func (o Operator) Valid() bool {
	_, ok := descriptions[o]
	return ok
}

// Description returns the printable form of the operator.
func (o Operator) Description() string {
	if d, ok := descriptions[o]; ok {
		return d
	}
	return "unknown operator " + strconv.Quote(string(o))
}

// negated reports whether the operator holds when the left-hand value is absent.
func (o Operator) negated() bool {
	switch o {
	case DoesntEqual, DoesntContain, DoesntStartWith, DoesntEndWith, IsntOneOf:
		return true
	}
	return false
}

// Compare applies the operator. A nil lhs means the value is absent.
func (o Operator) Compare(lhs *string, rhs string) bool {
	if lhs == nil {
		return o.Valid() && o.negated()
	}
	v := *lhs

	switch o {
	case Equals:
		return v == rhs
	case DoesntEqual:
		return v != rhs
	case Contains:
		return strings.Contains(v, rhs)
	case DoesntContain:
		return !strings.Contains(v, rhs)
	case StartsWith:
		return strings.HasPrefix(v, rhs)
	case DoesntStartWith:
		return !strings.HasPrefix(v, rhs)
	case EndsWith:
		return strings.HasSuffix(v, rhs)
	case DoesntEndWith:
		return !strings.HasSuffix(v, rhs)
	case MatchesRegex:
		return matchRegex(v, rhs)
	case IsOneOf:
		return oneOf(v, rhs)
	case IsntOneOf:
		return !oneOf(v, rhs)
	case IsGreaterThan:
		return compareNumbers(v, rhs, func(a, b float64) bool { return a > b })
	case IsGreaterOrEqual:
		return compareNumbers(v, rhs, func(a, b float64) bool { return a >= b })
	case IsLessThan:
		return compareNumbers(v, rhs, func(a, b float64) bool { return a < b })
	case IsLessOrEqual:
		return compareNumbers(v, rhs, func(a, b float64) bool { return a <= b })
	}
	return false
}

func matchRegex(v, pattern string) bool {
	re, err := regexp2.Compile(pattern, regexp2.None)
	if err != nil {
		return false
	}
	re.MatchTimeout = RegexTimeout
	ok, err := re.MatchString(v)
	return err == nil && ok
}

func oneOf(v, lines string) bool {
	for _, line := range strings.Split(lines, "\n") {
		if strings.TrimSuffix(line, "\r") == v {
			return true
		}
	}
	return false
}

func compareNumbers(a, b string, cmp func(float64, float64) bool) bool {
	x, ok := parseDecimal(a)
	if !ok {
		return false
	}
	y, ok := parseDecimal(b)
	if !ok {
		return false
	}
	return cmp(x, y)
}

// parseDecimal accepts plain decimal notation only: no hex, infinities or NaN.
func parseDecimal(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "xXpP_") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
