package confstore

import (
	"regexp"
	"strconv"
)

// LeafKind distinguishes scalar leaf values.
type LeafKind uint8

const (
	LeafNull LeafKind = iota
	LeafString
	LeafNumber
	LeafBool
)

func (k LeafKind) String() string {
	switch k {
	case LeafString:
		return "string"
	case LeafNumber:
		return "number"
	case LeafBool:
		return "bool"
	default:
		return "null"
	}
}

// Leaf is a typed scalar. Numbers keep their decimal literal so that wei
// amounts beyond 2^53 survive untouched.
type Leaf struct {
	kind LeafKind
	text string
}

var numberRe = regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`)

// Null returns the null leaf.
func Null() Leaf { return Leaf{kind: LeafNull} }

// String returns a string leaf.
func String(s string) Leaf { return Leaf{kind: LeafString, text: s} }

// Bool returns a boolean leaf.
func Bool(b bool) Leaf { return Leaf{kind: LeafBool, text: strconv.FormatBool(b)} }

// Int returns a number leaf for n.
func Int(n int64) Leaf { return Leaf{kind: LeafNumber, text: strconv.FormatInt(n, 10)} }

// Uint returns a number leaf for n.
func Uint(n uint64) Leaf { return Leaf{kind: LeafNumber, text: strconv.FormatUint(n, 10)} }

// Float returns a number leaf for f using the shortest representation.
func Float(f float64) Leaf {
	return Leaf{kind: LeafNumber, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// Number returns a number leaf from a JSON number literal.
func Number(lit string) (Leaf, error) {
	if !numberRe.MatchString(lit) {
		return Leaf{}, &strconv.NumError{Func: "Number", Num: lit, Err: strconv.ErrSyntax}
	}
	return Leaf{kind: LeafNumber, text: lit}, nil
}

// ParseLeaf interprets free-form user input: true/false become booleans,
// "null" becomes null, JSON number literals become numbers and everything
// else stays a string.
func ParseLeaf(s string) Leaf {
	switch s {
	case "true":
		return Bool(true)
	case "false":
		return Bool(false)
	case "null":
		return Null()
	}
	if numberRe.MatchString(s) {
		return Leaf{kind: LeafNumber, text: s}
	}
	return String(s)
}

// Kind reports the leaf kind.
func (l Leaf) Kind() LeafKind { return l.kind }

// String returns the display form used by the flattened projection.
func (l Leaf) String() string {
	if l.kind == LeafNull {
		return "null"
	}
	return l.text
}

// Int64 returns the leaf as an integer when it holds an integral number.
func (l Leaf) Int64() (int64, bool) {
	if l.kind != LeafNumber {
		return 0, false
	}
	n, err := strconv.ParseInt(l.text, 10, 64)
	return n, err == nil
}

// BoolValue returns the leaf as a boolean when it holds one.
func (l Leaf) BoolValue() (bool, bool) {
	if l.kind != LeafBool {
		return false, false
	}
	return l.text == "true", true
}
