// Package steps describes the guided wizard: its steps, the configuration
// fields each one edits, and navigation between them.
package steps

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/Mohsinsiddi/avagen/internal/confstore"
)

// ErrBadInput is returned when user input cannot be mapped to a field value.
var ErrBadInput = errors.New("invalid input")

// FieldKind is how a field is presented.
type FieldKind int

const (
	Input FieldKind = iota
	Radio
	Toggle
)

// ValueKind is the type of leaf an Input field produces.
type ValueKind int

const (
	TextValue ValueKind = iota
	NumberValue
	GweiValue // entered in gwei, stored in wei
)

// Option is one choice of a Radio field.
type Option struct {
	Label string
	Value confstore.Leaf
}

// Field is one editable configuration entry.
type Field struct {
	Path        string
	Heading     string
	Placeholder string
	Description string
	Kind        FieldKind
	Value       ValueKind
	Options     []Option
	CanAskAI    bool
}

// Step is one page of the wizard.
type Step struct {
	Title  string
	Fields []Field
	Group  *Group
}

// Group is a block of fields repeated for every item of an array, such as
// token allocations. Field paths are relative to one item.
type Group struct {
	Path    string
	Label   string
	Fields  []Field
	NewItem func() *confstore.Node
}

// ItemFields returns the group's fields for item i with absolute paths.
func (g *Group) ItemFields(i int) []Field {
	out := make([]Field, len(g.Fields))
	for j, f := range g.Fields {
		f.Path = confstore.JoinPath(g.Path, strconv.Itoa(i), f.Path)
		f.Heading = fmt.Sprintf("%s %d · %s", g.Label, i+1, f.Heading)
		out[j] = f
	}
	return out
}

// ItemOf reports which item an absolute field path belongs to.
func (g *Group) ItemOf(path string) (int, bool) {
	rest, ok := strings.CutPrefix(path, g.Path+confstore.Separator)
	if !ok {
		return 0, false
	}
	idx, _, _ := strings.Cut(rest, confstore.Separator)
	i, err := strconv.Atoi(idx)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// Len counts the group's items in a configuration tree.
func (g *Group) Len(root *confstore.Node) int {
	arr := confstore.Lookup(root, g.Path)
	if arr == nil || arr.Kind() != confstore.KindArray {
		return 0
	}
	return arr.Len()
}

// FieldsFor returns the step's fields followed by the group's fields for
// each of count items.
func (s Step) FieldsFor(count int) []Field {
	if s.Group == nil {
		return s.Fields
	}
	out := append([]Field(nil), s.Fields...)
	for i := range count {
		out = append(out, s.Group.ItemFields(i)...)
	}
	return out
}

var weiPerGwei = big.NewRat(1000000000, 1)

// Parse converts raw user input into the leaf stored at f.Path.
func (f Field) Parse(input string) (confstore.Leaf, error) {
	input = strings.TrimSpace(input)
	switch f.Kind {
	case Radio:
		for i, o := range f.Options {
			if input == strconv.Itoa(i+1) || strings.EqualFold(input, o.Label) {
				return o.Value, nil
			}
		}
		return confstore.Leaf{}, fmt.Errorf("%w: choose 1-%d", ErrBadInput, len(f.Options))
	case Toggle:
		switch strings.ToLower(input) {
		case "y", "yes", "true", "on", "1":
			return confstore.Bool(true), nil
		case "n", "no", "false", "off", "0":
			return confstore.Bool(false), nil
		}
		return confstore.Leaf{}, fmt.Errorf("%w: answer yes or no", ErrBadInput)
	}

	switch f.Value {
	case NumberValue:
		if l, err := confstore.Number(input); err == nil {
			return l, nil
		}
		return confstore.String(input), nil
	case GweiValue:
		r, ok := new(big.Rat).SetString(input)
		if !ok {
			return confstore.Leaf{}, fmt.Errorf("%w: %q is not a number", ErrBadInput, input)
		}
		r.Mul(r, weiPerGwei)
		if !r.IsInt() {
			return confstore.Leaf{}, fmt.Errorf("%w: %q has more than 9 decimals", ErrBadInput, input)
		}
		return confstore.Number(r.Num().String())
	}
	return confstore.String(input), nil
}

// Display renders a stored leaf the way the field is entered.
func (f Field) Display(l confstore.Leaf) string {
	switch f.Kind {
	case Radio:
		for _, o := range f.Options {
			if o.Value == l {
				return o.Label
			}
		}
	case Input:
		if f.Value == GweiValue && l.Kind() == confstore.LeafNumber {
			if r, ok := new(big.Rat).SetString(l.String()); ok {
				s := r.Quo(r, weiPerGwei).FloatString(9)
				return strings.TrimRight(strings.TrimRight(s, "0"), ".")
			}
		}
	}
	return l.String()
}

// Catalogue returns the wizard steps in order.
func Catalogue() []Step {
	return []Step{
		{
			Title: "Create a Subnet",
			Fields: []Field{
				{Path: "subnetOwner", Heading: "Subnet Owner", Placeholder: "P-avax16g4racxztww72ac5t2h5x5ywzf20jrcgvr8haw"},
			},
		},
		{
			Title: "Create a Chain",
			Fields: []Field{
				{Path: "subnetId", Heading: "Subnet ID", Placeholder: "Create a Subnet in step 1 or enter a Subnet ID"},
				{Path: "chainName", Heading: "Chain Name", Placeholder: "Enter chain name"},
				{
					Path: "vmId", Heading: "VM ID", Placeholder: "srEXiWaHuhNyGwPUi444Tu47ZEDwxTWrbQiuD7FmgSAQ6X7Dy",
					Description: "For an L1 with an uncustomized EVM use srEXiWaHuhNyGwPUi444Tu47ZEDwxTWrbQiuD7FmgSAQ6X7Dy",
					CanAskAI:    true,
				},
			},
		},
		{
			Title: "Chain Parameters",
			Fields: []Field{
				{Path: "evmChainId", Heading: "EVM Chain ID", Placeholder: "34257", Value: NumberValue, CanAskAI: true},
			},
		},
		{
			Title: "Permissions",
			Fields: []Field{
				{
					Path: "contractDeployerAllowListConfig.enabled", Heading: "Contract deployment", Kind: Radio,
					Options: []Option{
						{Label: "Anyone can deploy contracts.", Value: confstore.Bool(false)},
						{Label: "Only approved addresses can deploy contracts.", Value: confstore.Bool(true)},
					},
				},
				{Path: "txAllowListConfig.enabled", Heading: "Restrict who can send transactions", Kind: Toggle},
				{Path: "contractNativeMinterConfig.enabled", Heading: "Allow minting the native token", Kind: Toggle},
				{Path: "feeManagerEnabled", Heading: "Enable the fee manager", Kind: Toggle},
				{Path: "rewardManagerEnabled", Heading: "Enable the reward manager", Kind: Toggle},
			},
		},
		{
			Title: "Tokenomics",
			Group: &Group{
				Path:  "tokenAllocations",
				Label: "Allocation",
				Fields: []Field{
					{Path: "address", Heading: "Recipient", Placeholder: "0x..."},
					{Path: "amount", Heading: "Amount", Placeholder: "10000", Value: NumberValue, CanAskAI: true},
				},
				NewItem: newAllocation,
			},
		},
		{
			Title: "Transaction Fees & Gas",
			Fields: []Field{
				{Path: "gasLimit", Heading: "Gas Limit", Placeholder: "15000000", Value: NumberValue, CanAskAI: true},
				{Path: "targetBlockRate", Heading: "Target Block Rate (seconds)", Placeholder: "2", Value: NumberValue},
				{Path: "feeConfig.minBaseFee", Heading: "Min Base Fee (gwei)", Placeholder: "25", Value: GweiValue, CanAskAI: true},
				{Path: "feeConfig.baseFeeChangeDenominator", Heading: "Base Fee Change Denominator", Placeholder: "48", Value: NumberValue},
				{Path: "feeConfig.minBlockGasCost", Heading: "Min Block Gas Cost", Placeholder: "0", Value: NumberValue},
				{Path: "feeConfig.maxBlockGasCost", Heading: "Max Block Gas Cost", Placeholder: "1000000", Value: NumberValue},
				{Path: "feeConfig.blockGasCostStep", Heading: "Block Gas Cost Step", Placeholder: "200000", Value: NumberValue},
				{Path: "feeConfig.targetGas", Heading: "Target Gas", Placeholder: "15000000", Value: NumberValue},
			},
		},
	}
}

func newAllocation() *confstore.Node {
	return confstore.NewObject().
		Set("address", confstore.LeafNode(confstore.String(""))).
		Set("amount", confstore.LeafNode(confstore.Int(0)))
}

// FieldByPath finds a field in the catalogue. Paths inside a group resolve
// to the field of that item.
func FieldByPath(path string) (Field, bool) {
	for _, s := range Catalogue() {
		for _, f := range s.Fields {
			if f.Path == path {
				return f, true
			}
		}
		if g := s.Group; g != nil {
			if i, ok := g.ItemOf(path); ok {
				for _, f := range g.ItemFields(i) {
					if f.Path == path {
						return f, true
					}
				}
			}
		}
	}
	return Field{}, false
}

// Navigator moves through a list of steps. Indices are 0-based; Number is
// the 1-based position shown to users and stored as progress.
type Navigator struct {
	steps []Step
	cur   int
}

// NewNavigator starts at the first step.
func NewNavigator(steps []Step) *Navigator {
	return &Navigator{steps: steps}
}

func (n *Navigator) Steps() []Step       { return n.steps }
func (n *Navigator) Total() int          { return len(n.steps) }
func (n *Navigator) Index() int          { return n.cur }
func (n *Navigator) Number() int         { return n.cur + 1 }
func (n *Navigator) Current() Step       { return n.steps[n.cur] }
func (n *Navigator) CanGoNext() bool     { return n.cur < len(n.steps)-1 }
func (n *Navigator) CanGoPrevious() bool { return n.cur > 0 }

// Next advances one step; it reports whether it moved.
func (n *Navigator) Next() bool {
	if !n.CanGoNext() {
		return false
	}
	n.cur++
	return true
}

// Previous goes back one step; it reports whether it moved.
func (n *Navigator) Previous() bool {
	if !n.CanGoPrevious() {
		return false
	}
	n.cur--
	return true
}

// GoTo jumps to index i; out-of-range indices are ignored.
func (n *Navigator) GoTo(i int) bool {
	if i < 0 || i >= len(n.steps) {
		return false
	}
	n.cur = i
	return true
}

// Percent is how far through the wizard the current step is.
func (n *Navigator) Percent() int {
	if len(n.steps) == 0 {
		return 0
	}
	return (n.cur + 1) * 100 / len(n.steps)
}
