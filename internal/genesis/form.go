package genesis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/Mohsinsiddi/avagen/internal/confstore"
)

// Form is the typed view of a configuration snapshot. Scalar fields are
// lenient: values typed by hand or returned by the assistant may arrive as
// strings, so decoding never fails on a scalar and validation reports what
// could not be understood.
type Form struct {
	SubnetID        Text             `json:"subnetId"`
	SubnetOwner     Text             `json:"subnetOwner"`
	VMID            Text             `json:"vmId"`
	ChainName       Text             `json:"chainName"`
	EVMChainID      Quantity         `json:"evmChainId"`
	GasLimit        Quantity         `json:"gasLimit"`
	TargetBlockRate Quantity         `json:"targetBlockRate"`
	Allocations     []AllocationForm `json:"tokenAllocations"`
	Fees            FeeForm          `json:"feeConfig"`

	ContractDeployerAllowList AllowListForm `json:"contractDeployerAllowListConfig"`
	ContractNativeMinter      AllowListForm `json:"contractNativeMinterConfig"`
	TxAllowList               AllowListForm `json:"txAllowListConfig"`

	FeeManagerEnabled    Flag   `json:"feeManagerEnabled"`
	FeeManagerAdmins     []Text `json:"feeManagerAdmins"`
	RewardManagerEnabled Flag   `json:"rewardManagerEnabled"`
	RewardManagerAdmins  []Text `json:"rewardManagerAdmins"`

	Warp WarpForm `json:"warpConfig"`
}

// AllocationForm is one initial balance.
type AllocationForm struct {
	Address Text     `json:"address"`
	Amount  Quantity `json:"amount"`
}

// FeeForm holds the dynamic fee parameters.
type FeeForm struct {
	MinBaseFee               Quantity `json:"minBaseFee"`
	BaseFeeChangeDenominator Quantity `json:"baseFeeChangeDenominator"`
	MinBlockGasCost          Quantity `json:"minBlockGasCost"`
	MaxBlockGasCost          Quantity `json:"maxBlockGasCost"`
	BlockGasCostStep         Quantity `json:"blockGasCostStep"`
	TargetGas                Quantity `json:"targetGas"`
}

// AllowListForm configures one allow-list precompile.
type AllowListForm struct {
	Enabled          Flag   `json:"enabled"`
	Admins           []Text `json:"admins"`
	Members          []Text `json:"members"`
	EnabledAddresses []Text `json:"enabledAddresses"`
}

// Total returns the number of addresses across all roles.
func (a AllowListForm) Total() int {
	return len(a.Admins) + len(a.Members) + len(a.EnabledAddresses)
}

// WarpForm configures cross-chain messaging.
type WarpForm struct {
	Enabled                      Flag     `json:"enabled"`
	QuorumNumerator              Quantity `json:"quorumNumerator"`
	RequirePrimaryNetworkSigners Flag     `json:"requirePrimaryNetworkSigners"`
}

// maxDecodeRetries bounds how many type errors DecodeForm works around.
const maxDecodeRetries = 16

// DecodeForm reads a configuration tree into a Form. Each value with the
// wrong JSON type is reported and decoded as null so the rest of the form
// is still filled in; the errors are joined.
func DecodeForm(n *confstore.Node) (*Form, error) {
	tree := n
	var (
		f    Form
		errs []error
	)
	for range maxDecodeRetries {
		data, err := tree.MarshalJSON()
		if err != nil {
			return nil, err
		}
		f = Form{}
		err = json.Unmarshal(data, &f)
		if err == nil {
			break
		}
		errs = append(errs, err)
		var ute *json.UnmarshalTypeError
		if !errors.As(err, &ute) || ute.Field == "" || confstore.Lookup(tree, ute.Field) == nil {
			break
		}
		if tree == n {
			tree = n.Clone()
		}
		if err := confstore.SetPath(tree, ute.Field, confstore.Null()); err != nil {
			break
		}
	}
	return &f, errors.Join(errs...)
}

// Check decodes a snapshot and validates it.
func Check(n *confstore.Node) (*Form, Result) {
	f, err := DecodeForm(n)
	if f == nil {
		f = &Form{}
	}
	res := Validate(f)
	for _, e := range unjoin(err) {
		field := "config"
		var ute *json.UnmarshalTypeError
		if errors.As(e, &ute) && ute.Field != "" {
			field = ute.Field
		}
		res.Errors[field] = fmt.Sprintf("unexpected %s value", describeJSON(e))
	}
	return f, res
}

func unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

func describeJSON(err error) string {
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) {
		return ute.Value
	}
	return "malformed"
}

// Text is a string that also accepts numbers and booleans.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	switch x := v.(type) {
	case nil:
		*t = ""
	case string:
		*t = Text(x)
	case json.Number:
		*t = Text(x.String())
	case bool:
		*t = Text(strconv.FormatBool(x))
	default:
		*t = Text(b)
	}
	return nil
}

func (t Text) String() string { return strings.TrimSpace(string(t)) }

// Flag is a boolean that also accepts "true"/"false" strings.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	switch {
	case strings.HasPrefix(raw, "{"):
		return &json.UnmarshalTypeError{Value: "object", Type: reflect.TypeFor[Flag]()}
	case strings.HasPrefix(raw, "["):
		return &json.UnmarshalTypeError{Value: "array", Type: reflect.TypeFor[Flag]()}
	}
	s := strings.ToLower(strings.Trim(raw, `"`))
	switch s {
	case "true", "1", "yes", "on":
		*f = true
	default:
		*f = false
	}
	return nil
}

// Quantity is an arbitrary-precision integer given as a JSON number, a
// decimal string or a 0x-prefixed hex string.
type Quantity struct {
	Int *big.Int // nil when absent or unparseable
	Raw string
}

// Q builds a Quantity from an int64.
func Q(n int64) Quantity {
	return Quantity{Int: big.NewInt(n), Raw: strconv.FormatInt(n, 10)}
}

// UnmarshalJSON implements json.Unmarshaler.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	*q = Quantity{}
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	q.Raw = s
	q.Int, _ = ParseQuantity(s)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (q Quantity) MarshalJSON() ([]byte, error) {
	if q.Int == nil {
		return []byte("null"), nil
	}
	return []byte(q.Int.String()), nil
}

// Missing reports whether no value was supplied.
func (q Quantity) Missing() bool { return q.Raw == "" }

// Valid reports whether the value parsed as an integer.
func (q Quantity) Valid() bool { return q.Int != nil }

// Limits on quantity literals. Genesis values are uint256, which needs at
// most 78 decimal or 64 hex digits.
const (
	maxDecimalDigits = 78
	maxHexDigits     = 64
	maxQuantityBits  = 256
)

// ErrQuantityRange is returned for literals too large for a uint256.
var ErrQuantityRange = errors.New("quantity exceeds uint256")

// ParseQuantity parses decimal, hex (0x) or integral exponent notation.
// Literals whose magnitude cannot fit in 256 bits are rejected before the
// integer is materialised.
func ParseQuantity(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty quantity")
	}
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		if len(strings.TrimLeft(rest, "0")) > maxHexDigits {
			return nil, fmt.Errorf("%w: %q", ErrQuantityRange, s)
		}
		n, ok := new(big.Int).SetString(rest, 16)
		if !ok {
			return nil, fmt.Errorf("invalid hex quantity %q", s)
		}
		return n, nil
	}
	if digits := strings.TrimLeft(strings.TrimLeft(s, "+-"), "0"); len(digits) > maxDecimalDigits && isDigits(digits) {
		return nil, fmt.Errorf("%w: %q", ErrQuantityRange, s)
	}
	if n, ok := new(big.Int).SetString(s, 10); ok {
		return n, nil
	}
	f, _, err := big.ParseFloat(s, 10, maxQuantityBits, big.ToNearestEven)
	if err != nil || !f.IsInt() {
		return nil, fmt.Errorf("invalid quantity %q", s)
	}
	if f.MantExp(nil) > maxQuantityBits {
		return nil, fmt.Errorf("%w: %q", ErrQuantityRange, s)
	}
	n, _ := f.Int(nil)
	return n, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
