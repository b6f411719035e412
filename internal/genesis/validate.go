package genesis

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"

	"github.com/Mohsinsiddi/avagen/internal/network"
)

// Result collects blocking errors and non-blocking warnings keyed by the
// flat path of the offending field.
type Result struct {
	Errors   map[string]string
	Warnings map[string]string
}

// Ready reports whether a genesis can be built.
func (r Result) Ready() bool { return len(r.Errors) == 0 }

// ErrorPaths returns the paths with errors in sorted order.
func (r Result) ErrorPaths() []string { return sortedKeys(r.Errors) }

// WarningPaths returns the paths with warnings in sorted order.
func (r Result) WarningPaths() []string { return sortedKeys(r.Warnings) }

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	gwei         = big.NewInt(params.GWei)
	knownNetwork = network.NewRegistry()
)

type checker struct {
	res Result
}

func (c *checker) fail(path, format string, args ...any) {
	if _, ok := c.res.Errors[path]; !ok {
		c.res.Errors[path] = fmt.Sprintf(format, args...)
	}
}

func (c *checker) warn(path, format string, args ...any) {
	if _, ok := c.res.Warnings[path]; !ok {
		c.res.Warnings[path] = fmt.Sprintf(format, args...)
	}
}

// required returns the parsed value, recording an error when it is absent
// or not an integer.
func (c *checker) required(path, label string, q Quantity) (*big.Int, bool) {
	switch {
	case q.Missing():
		c.fail(path, "%s is required", label)
		return nil, false
	case !q.Valid():
		c.fail(path, "%s must be an integer, got %q", label, q.Raw)
		return nil, false
	case q.Int.BitLen() > 256:
		c.fail(path, "%s exceeds the uint256 range", label)
		return nil, false
	}
	return q.Int, true
}

func (c *checker) addresses(path, label string, addrs []Text) {
	for i, a := range addrs {
		if !ValidAddress(a.String()) {
			c.fail(path+"."+strconv.Itoa(i), "%s: invalid address %q", label, a.String())
		}
	}
}

// ValidAddress reports whether s is a 0x-prefixed 20-byte hex address.
func ValidAddress(s string) bool {
	return strings.HasPrefix(s, "0x") && common.IsHexAddress(s)
}

func lt(a *big.Int, n int64) bool { return a.Cmp(big.NewInt(n)) < 0 }
func gt(a *big.Int, n int64) bool { return a.Cmp(big.NewInt(n)) > 0 }
func ltBig(a, b *big.Int) bool    { return a.Cmp(b) < 0 }
func gtBig(a, b *big.Int) bool    { return a.Cmp(b) > 0 }

func mulInt(a *big.Int, n int64) *big.Int { return new(big.Int).Mul(a, big.NewInt(n)) }

// Validate applies the genesis rules to f.
func Validate(f *Form) Result {
	c := &checker{res: Result{Errors: map[string]string{}, Warnings: map[string]string{}}}

	if id, ok := c.required("evmChainId", "Chain ID", f.EVMChainID); ok {
		switch {
		case id.Sign() <= 0:
			c.fail("evmChainId", "Chain ID must be positive")
		case id.IsInt64():
			if n, err := knownNetwork.ByChainID(id.Int64()); err == nil {
				c.warn("evmChainId", "Chain ID %s is already used by %s", id, n.DisplayName)
			}
		}
	}

	if v, ok := c.required("gasLimit", "Gas limit", f.GasLimit); ok {
		switch {
		case v.Sign() < 0:
			c.fail("gasLimit", "Gas limit must be non-negative")
		case lt(v, 15000000):
			c.warn("gasLimit", "Gas limit below 15M may impact network performance")
		case gt(v, 30000000):
			c.warn("gasLimit", "Gas limit above 30M may require significant resources")
		}
	}

	if v, ok := c.required("targetBlockRate", "Block rate", f.TargetBlockRate); ok {
		switch {
		case v.Sign() <= 0:
			c.fail("targetBlockRate", "Block rate must be positive")
		case gt(v, 10):
			c.warn("targetBlockRate", "Block rates above 10 seconds may impact user experience")
		}
	}

	c.allocations(f.Allocations)

	c.allowList("contractDeployerAllowListConfig", "Contract Deployer Allow List", f.ContractDeployerAllowList)
	c.allowList("contractNativeMinterConfig", "Native Minter", f.ContractNativeMinter)
	c.allowList("txAllowListConfig", "Transaction Allow List", f.TxAllowList)

	c.manager("feeManagerAdmins", "Fee Manager", f.FeeManagerEnabled, f.FeeManagerAdmins)
	c.manager("rewardManagerAdmins", "Reward Manager", f.RewardManagerEnabled, f.RewardManagerAdmins)

	c.fees(f.Fees)

	if bool(f.Warp.Enabled) && !f.Warp.QuorumNumerator.Missing() {
		if q, ok := c.required("warpConfig.quorumNumerator", "Warp quorum", f.Warp.QuorumNumerator); ok {
			if lt(q, 33) || gt(q, 100) {
				c.fail("warpConfig.quorumNumerator", "Warp quorum must be between 33 and 100")
			}
		}
	}

	return c.res
}

func (c *checker) allocations(allocs []AllocationForm) {
	if len(allocs) == 0 {
		c.fail("tokenAllocations", "At least one token allocation is required")
		return
	}
	seen := make(map[string]int, len(allocs))
	for i, a := range allocs {
		base := "tokenAllocations." + strconv.Itoa(i)
		addr := a.Address.String()
		if !ValidAddress(addr) {
			c.fail(base+".address", "Allocation %d: invalid address format", i+1)
		} else if prev, dup := seen[strings.ToLower(addr)]; dup {
			c.fail(base+".address", "Allocation %d: duplicates allocation %d", i+1, prev+1)
		} else {
			seen[strings.ToLower(addr)] = i
		}
		switch {
		case !a.Amount.Valid() || a.Amount.Int.Sign() < 0:
			c.fail(base+".amount", "Allocation %d: invalid amount", i+1)
		case a.Amount.Int.BitLen() > 256:
			c.fail(base+".amount", "Allocation %d: amount exceeds the uint256 range", i+1)
		}
	}
}

func (c *checker) allowList(path, label string, a AllowListForm) {
	if !a.Enabled {
		return
	}
	if a.Total() == 0 {
		c.fail(path, "%s: at least one address is required when enabled", label)
	}
	c.addresses(path+".admins", label, a.Admins)
	c.addresses(path+".members", label, a.Members)
	c.addresses(path+".enabledAddresses", label, a.EnabledAddresses)
}

func (c *checker) manager(path, label string, enabled Flag, admins []Text) {
	if !enabled {
		return
	}
	if len(admins) == 0 {
		c.fail(path, "%s: at least one admin address is required when enabled", label)
		return
	}
	c.addresses(path, label, admins)
}

func (c *checker) fees(fc FeeForm) {
	if v, ok := c.required("feeConfig.minBaseFee", "Min base fee", fc.MinBaseFee); ok {
		switch {
		case v.Sign() < 0:
			c.fail("feeConfig.minBaseFee", "Min base fee must be non-negative")
		case ltBig(v, gwei):
			c.warn("feeConfig.minBaseFee", "Min base fee below 1 gwei may cause issues")
		case gtBig(v, mulInt(gwei, 500)):
			c.warn("feeConfig.minBaseFee", "Min base fee above 500 gwei may be expensive")
		}
	}

	if v, ok := c.required("feeConfig.targetGas", "Target gas", fc.TargetGas); ok {
		switch {
		case v.Sign() < 0:
			c.fail("feeConfig.targetGas", "Target gas must be non-negative")
		case lt(v, 1000000):
			c.warn("feeConfig.targetGas", "Target gas below 1M may lead to congestion")
		case gt(v, 50000000):
			c.warn("feeConfig.targetGas", "Target gas above 50M may require significant resources")
		}
	}

	if v, ok := c.required("feeConfig.baseFeeChangeDenominator", "Base fee change denominator", fc.BaseFeeChangeDenominator); ok {
		switch {
		case v.Sign() < 0:
			c.fail("feeConfig.baseFeeChangeDenominator", "Base fee change denominator must be non-negative")
		case lt(v, 8):
			c.warn("feeConfig.baseFeeChangeDenominator", "Low denominator may cause fees to change too rapidly")
		case gt(v, 1000):
			c.warn("feeConfig.baseFeeChangeDenominator", "High denominator may cause fees to react too slowly")
		}
	}

	minCost, minOK := c.required("feeConfig.minBlockGasCost", "Min block gas cost", fc.MinBlockGasCost)
	if minOK {
		switch {
		case minCost.Sign() < 0:
			c.fail("feeConfig.minBlockGasCost", "Min block gas cost must be non-negative")
		case gt(minCost, 1000000000):
			c.warn("feeConfig.minBlockGasCost", "Min block gas cost above 1B may impact performance")
		}
	}

	if maxCost, ok := c.required("feeConfig.maxBlockGasCost", "Max block gas cost", fc.MaxBlockGasCost); ok {
		switch {
		case minOK && ltBig(maxCost, minCost):
			c.fail("feeConfig.maxBlockGasCost", "Max block gas cost must be >= min block gas cost")
		case gt(maxCost, 10000000000):
			c.warn("feeConfig.maxBlockGasCost", "Max block gas cost above 10B may impact performance")
		}
	}

	if v, ok := c.required("feeConfig.blockGasCostStep", "Block gas cost step", fc.BlockGasCostStep); ok {
		switch {
		case v.Sign() < 0:
			c.fail("feeConfig.blockGasCostStep", "Block gas cost step must be non-negative")
		case gt(v, 5000000):
			c.warn("feeConfig.blockGasCostStep", "Block gas cost step above 5M may cause fees to change too rapidly")
		}
	}
}
