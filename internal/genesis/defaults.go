package genesis

import (
	"math/rand/v2"

	"github.com/Mohsinsiddi/avagen/internal/confstore"
)

// DefaultVMID is the subnet-evm virtual machine ID.
const DefaultVMID = "srEXiWaHuhNyGwPUi444Tu47ZEDwxTWrbQiuD7FmgSAQ6X7Dy"

// Random chain IDs are drawn from [minRandomChainID, maxRandomChainID].
const (
	minRandomChainID = 10000
	maxRandomChainID = 99999

	ownerAllocation = 1000000
)

// DefaultOptions seeds the default configuration tree.
type DefaultOptions struct {
	SubnetOwner  string     // P-Chain owner address
	OwnerAddress string     // EVM address that receives the initial allocation
	ChainID      int64      // 0 draws a random ID
	Rand         *rand.Rand // nil uses the global source
}

// Defaults returns a factory for the default configuration. The chain ID is
// drawn once, so every tree the factory returns is identical.
func Defaults(opts DefaultOptions) func() *confstore.Node {
	id := opts.ChainID
	if id == 0 {
		id = RandomChainID(opts.Rand)
	}
	return func() *confstore.Node {
		return defaultTree(opts, id)
	}
}

// RandomChainID draws an EVM chain ID unlikely to collide with public chains.
func RandomChainID(r *rand.Rand) int64 {
	span := int64(maxRandomChainID - minRandomChainID + 1)
	if r == nil {
		return minRandomChainID + rand.Int64N(span)
	}
	return minRandomChainID + r.Int64N(span)
}

func defaultTree(opts DefaultOptions, chainID int64) *confstore.Node {
	str := func(s string) *confstore.Node { return confstore.LeafNode(confstore.String(s)) }
	num := func(n int64) *confstore.Node { return confstore.LeafNode(confstore.Int(n)) }
	flag := func(b bool) *confstore.Node { return confstore.LeafNode(confstore.Bool(b)) }

	allocs := confstore.NewArray()
	if opts.OwnerAddress != "" {
		allocs.Append(confstore.NewObject().
			Set("address", str(opts.OwnerAddress)).
			Set("amount", num(ownerAllocation)))
	}

	return confstore.NewObject().
		Set("subnetId", str("")).
		Set("subnetOwner", str(opts.SubnetOwner)).
		Set("vmId", str(DefaultVMID)).
		Set("chainName", str("")).
		Set("evmChainId", num(chainID)).
		Set("gasLimit", num(15000000)).
		Set("targetBlockRate", num(2)).
		Set("tokenAllocations", allocs).
		Set("feeConfig", confstore.NewObject().
			Set("minBaseFee", num(25000000000)).
			Set("baseFeeChangeDenominator", num(48)).
			Set("minBlockGasCost", num(0)).
			Set("maxBlockGasCost", num(1000000)).
			Set("blockGasCostStep", num(200000)).
			Set("targetGas", num(15000000))).
		Set("contractDeployerAllowListConfig", emptyAllowList()).
		Set("contractNativeMinterConfig", emptyAllowList()).
		Set("txAllowListConfig", emptyAllowList()).
		Set("feeManagerEnabled", flag(false)).
		Set("feeManagerAdmins", confstore.NewArray()).
		Set("rewardManagerEnabled", flag(false)).
		Set("rewardManagerAdmins", confstore.NewArray()).
		Set("warpConfig", confstore.NewObject().
			Set("enabled", flag(true)).
			Set("quorumNumerator", num(67)).
			Set("requirePrimaryNetworkSigners", flag(true)))
}

func emptyAllowList() *confstore.Node {
	return confstore.NewObject().
		Set("enabled", confstore.LeafNode(confstore.Bool(false))).
		Set("admins", confstore.NewArray()).
		Set("members", confstore.NewArray()).
		Set("enabledAddresses", confstore.NewArray())
}
