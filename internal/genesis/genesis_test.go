package genesis_test

import (
	"encoding/json"
	"math/big"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/avagen/internal/confstore"
	"github.com/Mohsinsiddi/avagen/internal/genesis"
)

const (
	alice = "0x1111111111111111111111111111111111111111"
	bob   = "0x2222222222222222222222222222222222222222"
)

func newStore() *confstore.Store {
	return confstore.New(genesis.Defaults(genesis.DefaultOptions{ChainID: 12345}))
}

// readyStore returns a store whose configuration validates cleanly.
func readyStore(t *testing.T) *confstore.Store {
	t.Helper()
	s := newStore()
	require.NoError(t, s.MergeFlat(map[string]confstore.Leaf{
		"tokenAllocations.0.address": confstore.String(alice),
		"tokenAllocations.0.amount":  confstore.Int(5),
	}))
	return s
}

func check(s *confstore.Store) genesis.Result {
	_, res := genesis.Check(s.SnapshotNested())
	return res
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

func TestDefaultsFactoryIsStable(t *testing.T) {
	factory := genesis.Defaults(genesis.DefaultOptions{Rand: rand.New(rand.NewPCG(1, 2))})
	a, b := factory(), factory()
	assert.True(t, a.Equal(b))

	leaf, ok := confstore.Lookup(a, "evmChainId").Leaf()
	require.True(t, ok)
	id, ok := leaf.Int64()
	require.True(t, ok)
	assert.GreaterOrEqual(t, id, int64(10000))
	assert.LessOrEqual(t, id, int64(99999))
}

func TestDefaultsSeedOwnerAllocation(t *testing.T) {
	tree := genesis.Defaults(genesis.DefaultOptions{ChainID: 1, OwnerAddress: alice, SubnetOwner: "P-fuji1xyz"})()
	flat := confstore.Flatten(tree)
	assert.Equal(t, alice, flat["tokenAllocations.0.address"].String())
	assert.Equal(t, "1000000", flat["tokenAllocations.0.amount"].String())
	assert.Equal(t, "P-fuji1xyz", flat["subnetOwner"].String())
	assert.Equal(t, genesis.DefaultVMID, flat["vmId"].String())
}

func TestDefaultsWithoutAllocationAreNotReady(t *testing.T) {
	res := check(newStore())
	assert.False(t, res.Ready())
	assert.Contains(t, res.Errors, "tokenAllocations")
	assert.Len(t, res.Errors, 1)
}

// ---------------------------------------------------------------------------
// Validate
// ---------------------------------------------------------------------------

func TestReadyConfigurationHasNoIssues(t *testing.T) {
	res := check(readyStore(t))
	assert.True(t, res.Ready(), "errors: %v", res.Errors)
	assert.Empty(t, res.Warnings)
}

func TestGasLimitRules(t *testing.T) {
	s := readyStore(t)

	require.NoError(t, s.SetValue("gasLimit", confstore.Int(-1)))
	res := check(s)
	assert.Contains(t, res.Errors, "gasLimit")
	assert.False(t, res.Ready())

	require.NoError(t, s.SetValue("gasLimit", confstore.Int(10000000)))
	res = check(s)
	assert.True(t, res.Ready())
	assert.NotContains(t, res.Errors, "gasLimit")
	assert.Contains(t, res.Warnings, "gasLimit")

	require.NoError(t, s.SetValue("gasLimit", confstore.Int(40000000)))
	assert.Contains(t, check(s).Warnings, "gasLimit")
}

func TestChainIDRules(t *testing.T) {
	s := readyStore(t)

	require.NoError(t, s.SetValue("evmChainId", confstore.Int(0)))
	assert.Contains(t, check(s).Errors, "evmChainId")

	require.NoError(t, s.SetValue("evmChainId", confstore.Int(43114)))
	res := check(s)
	assert.True(t, res.Ready())
	assert.Contains(t, res.Warnings["evmChainId"], "Avalanche Mainnet")

	require.NoError(t, s.SetValue("evmChainId", confstore.String("abc")))
	assert.Contains(t, check(s).Errors, "evmChainId")

	require.NoError(t, s.SetValue("evmChainId", confstore.String("54321")))
	assert.True(t, check(s).Ready(), "numeric strings are accepted")
}

func TestAllocationRules(t *testing.T) {
	s := readyStore(t)
	require.NoError(t, s.MergeFlat(map[string]confstore.Leaf{
		"tokenAllocations.1.address": confstore.String("0x12"),
		"tokenAllocations.1.amount":  confstore.Int(-4),
		"tokenAllocations.2.address": confstore.String(strings.ToUpper(alice[2:])),
		"tokenAllocations.2.amount":  confstore.String("ten"),
		"tokenAllocations.3.address": confstore.String(alice),
		"tokenAllocations.3.amount":  confstore.String("0x10"),
	}))

	res := check(s)
	assert.Contains(t, res.Errors, "tokenAllocations.1.address")
	assert.Contains(t, res.Errors, "tokenAllocations.1.amount")
	assert.Contains(t, res.Errors, "tokenAllocations.2.address", "address needs the 0x prefix")
	assert.Contains(t, res.Errors, "tokenAllocations.2.amount")
	assert.Contains(t, res.Errors["tokenAllocations.3.address"], "duplicates allocation 1")
	assert.NotContains(t, res.Errors, "tokenAllocations.3.amount")
	assert.NotContains(t, res.Errors, "tokenAllocations.0.address")
}

func TestAllowListRules(t *testing.T) {
	s := readyStore(t)
	require.NoError(t, s.SetValue("txAllowListConfig.enabled", confstore.Bool(true)))
	res := check(s)
	assert.Contains(t, res.Errors, "txAllowListConfig")

	require.NoError(t, s.SetValue("txAllowListConfig.admins.0", confstore.String("0x12")))
	res = check(s)
	assert.NotContains(t, res.Errors, "txAllowListConfig")
	assert.Contains(t, res.Errors, "txAllowListConfig.admins.0")

	require.NoError(t, s.SetValue("txAllowListConfig.admins.0", confstore.String(bob)))
	assert.True(t, check(s).Ready())

	// Disabled lists are not checked.
	require.NoError(t, s.SetValue("contractNativeMinterConfig.members.0", confstore.String("junk")))
	assert.True(t, check(s).Ready())
}

func TestManagerRules(t *testing.T) {
	s := readyStore(t)
	require.NoError(t, s.SetValue("feeManagerEnabled", confstore.String("true")))
	assert.Contains(t, check(s).Errors, "feeManagerAdmins")

	require.NoError(t, s.Append("feeManagerAdmins", confstore.LeafNode(confstore.String("nope"))))
	assert.Contains(t, check(s).Errors, "feeManagerAdmins.0")

	require.NoError(t, s.SetValue("feeManagerAdmins.0", confstore.String(bob)))
	assert.True(t, check(s).Ready())
}

func TestFeeRules(t *testing.T) {
	tests := []struct {
		path    string
		value   int64
		isError bool
	}{
		{"feeConfig.minBaseFee", -1, true},
		{"feeConfig.minBaseFee", 100, false},
		{"feeConfig.minBaseFee", 600000000000, false},
		{"feeConfig.targetGas", -1, true},
		{"feeConfig.targetGas", 500000, false},
		{"feeConfig.targetGas", 60000000, false},
		{"feeConfig.baseFeeChangeDenominator", -1, true},
		{"feeConfig.baseFeeChangeDenominator", 4, false},
		{"feeConfig.baseFeeChangeDenominator", 2000, false},
		{"feeConfig.minBlockGasCost", 2000000000, true}, // above max, which errors on maxBlockGasCost
		{"feeConfig.maxBlockGasCost", 20000000000, false},
		{"feeConfig.blockGasCostStep", -1, true},
		{"feeConfig.blockGasCostStep", 6000000, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			s := readyStore(t)
			require.NoError(t, s.SetValue(tt.path, confstore.Int(tt.value)))
			res := check(s)
			if tt.isError {
				assert.False(t, res.Ready())
			} else {
				assert.True(t, res.Ready(), "errors: %v", res.Errors)
				assert.Contains(t, res.Warnings, tt.path)
			}
		})
	}
}

func TestMaxBlockGasCostBelowMin(t *testing.T) {
	s := readyStore(t)
	require.NoError(t, s.SetValue("feeConfig.minBlockGasCost", confstore.Int(10)))
	require.NoError(t, s.SetValue("feeConfig.maxBlockGasCost", confstore.Int(5)))
	assert.Contains(t, check(s).Errors, "feeConfig.maxBlockGasCost")
}

func TestWarpQuorumBounds(t *testing.T) {
	s := readyStore(t)
	require.NoError(t, s.SetValue("warpConfig.quorumNumerator", confstore.Int(20)))
	assert.Contains(t, check(s).Errors, "warpConfig.quorumNumerator")

	require.NoError(t, s.SetValue("warpConfig.enabled", confstore.Bool(false)))
	assert.True(t, check(s).Ready())
}

func TestCheckReportsShapeErrors(t *testing.T) {
	s := readyStore(t)
	require.NoError(t, s.SetValue("feeConfig", confstore.Int(5)))

	res := check(s)
	assert.False(t, res.Ready())
	assert.Contains(t, res.Errors, "feeConfig.minBaseFee")
}

func TestCheckReportsNonScalarFlag(t *testing.T) {
	s := readyStore(t)
	require.NoError(t, s.SetValue("txAllowListConfig.enabled.on", confstore.Bool(true)))

	f, res := genesis.Check(s.SnapshotNested())
	assert.Equal(t, map[string]string{"txAllowListConfig.enabled": "unexpected object value"}, res.Errors)
	assert.False(t, bool(f.TxAllowList.Enabled))
	require.Len(t, f.Allocations, 1, "fields after the bad value are still decoded")
	assert.Equal(t, alice, f.Allocations[0].Address.String())

	require.NoError(t, s.SetValue("txAllowListConfig.enabled", confstore.Bool(false)))
	require.NoError(t, s.SetValue("warpConfig.enabled.0", confstore.Bool(true)))
	res = check(s)
	assert.Equal(t, "unexpected array value", res.Errors["warpConfig.enabled"])
}

func TestValidateRejectsValuesBeyondUint256(t *testing.T) {
	s := readyStore(t)
	huge := new(big.Int).Lsh(big.NewInt(1), 256) // 2^256, 78 digits
	require.NoError(t, s.SetValue("feeConfig.minBaseFee", confstore.String(huge.String())))
	require.NoError(t, s.SetValue("tokenAllocations.0.amount", confstore.String(huge.String())))

	res := check(s)
	assert.Contains(t, res.Errors["feeConfig.minBaseFee"], "uint256")
	assert.Contains(t, res.Errors["tokenAllocations.0.amount"], "uint256")

	maxU256 := new(big.Int).Sub(huge, big.NewInt(1))
	require.NoError(t, s.SetValue("feeConfig.minBaseFee", confstore.String(maxU256.String())))
	require.NoError(t, s.SetValue("tokenAllocations.0.amount", confstore.String(maxU256.String())))
	res = check(s)
	assert.NotContains(t, res.Errors, "feeConfig.minBaseFee")
	assert.NotContains(t, res.Errors, "tokenAllocations.0.amount")
}

func TestBuildRejectsScaledBalanceBeyondUint256(t *testing.T) {
	s := readyStore(t)
	maxU256 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	require.NoError(t, s.SetValue("tokenAllocations.0.amount", confstore.String(maxU256.String())))

	f, err := genesis.DecodeForm(s.SnapshotNested())
	require.NoError(t, err)
	_, err = genesis.Build(f, genesis.BuildOptions{Decimals: 1})
	assert.ErrorIs(t, err, genesis.ErrQuantityRange)
}

// ---------------------------------------------------------------------------
// Build / Encode / Hash
// ---------------------------------------------------------------------------

func buildDoc(t *testing.T, s *confstore.Store, opts genesis.BuildOptions) *genesis.Document {
	t.Helper()
	f, err := genesis.DecodeForm(s.SnapshotNested())
	require.NoError(t, err)
	doc, err := genesis.Build(f, opts)
	require.NoError(t, err)
	return doc
}

func TestBuildDocument(t *testing.T) {
	doc := buildDoc(t, readyStore(t), genesis.BuildOptions{Now: time.Unix(1700000000, 0)})

	assert.Equal(t, big.NewInt(12345), doc.Config.ChainID)
	assert.Equal(t, "0xe4e1c0", doc.GasLimit)
	assert.Equal(t, "0x6553f100", doc.Timestamp)
	assert.Equal(t, big.NewInt(2), doc.Config.FeeConfig.TargetBlockRate)
	assert.Equal(t, big.NewInt(25000000000), doc.Config.FeeConfig.MinBaseFee)
	assert.Equal(t, genesis.Account{Balance: "0x5"}, doc.Alloc[alice])

	require.NotNil(t, doc.Config.WarpConfig)
	assert.Equal(t, uint64(67), doc.Config.WarpConfig.QuorumNumerator)
	assert.Equal(t, uint64(1700000000), doc.Config.WarpConfig.BlockTimestamp)

	assert.Nil(t, doc.Config.TxAllowListConfig)
	assert.Nil(t, doc.Config.FeeManagerConfig)
}

func TestBuildScalesAmountsByDecimals(t *testing.T) {
	s := newStore()
	require.NoError(t, s.MergeFlat(map[string]confstore.Leaf{
		"tokenAllocations.0.address": confstore.String(alice),
		"tokenAllocations.0.amount":  confstore.Int(1000000),
	}))
	doc := buildDoc(t, s, genesis.BuildOptions{Decimals: 18})

	got, err := hexutil.DecodeBig(doc.Alloc[alice].Balance)
	require.NoError(t, err)
	want, _ := new(big.Int).SetString("1000000000000000000000000", 10)
	assert.Equal(t, 0, want.Cmp(got))
}

func TestBuildChecksumsAddressesAndEnablesPrecompiles(t *testing.T) {
	s := readyStore(t)
	lower := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	require.NoError(t, s.MergeFlat(map[string]confstore.Leaf{
		"tokenAllocations.1.address": confstore.String(lower),
		"tokenAllocations.1.amount":  confstore.Int(1),
		"txAllowListConfig.enabled":  confstore.Bool(false),
		"rewardManagerEnabled":       confstore.Bool(true),
		"rewardManagerAdmins.0":      confstore.String(lower),
	}))
	require.NoError(t, s.SetValue("txAllowListConfig.enabled", confstore.Bool(true)))
	require.NoError(t, s.SetValue("txAllowListConfig.enabledAddresses.0", confstore.String(bob)))

	doc := buildDoc(t, s, genesis.BuildOptions{})
	checksummed := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	assert.Contains(t, doc.Alloc, checksummed)

	require.NotNil(t, doc.Config.RewardManagerConfig)
	assert.Equal(t, []string{checksummed}, doc.Config.RewardManagerConfig.AdminAddresses)
	require.NotNil(t, doc.Config.TxAllowListConfig)
	assert.Equal(t, []string{bob}, doc.Config.TxAllowListConfig.EnabledAddresses)
	assert.Empty(t, doc.Config.TxAllowListConfig.AdminAddresses)
}

func TestBuildRefusesInvalidForm(t *testing.T) {
	f, err := genesis.DecodeForm(newStore().SnapshotNested())
	require.NoError(t, err)
	_, err = genesis.Build(f, genesis.BuildOptions{})
	assert.ErrorIs(t, err, genesis.ErrNotReady)
}

func TestEncodeProducesGenesisJSON(t *testing.T) {
	doc := buildDoc(t, readyStore(t), genesis.BuildOptions{Now: time.Unix(1700000000, 0)})
	data, err := genesis.Encode(doc)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	cfg := decoded["config"].(map[string]any)
	assert.EqualValues(t, 12345, cfg["chainId"])
	assert.Equal(t, "0x0000000000000000000000000000000000000000000000000000000000000000", decoded["parentHash"])
	assert.NotContains(t, cfg, "txAllowListConfig")

	again, err := genesis.Encode(doc)
	require.NoError(t, err)
	assert.Equal(t, genesis.Hash(data), genesis.Hash(again))
}

func TestHashIsKeccak(t *testing.T) {
	assert.Equal(t,
		"0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		genesis.Hash(nil))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "genesis-12345.json", genesis.FileName(big.NewInt(12345)))
}

func TestParseQuantity(t *testing.T) {
	tests := map[string]int64{
		"42":    42,
		"0x2a":  42,
		"0X2A":  42,
		"4.2e1": 42,
		" 7 ":   7,
		"-3":    -3,
	}
	for in, want := range tests {
		got, err := genesis.ParseQuantity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got.Int64(), in)
	}
	for _, bad := range []string{"", "abc", "1.5", "0xzz"} {
		_, err := genesis.ParseQuantity(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseQuantityRejectsOversizedLiterals(t *testing.T) {
	for _, in := range []string{
		"1e300000000",
		"-1e300000000",
		"1e78",
		"0x1" + strings.Repeat("0", 64),
		"1" + strings.Repeat("0", 78),
	} {
		_, err := genesis.ParseQuantity(in)
		assert.ErrorIs(t, err, genesis.ErrQuantityRange, in)
	}

	got, err := genesis.ParseQuantity("1e77")
	require.NoError(t, err)
	assert.Equal(t, 78, len(got.String()))

	got, err = genesis.ParseQuantity("0x" + strings.Repeat("f", 64))
	require.NoError(t, err)
	assert.Equal(t, 256, got.BitLen())

	got, err = genesis.ParseQuantity("000" + strings.Repeat("9", 10))
	require.NoError(t, err)
	assert.Equal(t, "9999999999", got.String())
}
