package genesis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"
)

// ErrNotReady is returned when a genesis is requested while validation
// still reports errors.
var ErrNotReady = errors.New("configuration has blocking errors")

// Document is a subnet-evm genesis file.
type Document struct {
	Config     ChainConfig        `json:"config"`
	Nonce      string             `json:"nonce"`
	Timestamp  string             `json:"timestamp"`
	ExtraData  string             `json:"extraData"`
	GasLimit   string             `json:"gasLimit"`
	Difficulty string             `json:"difficulty"`
	MixHash    common.Hash        `json:"mixHash"`
	Coinbase   common.Address     `json:"coinbase"`
	Alloc      map[string]Account `json:"alloc"`
	Number     string             `json:"number"`
	GasUsed    string             `json:"gasUsed"`
	ParentHash common.Hash        `json:"parentHash"`
}

// ChainConfig is the "config" block of a genesis.
type ChainConfig struct {
	ChainID             *big.Int `json:"chainId"`
	HomesteadBlock      uint64   `json:"homesteadBlock"`
	EIP150Block         uint64   `json:"eip150Block"`
	EIP155Block         uint64   `json:"eip155Block"`
	EIP158Block         uint64   `json:"eip158Block"`
	ByzantiumBlock      uint64   `json:"byzantiumBlock"`
	ConstantinopleBlock uint64   `json:"constantinopleBlock"`
	PetersburgBlock     uint64   `json:"petersburgBlock"`
	IstanbulBlock       uint64   `json:"istanbulBlock"`
	MuirGlacierBlock    uint64   `json:"muirGlacierBlock"`

	FeeConfig  FeeConfig   `json:"feeConfig"`
	WarpConfig *WarpConfig `json:"warpConfig,omitempty"`

	ContractDeployerAllowListConfig *AllowListConfig `json:"contractDeployerAllowListConfig,omitempty"`
	ContractNativeMinterConfig      *AllowListConfig `json:"contractNativeMinterConfig,omitempty"`
	TxAllowListConfig               *AllowListConfig `json:"txAllowListConfig,omitempty"`
	FeeManagerConfig                *AdminConfig     `json:"feeManagerConfig,omitempty"`
	RewardManagerConfig             *AdminConfig     `json:"rewardManagerConfig,omitempty"`
}

// FeeConfig is the dynamic fee block, including gas limit and block rate.
type FeeConfig struct {
	GasLimit                 *big.Int `json:"gasLimit"`
	TargetBlockRate          *big.Int `json:"targetBlockRate"`
	MinBaseFee               *big.Int `json:"minBaseFee"`
	TargetGas                *big.Int `json:"targetGas"`
	BaseFeeChangeDenominator *big.Int `json:"baseFeeChangeDenominator"`
	MinBlockGasCost          *big.Int `json:"minBlockGasCost"`
	MaxBlockGasCost          *big.Int `json:"maxBlockGasCost"`
	BlockGasCostStep         *big.Int `json:"blockGasCostStep"`
}

// WarpConfig activates warp messaging at genesis.
type WarpConfig struct {
	BlockTimestamp               uint64 `json:"blockTimestamp"`
	QuorumNumerator              uint64 `json:"quorumNumerator"`
	RequirePrimaryNetworkSigners bool   `json:"requirePrimaryNetworkSigners"`
}

// AllowListConfig activates an allow-list precompile.
type AllowListConfig struct {
	BlockTimestamp   uint64   `json:"blockTimestamp"`
	AdminAddresses   []string `json:"adminAddresses,omitempty"`
	ManagerAddresses []string `json:"managerAddresses,omitempty"`
	EnabledAddresses []string `json:"enabledAddresses,omitempty"`
}

// AdminConfig activates an admin-only precompile.
type AdminConfig struct {
	BlockTimestamp uint64   `json:"blockTimestamp"`
	AdminAddresses []string `json:"adminAddresses"`
}

// Account is an initial balance in the alloc block.
type Account struct {
	Balance string `json:"balance"`
}

// BuildOptions controls genesis assembly.
type BuildOptions struct {
	Now time.Time
	// Decimals scales allocation amounts by 10^Decimals. Zero means
	// amounts are already in the smallest unit.
	Decimals uint
}

const defaultQuorum = 67

// Build assembles a genesis document from a validated form.
func Build(f *Form, opts BuildOptions) (*Document, error) {
	res := Validate(f)
	if !res.Ready() {
		return nil, fmt.Errorf("%w: %d field(s) need attention", ErrNotReady, len(res.Errors))
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	ts := uint64(now.Unix())

	doc := &Document{
		Config: ChainConfig{
			ChainID: f.EVMChainID.Int,
			FeeConfig: FeeConfig{
				GasLimit:                 f.GasLimit.Int,
				TargetBlockRate:          f.TargetBlockRate.Int,
				MinBaseFee:               f.Fees.MinBaseFee.Int,
				TargetGas:                f.Fees.TargetGas.Int,
				BaseFeeChangeDenominator: f.Fees.BaseFeeChangeDenominator.Int,
				MinBlockGasCost:          f.Fees.MinBlockGasCost.Int,
				MaxBlockGasCost:          f.Fees.MaxBlockGasCost.Int,
				BlockGasCostStep:         f.Fees.BlockGasCostStep.Int,
			},
			ContractDeployerAllowListConfig: allowListConfig(f.ContractDeployerAllowList, ts),
			ContractNativeMinterConfig:      allowListConfig(f.ContractNativeMinter, ts),
			TxAllowListConfig:               allowListConfig(f.TxAllowList, ts),
			FeeManagerConfig:                adminConfig(f.FeeManagerEnabled, f.FeeManagerAdmins, ts),
			RewardManagerConfig:             adminConfig(f.RewardManagerEnabled, f.RewardManagerAdmins, ts),
		},
		Nonce:      "0x0",
		Timestamp:  hexutil.EncodeUint64(ts),
		ExtraData:  "0x",
		GasLimit:   hexutil.EncodeBig(f.GasLimit.Int),
		Difficulty: "0x0",
		Alloc:      make(map[string]Account, len(f.Allocations)),
		Number:     "0x0",
		GasUsed:    "0x0",
	}

	if f.Warp.Enabled {
		quorum := uint64(defaultQuorum)
		if f.Warp.QuorumNumerator.Valid() {
			quorum = f.Warp.QuorumNumerator.Int.Uint64()
		}
		doc.Config.WarpConfig = &WarpConfig{
			BlockTimestamp:               ts,
			QuorumNumerator:              quorum,
			RequirePrimaryNetworkSigners: bool(f.Warp.RequirePrimaryNetworkSigners),
		}
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(opts.Decimals)), nil)
	for i, a := range f.Allocations {
		addr := checksum(a.Address)
		balance := new(big.Int).Mul(a.Amount.Int, scale)
		if balance.BitLen() > maxQuantityBits {
			return nil, fmt.Errorf("allocation %d: balance with %d decimals: %w", i+1, opts.Decimals, ErrQuantityRange)
		}
		doc.Alloc[addr] = Account{Balance: hexutil.EncodeBig(balance)}
	}
	return doc, nil
}

func checksum(t Text) string {
	return common.HexToAddress(t.String()).Hex()
}

func checksumAll(addrs []Text) []string {
	if len(addrs) == 0 {
		return nil
	}
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = checksum(a)
	}
	return out
}

func allowListConfig(a AllowListForm, ts uint64) *AllowListConfig {
	if !a.Enabled {
		return nil
	}
	return &AllowListConfig{
		BlockTimestamp:   ts,
		AdminAddresses:   checksumAll(a.Admins),
		ManagerAddresses: checksumAll(a.Members),
		EnabledAddresses: checksumAll(a.EnabledAddresses),
	}
}

func adminConfig(enabled Flag, admins []Text, ts uint64) *AdminConfig {
	if !enabled {
		return nil
	}
	return &AdminConfig{BlockTimestamp: ts, AdminAddresses: checksumAll(admins)}
}

// Encode renders doc as indented JSON with a trailing newline.
func Encode(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding genesis: %w", err)
	}
	return append(data, '\n'), nil
}

// Hash returns the keccak-256 fingerprint of data as 0x-prefixed hex.
func Hash(data []byte) string {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return hexutil.Encode(h.Sum(nil))
}

// FileName returns the export file name for a chain ID.
func FileName(chainID fmt.Stringer) string {
	return fmt.Sprintf("genesis-%s.json", chainID)
}
