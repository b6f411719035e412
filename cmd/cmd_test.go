package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/avagen/internal/assistant"
	"github.com/Mohsinsiddi/avagen/internal/config"
	"github.com/Mohsinsiddi/avagen/internal/confstore"
	"github.com/Mohsinsiddi/avagen/internal/secrets"
)

const owner = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

// resetFlags restores every flag to its default so runs do not leak state.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func run(t *testing.T, dir, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--config", dir}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := run(t, dir, "", args...)
	require.NoError(t, err, out)
	return out
}

// readyDir returns a config dir whose draft validates cleanly.
func readyDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	mustRun(t, dir, "settings", "set", "owner_address", owner)
	return dir
}

// ---------------------------------------------------------------------------
// config
// ---------------------------------------------------------------------------

func TestConfigSetAndGet(t *testing.T) {
	dir := t.TempDir()
	out := mustRun(t, dir, "config", "set", "evmChainId", "43114")
	assert.Contains(t, out, "evmChainId = 43114")
	assert.Contains(t, out, "Avalanche Mainnet", "collision warning is shown")

	assert.Equal(t, "43114\n", mustRun(t, dir, "config", "get", "evmChainId"))

	mustRun(t, dir, "config", "set", "--string", "chainName", "123")
	shown := mustRun(t, dir, "config", "show")
	assert.Contains(t, shown, `"evmChainId": 43114`)
	assert.Contains(t, shown, `"chainName": "123"`)
}

func TestConfigGetSubtreeAndMissing(t *testing.T) {
	dir := t.TempDir()
	out := mustRun(t, dir, "config", "get", "feeConfig")
	assert.Contains(t, out, `"minBaseFee": 25000000000`)

	_, err := run(t, dir, "", "config", "get", "nope")
	assert.Error(t, err)
}

func TestConfigSetRejectsMalformedPath(t *testing.T) {
	_, err := run(t, t.TempDir(), "", "config", "set", "feeConfig.", "1")
	assert.ErrorIs(t, err, confstore.ErrMalformedPath)
}

func TestConfigUnsetIndex(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "config", "set", "feeManagerAdmins.0", "0x01")
	mustRun(t, dir, "config", "set", "feeManagerAdmins.1", "0x02")
	mustRun(t, dir, "config", "unset-index", "feeManagerAdmins", "0")

	assert.Equal(t, "0x02\n", mustRun(t, dir, "config", "get", "feeManagerAdmins.0"))
	_, err := run(t, dir, "", "config", "unset-index", "feeManagerAdmins", "5")
	assert.ErrorIs(t, err, confstore.ErrIndexRange)
	_, err = run(t, dir, "", "config", "unset-index", "feeManagerAdmins", "x")
	assert.Error(t, err)
}

func TestConfigApplyTOML(t *testing.T) {
	dir := t.TempDir()
	patch := filepath.Join(t.TempDir(), "patch.toml")
	require.NoError(t, os.WriteFile(patch, []byte(`
[feeConfig]
minBaseFee = 30000000000

[[tokenAllocations]]
address = "`+owner+`"
amount = 5000
`), 0o600))

	out := mustRun(t, dir, "config", "apply", patch)
	assert.Contains(t, out, "Applied 3 value(s)")

	assert.Equal(t, "30000000000\n", mustRun(t, dir, "config", "get", "feeConfig.minBaseFee"))
	assert.Equal(t, "48\n", mustRun(t, dir, "config", "get", "feeConfig.baseFeeChangeDenominator"))
	assert.Equal(t, owner+"\n", mustRun(t, dir, "config", "get", "tokenAllocations.0.address"))
}

func TestConfigApplyJSONFromStdinSkipsConflicts(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, `{"gasLimit":{"inner":1},"targetBlockRate":3}`, "config", "apply", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "1 value(s) did not fit")
	assert.Contains(t, out, "gasLimit.inner")
	assert.Contains(t, out, "Applied 1 value(s)", "skipped entries are not counted")
	assert.NotContains(t, out, "Applied 2")

	assert.Equal(t, "15000000\n", mustRun(t, dir, "config", "get", "gasLimit"))
	assert.Equal(t, "3\n", mustRun(t, dir, "config", "get", "targetBlockRate"))
}

func TestConfigApplyRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, dir, "[1,2]", "config", "apply", "-")
	assert.ErrorIs(t, err, confstore.ErrMalformedPatch)

	_, err = run(t, dir, "", "config", "apply", filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "reading patch")
}

func TestConfigQuery(t *testing.T) {
	dir := readyDir(t)
	out := mustRun(t, dir, "config", "query", "$.tokenAllocations[*].address")
	var got []string
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{owner}, got)
}

func TestConfigReset(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "config", "set", "gasLimit", "1")

	out, err := run(t, dir, "n\n", "config", "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	assert.Equal(t, "1\n", mustRun(t, dir, "config", "get", "gasLimit"))

	mustRun(t, dir, "config", "reset", "--yes")
	assert.Equal(t, "15000000\n", mustRun(t, dir, "config", "get", "gasLimit"))
}

func TestConfigFlat(t *testing.T) {
	out := mustRun(t, t.TempDir(), "config", "flat")
	assert.Contains(t, out, "feeConfig.targetGas")
	assert.Contains(t, out, "warpConfig.quorumNumerator")
	assert.Less(t, strings.Index(out, "chainName"), strings.Index(out, "warpConfig.enabled"))
}

// ---------------------------------------------------------------------------
// genesis
// ---------------------------------------------------------------------------

func TestGenesisValidateReportsErrors(t *testing.T) {
	out, err := run(t, t.TempDir(), "", "genesis", "validate")
	assert.ErrorIs(t, err, errDraftNotReady)
	assert.Contains(t, out, "tokenAllocations")
	assert.Contains(t, out, "1 error(s)")
}

func TestGenesisValidateReady(t *testing.T) {
	out := mustRun(t, readyDir(t), "genesis", "validate")
	assert.Contains(t, out, "No blocking errors")
}

func TestGenesisExportStdout(t *testing.T) {
	dir := readyDir(t)
	mustRun(t, dir, "config", "set", "evmChainId", "54321")
	out := mustRun(t, dir, "genesis", "export", "--stdout")

	var doc struct {
		Config struct {
			ChainID int64 `json:"chainId"`
		} `json:"config"`
		Alloc map[string]struct {
			Balance string `json:"balance"`
		} `json:"alloc"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, int64(54321), doc.Config.ChainID)
	require.Contains(t, doc.Alloc, owner)
	// The seeded 1,000,000 allocation is exported as is.
	assert.Equal(t, "0xf4240", doc.Alloc[owner].Balance)

	mustRun(t, dir, "settings", "set", "token_decimals", "18")
	out = mustRun(t, dir, "genesis", "export", "--stdout")
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "0xd3c21bcecceda1000000", doc.Alloc[owner].Balance)
}

func TestGenesisExportFile(t *testing.T) {
	dir := readyDir(t)
	mustRun(t, dir, "config", "set", "evmChainId", "54321")
	outDir := t.TempDir()
	mustRun(t, dir, "settings", "set", "output_dir", outDir)

	out := mustRun(t, dir, "genesis", "export")
	path := filepath.Join(outDir, "genesis-54321.json")
	assert.FileExists(t, path)
	assert.Contains(t, out, "keccak256")

	custom := filepath.Join(t.TempDir(), "nested", "g.json")
	mustRun(t, dir, "genesis", "export", "--out", custom)
	assert.FileExists(t, custom)
}

func TestGenesisExportRefusesInvalidDraft(t *testing.T) {
	_, err := run(t, t.TempDir(), "", "genesis", "export", "--stdout")
	assert.Error(t, err)
}

func TestGenesisPreview(t *testing.T) {
	out := mustRun(t, readyDir(t), "genesis", "preview")
	assert.Contains(t, out, "EVM chain ID")
	assert.Contains(t, out, "keccak256")

	out = mustRun(t, t.TempDir(), "genesis", "preview")
	assert.Contains(t, out, "1 error(s)")
	assert.NotContains(t, out, "keccak256")
}

// ---------------------------------------------------------------------------
// settings / network / progress / token
// ---------------------------------------------------------------------------

func TestSettings(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "settings", "set", "request_timeout", "45s")
	out := mustRun(t, dir, "settings", "list")
	assert.Contains(t, out, `"request_timeout": 45`)

	_, err := run(t, dir, "", "settings", "set", "owner_address", "0x123")
	assert.Error(t, err)
	_, err = run(t, dir, "", "settings", "set", "network", "devnet")
	assert.Error(t, err)
	_, err = run(t, dir, "", "settings", "set", "wallet", "x")
	assert.ErrorIs(t, err, config.ErrUnknownSetting)
}

func TestNetworkListMarksCurrent(t *testing.T) {
	dir := t.TempDir()
	out := mustRun(t, dir, "network", "list")
	assert.Contains(t, out, "fuji *")
	assert.Contains(t, out, "43114")

	out = mustRun(t, dir, "--mainnet", "network", "list")
	assert.Contains(t, out, "mainnet *")
}

func TestProgressShowAndReset(t *testing.T) {
	dir := t.TempDir()
	assert.Contains(t, mustRun(t, dir, "progress", "show"), "Step 1/6")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	require.NoError(t, cfg.ProgressKV().Set("avagen.progress", "4"))
	assert.Contains(t, mustRun(t, dir, "progress", "show"), "Step 4/6")

	mustRun(t, dir, "progress", "reset")
	assert.Contains(t, mustRun(t, dir, "progress", "show"), "Step 1/6")
}

func withKeystore(t *testing.T) *secrets.InMemoryKeystore {
	t.Helper()
	ks := secrets.NewInMemoryKeystore()
	prev := keystore
	keystore = func() secrets.Store { return ks }
	t.Cleanup(func() { keystore = prev })
	return ks
}

func TestTokenSetAndClear(t *testing.T) {
	ks := withKeystore(t)
	dir := t.TempDir()

	mustRun(t, dir, "token", "set", "abc")
	got, err := ks.Get(secrets.TokenRef)
	require.NoError(t, err)
	assert.Equal(t, "abc", got)

	_, err = run(t, dir, " def \n", "token", "set")
	require.NoError(t, err)
	got, _ = ks.Get(secrets.TokenRef)
	assert.Equal(t, "def", got)

	assert.Contains(t, mustRun(t, dir, "token", "clear"), "removed")
	assert.Contains(t, mustRun(t, dir, "token", "clear"), "No token stored")

	_, err = run(t, dir, "\n", "token", "set")
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// chat
// ---------------------------------------------------------------------------

type fakeAsker struct {
	mu   sync.Mutex
	reqs []assistant.Request
	resp *assistant.Response
	err  error
}

func (f *fakeAsker) Ask(_ context.Context, req assistant.Request) (*assistant.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.resp, f.err
}

func withAsker(t *testing.T, f *fakeAsker) {
	t.Helper()
	prev := newAsker
	newAsker = func(*config.Config) (assistant.Asker, error) { return f, nil }
	t.Cleanup(func() { newAsker = prev })
}

func TestChatOneShotAppliesUpdate(t *testing.T) {
	update, err := confstore.FromJSON([]byte(`{"gasLimit":20000000}`))
	require.NoError(t, err)
	fake := &fakeAsker{resp: &assistant.Response{Reply: "Raised the gas limit.", Update: update, Step: 3}}
	withAsker(t, fake)
	dir := t.TempDir()

	out := mustRun(t, dir, "chat", "raise", "the", "gas", "limit")
	assert.Contains(t, out, "Raised the gas limit.")
	assert.Contains(t, out, "Updated 1 field(s)")
	assert.Contains(t, out, "Chain Parameters")

	require.Len(t, fake.reqs, 1)
	assert.Equal(t, "raise the gas limit", fake.reqs[0].Question)
	assert.Equal(t, "20000000\n", mustRun(t, dir, "config", "get", "gasLimit"))
	assert.Contains(t, mustRun(t, dir, "progress", "show"), "Step 3/6")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	hist, err := cfg.LoadChat()
	require.NoError(t, err)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, assistant.RoleBot, hist.Messages[1].Role)

	// A second question carries the saved history.
	fake.resp = &assistant.Response{Reply: "ok"}
	mustRun(t, dir, "chat", "thanks")
	require.Len(t, fake.reqs, 2)
	assert.Contains(t, fake.reqs[1].ChatHistory, "User: raise the gas limit")
}

func TestChatREPLWithTags(t *testing.T) {
	fake := &fakeAsker{resp: &assistant.Response{Reply: "It caps gas per block."}}
	withAsker(t, fake)

	out, err := run(t, t.TempDir(), "@gasLimit\n\nwhat is this?\n/send feeConfig\nexit\n", "chat", "--new")
	require.NoError(t, err)
	assert.Contains(t, out, "attached gasLimit")
	assert.Contains(t, out, "It caps gas per block.")

	require.Len(t, fake.reqs, 2)
	assert.Equal(t, "@gasLimit what is this?", fake.reqs[0].Question)
	assert.True(t, strings.HasPrefix(fake.reqs[1].Question, "@feeConfig: {"))
	assert.Contains(t, fake.reqs[1].Question, `"minBaseFee": 25000000000`)
}

func TestChatFailureLeavesDraftUntouched(t *testing.T) {
	fake := &fakeAsker{err: errors.New("connection refused")}
	withAsker(t, fake)
	dir := t.TempDir()
	before := mustRun(t, dir, "config", "show")

	out := mustRun(t, dir, "chat", "hello")
	assert.Contains(t, out, assistant.FallbackMessage)
	assert.Equal(t, before, mustRun(t, dir, "config", "show"))
}

func TestChatFieldFlag(t *testing.T) {
	fake := &fakeAsker{resp: &assistant.Response{Reply: "fine"}}
	withAsker(t, fake)
	dir := t.TempDir()

	mustRun(t, dir, "chat", "--field", "evmChainId")
	require.Len(t, fake.reqs, 1)
	assert.True(t, strings.HasPrefix(fake.reqs[0].Question, "@evmChainId: "))

	_, err := run(t, dir, "", "chat", "--field", "missing")
	assert.Error(t, err)
}
