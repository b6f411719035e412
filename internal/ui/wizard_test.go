package ui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/avagen/internal/confstore"
	"github.com/Mohsinsiddi/avagen/internal/steps"
)

func keys(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyDown  = tea.KeyMsg{Type: tea.KeyDown}
	keyUp    = tea.KeyMsg{Type: tea.KeyUp}
	keyRight = tea.KeyMsg{Type: tea.KeyRight}
	keyLeft  = tea.KeyMsg{Type: tea.KeyLeft}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keyBack  = tea.KeyMsg{Type: tea.KeyBackspace}
)

// ---------------------------------------------------------------------------
// Setup wizard
// ---------------------------------------------------------------------------

func TestSetupWizardCollectsAnswers(t *testing.T) {
	var m tea.Model = initialSetup()
	m, _ = m.Update(keyDown)
	m, _ = m.Update(keyEnter)
	assert.Equal(t, "mainnet", m.(setupModel).result.Network)

	m, _ = m.Update(keys("http://localhost:9000/chat"))
	m, _ = m.Update(keyEnter)
	m, _ = m.Update(keys("[0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed]"))
	m, _ = m.Update(keyEnter)
	m, cmd := m.Update(keyEnter)

	sm := m.(setupModel)
	require.NotNil(t, cmd, "finishing quits the program")
	assert.Equal(t, stepDone, sm.step)
	assert.False(t, sm.quitting)
	assert.Equal(t, SetupResult{
		Network:      "mainnet",
		AssistantURL: "http://localhost:9000/chat",
		OwnerAddress: "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
	}, sm.result)
}

func TestSetupWizardBackspaceAndQuit(t *testing.T) {
	var m tea.Model = initialSetup()
	m, _ = m.Update(keyEnter)
	m, _ = m.Update(keys("abc"))
	m, _ = m.Update(keyBack)
	assert.Equal(t, "ab", m.(setupModel).input)

	m, cmd := m.Update(keyEsc)
	assert.True(t, m.(setupModel).quitting)
	assert.NotNil(t, cmd)
}

func TestSetupWizardQOnlyQuitsMenus(t *testing.T) {
	var m tea.Model = initialSetup()
	m, _ = m.Update(keys("q"))
	assert.True(t, m.(setupModel).quitting)

	m = initialSetup()
	m, _ = m.Update(keyEnter)
	m, _ = m.Update(keys("q"))
	assert.False(t, m.(setupModel).quitting)
	assert.Equal(t, "q", m.(setupModel).input)
}

// ---------------------------------------------------------------------------
// Step wizard
// ---------------------------------------------------------------------------

func wizardFixture(t *testing.T) (*confstore.Store, *[]int, StepWizard) {
	t.Helper()
	defaults := func() *confstore.Node {
		n, err := confstore.FromJSON([]byte(`{
			"gasLimit": 15000000,
			"feeManagerEnabled": false,
			"mode": "a",
			"feeConfig": {"minBaseFee": 25000000000}
		}`))
		require.NoError(t, err)
		return n
	}
	store := confstore.New(defaults)
	var moves []int
	nav := steps.NewNavigator([]steps.Step{
		{Title: "One", Fields: []steps.Field{
			{Path: "gasLimit", Heading: "Gas Limit", Value: steps.NumberValue},
			{Path: "feeManagerEnabled", Heading: "Fee manager", Kind: steps.Toggle},
			{Path: "mode", Heading: "Mode", Kind: steps.Radio, Options: []steps.Option{
				{Label: "Alpha", Value: confstore.String("a")},
				{Label: "Beta", Value: confstore.String("b")},
			}},
		}},
		{Title: "Two", Fields: []steps.Field{
			{Path: "feeConfig.minBaseFee", Heading: "Min Base Fee (gwei)", Value: steps.GweiValue},
		}},
	})
	w := StepWizard{
		Store: store,
		Nav:   nav,
		Check: func(n *confstore.Node) (map[string]string, map[string]string) {
			errs := map[string]string{}
			if l, _ := confstore.Lookup(n, "feeManagerEnabled").Leaf(); l.String() == "true" {
				errs["feeManagerAdmins"] = "Fee manager needs at least one admin"
			}
			return errs, map[string]string{}
		},
		OnStep: func(n int) error {
			moves = append(moves, n)
			return nil
		},
	}
	return store, &moves, w
}

func TestStepWizardEditsInputField(t *testing.T) {
	store, _, w := wizardFixture(t)
	var m tea.Model = newStepWizardModel(w)

	m, _ = m.Update(keyEnter)
	sm := m.(stepWizardModel)
	require.True(t, sm.editing)
	assert.Equal(t, "15000000", sm.input)

	for range 8 {
		m, _ = m.Update(keyBack)
	}
	m, _ = m.Update(keys("20000000"))
	m, _ = m.Update(keyEnter)
	assert.False(t, m.(stepWizardModel).editing)

	l, ok := store.GetLeaf("gasLimit")
	require.True(t, ok)
	assert.Equal(t, confstore.LeafNumber, l.Kind())
	assert.Equal(t, "20000000", l.String())
}

func TestStepWizardEscCancelsEdit(t *testing.T) {
	store, _, w := wizardFixture(t)
	var m tea.Model = newStepWizardModel(w)
	m, _ = m.Update(keyEnter)
	m, _ = m.Update(keys("9"))
	m, cmd := m.Update(keyEsc)

	assert.Nil(t, cmd, "esc while editing only leaves the field")
	assert.False(t, m.(stepWizardModel).editing)
	got, _ := store.GetValue("gasLimit")
	assert.Equal(t, "15000000", got)
}

func TestStepWizardToggleAndChecks(t *testing.T) {
	store, _, w := wizardFixture(t)
	var m tea.Model = newStepWizardModel(w)
	assert.Empty(t, m.(stepWizardModel).errs)

	m, _ = m.Update(keyDown)
	m, _ = m.Update(keyEnter)
	got, _ := store.GetValue("feeManagerEnabled")
	assert.Equal(t, "true", got)
	assert.Contains(t, m.View(), "Fee manager needs at least one admin")
	assert.Contains(t, m.View(), "1 issue(s) block export")

	m, _ = m.Update(keyEnter)
	got, _ = store.GetValue("feeManagerEnabled")
	assert.Equal(t, "false", got)
	assert.Contains(t, m.View(), "ready to export")
}

func TestStepWizardCyclesRadio(t *testing.T) {
	store, _, w := wizardFixture(t)
	var m tea.Model = newStepWizardModel(w)
	m, _ = m.Update(keyDown)
	m, _ = m.Update(keyDown)

	m, _ = m.Update(keyEnter)
	got, _ := store.GetValue("mode")
	assert.Equal(t, "b", got)
	assert.Contains(t, m.View(), "Beta")

	_, _ = m.Update(keyEnter)
	got, _ = store.GetValue("mode")
	assert.Equal(t, "a", got)
}

func TestStepWizardNavigatesStepsAndRejectsBadInput(t *testing.T) {
	store, moves, w := wizardFixture(t)
	var m tea.Model = newStepWizardModel(w)

	m, _ = m.Update(keyRight)
	m, _ = m.Update(keyRight) // already on the last step
	assert.Equal(t, []int{2}, *moves)
	assert.Contains(t, m.View(), "Step 2/2 · Two")

	m, _ = m.Update(keyEnter)
	assert.Equal(t, "25", m.(stepWizardModel).input, "gwei fields edit in gwei")
	m, _ = m.Update(keys("x"))
	m, _ = m.Update(keyEnter)
	sm := m.(stepWizardModel)
	assert.True(t, sm.editing, "bad input keeps the editor open")
	assert.Contains(t, sm.status, "invalid input")
	got, _ := store.GetValue("feeConfig.minBaseFee")
	assert.Equal(t, "25000000000", got)

	m, _ = m.Update(keyEsc)
	m, _ = m.Update(keyLeft)
	assert.Equal(t, []int{2, 1}, *moves)
	assert.Equal(t, 0, m.(stepWizardModel).cursor)
}

func TestStepWizardReportsStepSaveFailure(t *testing.T) {
	_, _, w := wizardFixture(t)
	w.OnStep = func(int) error { return errors.New("disk full") }
	var m tea.Model = newStepWizardModel(w)
	m, _ = m.Update(keyRight)
	assert.Equal(t, "disk full", m.(stepWizardModel).status)
}

func TestStepWizardAddsAndRemovesGroupItems(t *testing.T) {
	store := confstore.New(func() *confstore.Node {
		n, err := confstore.FromJSON([]byte(`{"tokenAllocations":[{"address":"0xaa","amount":1}]}`))
		require.NoError(t, err)
		return n
	})
	group := &steps.Group{
		Path:  "tokenAllocations",
		Label: "Allocation",
		Fields: []steps.Field{
			{Path: "address", Heading: "Recipient"},
			{Path: "amount", Heading: "Amount", Value: steps.NumberValue},
		},
		NewItem: func() *confstore.Node {
			return confstore.NewObject().
				Set("address", confstore.LeafNode(confstore.String(""))).
				Set("amount", confstore.LeafNode(confstore.Int(0)))
		},
	}
	w := StepWizard{
		Store: store,
		Nav:   steps.NewNavigator([]steps.Step{{Title: "Tokenomics", Group: group}}),
		Check: func(n *confstore.Node) (map[string]string, map[string]string) {
			if confstore.Lookup(n, "tokenAllocations").Len() == 0 {
				return map[string]string{"tokenAllocations": "At least one token allocation is required"}, nil
			}
			return map[string]string{}, nil
		},
	}
	var m tea.Model = newStepWizardModel(w)
	assert.Contains(t, m.View(), "Allocation 1 · Recipient")
	assert.Contains(t, m.View(), "a add")

	m, _ = m.Update(keys("a"))
	assert.Equal(t, 2, m.(stepWizardModel).cursor, "cursor jumps to the new item")
	got, ok := store.GetValue("tokenAllocations.1.amount")
	require.True(t, ok)
	assert.Equal(t, "0", got)

	m, _ = m.Update(keyEnter)
	m, _ = m.Update(keys("0xbb"))
	m, _ = m.Update(keyEnter)
	got, _ = store.GetValue("tokenAllocations.1.address")
	assert.Equal(t, "0xbb", got)

	m, _ = m.Update(keyUp)
	m, _ = m.Update(keyUp)
	m, _ = m.Update(keys("d"))
	got, _ = store.GetValue("tokenAllocations.0.address")
	assert.Equal(t, "0xbb", got, "later items shift down")
	_, ok = store.GetValue("tokenAllocations.1.address")
	assert.False(t, ok)

	m, _ = m.Update(keys("d"))
	assert.Equal(t, 0, m.(stepWizardModel).cursor)
	view := m.View()
	assert.Contains(t, view, "No allocations yet")
	assert.Contains(t, view, "At least one token allocation is required")

	m, _ = m.Update(keys("d"))
	assert.Empty(t, m.(stepWizardModel).status, "removing from an empty list is a no-op")
}

func TestStepWizardQuit(t *testing.T) {
	_, _, w := wizardFixture(t)
	var m tea.Model = newStepWizardModel(w)
	m, cmd := m.Update(keys("q"))
	assert.True(t, m.(stepWizardModel).quitting)
	assert.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

func TestIssuesFor(t *testing.T) {
	msgs := map[string]string{
		"feeManagerAdmins":             "need admin",
		"feeManagerAdmins.0":           "bad admin",
		"txAllowListConfig":            "empty list",
		"txAllowListConfig.admins.1":   "bad address",
		"gasLimit":                     "low",
		"gasLimitExtra":                "other",
		"tokenAllocations.0.address":   "bad",
		"tokenAllocations.0.addressee": "other",
	}
	assert.Equal(t, []string{"need admin", "bad admin"}, issuesFor("feeManagerEnabled", msgs))
	assert.Equal(t, []string{"empty list", "bad address"}, issuesFor("txAllowListConfig.enabled", msgs))
	assert.Equal(t, []string{"low"}, issuesFor("gasLimit", msgs))
	assert.Equal(t, []string{"bad"}, issuesFor("tokenAllocations.0.address", msgs))
	assert.Empty(t, issuesFor("chainName", msgs))
}

// ---------------------------------------------------------------------------
// Picker
// ---------------------------------------------------------------------------

func TestStepItems(t *testing.T) {
	items := StepItems(steps.Catalogue(), 2)
	require.Len(t, items, 6)
	assert.Equal(t, "1. Create a Subnet", items[0].Label)
	assert.Equal(t, "2", items[1].Value)
	assert.Contains(t, items[1].SubLabel, "current")
	assert.NotContains(t, items[0].SubLabel, "current")
}

func TestPickerSelects(t *testing.T) {
	var m tea.Model = pickerModel{title: "Jump", items: StepItems(steps.Catalogue(), 1)}
	m, _ = m.Update(keys("j"))
	m, _ = m.Update(keyDown)
	m, cmd := m.Update(keyEnter)
	pm := m.(pickerModel)
	require.NotNil(t, pm.selected)
	assert.Equal(t, "3", pm.selected.Value)
	assert.NotNil(t, cmd)
}

// ---------------------------------------------------------------------------
// Live preview
// ---------------------------------------------------------------------------

func TestPreviewDashboard(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)
	calls := 0
	m := newPreviewModel(time.Second, func() (*Preview, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("draft.json: unexpected end of JSON input")
		}
		return &Preview{
			Hash:     "0xabc123",
			Summary:  [][2]string{{"Chain ID", "43113"}},
			Warnings: map[string]string{"gasLimit": "Gas limit below 15M"},
		}, nil
	})
	m.now = func() time.Time { return fixed }
	assert.Contains(t, m.View(), "Loading")

	var tm tea.Model = m
	tm, _ = tm.Update(m.loadCmd()())
	view := tm.View()
	assert.Contains(t, view, "15:04:05")
	assert.Contains(t, view, "Ready to export")
	assert.Contains(t, view, "0xabc123")
	assert.Contains(t, view, "Gas limit below 15M")

	tm, _ = tm.Update(m.loadCmd()())
	view = tm.View()
	assert.Contains(t, view, "unexpected end of JSON input")
	assert.Contains(t, view, "0xabc123", "last good preview stays visible")

	tm, cmd := tm.Update(keys("q"))
	assert.NotNil(t, cmd)
	assert.Empty(t, tm.View())
}

func TestPreviewDashboardShowsErrors(t *testing.T) {
	m := newPreviewModel(time.Second, nil)
	var tm tea.Model = m
	tm, _ = tm.Update(previewLoadedMsg{&Preview{Errors: map[string]string{"tokenAllocations": "At least one allocation is required"}}})
	view := tm.View()
	assert.Contains(t, view, "1 error(s)")
	assert.Contains(t, view, "At least one allocation is required")
	assert.NotContains(t, view, "Ready to export")
}
