package cmd

import (
	"fmt"

	"github.com/Mohsinsiddi/avagen/internal/config"
	"github.com/Mohsinsiddi/avagen/internal/confstore"
	"github.com/Mohsinsiddi/avagen/internal/genesis"
	"github.com/Mohsinsiddi/avagen/internal/ui"
)

// draft is the configuration store persisted to draft.json. Every change
// is written back through a store observer.
type draft struct {
	*confstore.Store
	saveErr error
}

func openDraft(c *config.Config) (*draft, error) {
	defaults := genesis.Defaults(genesis.DefaultOptions{
		SubnetOwner:  c.SubnetOwner,
		OwnerAddress: c.OwnerAddress,
	})

	saved, err := c.LoadDraft()
	if err != nil {
		return nil, err
	}
	d := &draft{}
	if saved == nil {
		ui.Debugf("no draft yet, starting from defaults")
		d.Store = confstore.New(defaults)
		// Persist right away so the drawn chain ID stays stable.
		if err := c.SaveDraft(d.SnapshotNested()); err != nil {
			return nil, fmt.Errorf("saving draft: %w", err)
		}
	} else {
		d.Store, err = confstore.Restore(defaults, saved)
		if err != nil {
			return nil, fmt.Errorf("draft.json: %w", err)
		}
	}
	d.Subscribe(func(n *confstore.Node) {
		d.saveErr = c.SaveDraft(n)
		ui.Debugf("draft saved to %s", c.Dir())
	})
	return d, nil
}

// Err reports the last failed save, if any.
func (d *draft) Err() error {
	if d.saveErr != nil {
		return fmt.Errorf("saving draft: %w", d.saveErr)
	}
	return nil
}

func checkDraft(n *confstore.Node) genesis.Result {
	_, res := genesis.Check(n)
	return res
}

func buildOptions() genesis.BuildOptions {
	return genesis.BuildOptions{Decimals: cfg.TokenDecimals}
}

// exportDraft validates the draft and encodes its genesis document.
func exportDraft(d *draft) (*genesis.Document, []byte, error) {
	form, res := genesis.Check(d.SnapshotNested())
	if !res.Ready() {
		return nil, nil, fmt.Errorf("%w: run `avagen genesis validate` for details", genesis.ErrNotReady)
	}
	doc, err := genesis.Build(form, buildOptions())
	if err != nil {
		return nil, nil, err
	}
	data, err := genesis.Encode(doc)
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}
