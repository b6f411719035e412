package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mohsinsiddi/avagen/internal/assistant"
	"github.com/Mohsinsiddi/avagen/internal/config"
	"github.com/Mohsinsiddi/avagen/internal/confstore"
	"github.com/Mohsinsiddi/avagen/internal/progress"
	"github.com/Mohsinsiddi/avagen/internal/secrets"
	"github.com/Mohsinsiddi/avagen/internal/steps"
	"github.com/Mohsinsiddi/avagen/internal/ui"
)

var (
	chatTags  []string
	chatField string
	chatFresh bool
)

// newAsker is replaced in tests.
var newAsker = func(c *config.Config) (assistant.Asker, error) {
	token, err := secrets.Token(keystore())
	if err != nil {
		ui.Debugf("no assistant token: %v", err)
	}
	return assistant.NewClient(c.AssistantURL, assistant.WithToken(token)), nil
}

var chatCmd = &cobra.Command{
	Use:   "chat [question]",
	Short: "Ask the assistant to explain or change the draft",
	Long: `Ask the chat assistant about the draft. With a question, ask once and
exit; without one, start an interactive session (type "exit" to leave).

Inside a session, "@path" on its own line attaches a field to the next
question and "/send path" sends the field's current value.

Changes the assistant proposes are merged into the draft immediately.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDraft(cfg)
		if err != nil {
			return err
		}
		tr, err := progress.Load(cfg.ProgressKV())
		if err != nil {
			return err
		}
		history := &config.ChatFile{}
		if !chatFresh {
			if history, err = cfg.LoadChat(); err != nil {
				return fmt.Errorf("reading chat history: %w", err)
			}
		}
		asker, err := newAsker(cfg)
		if err != nil {
			return err
		}

		c := &chatRunner{
			out:     cmd.OutOrStdout(),
			errOut:  cmd.ErrOrStderr(),
			draft:   d,
			tracker: tr,
			session: assistant.NewSession(asker, d.SnapshotNested, d.MergePatch,
				assistant.WithTimeout(cfg.Timeout()),
				assistant.WithHistory(history.Messages)),
		}
		for _, t := range chatTags {
			c.session.AddTag(t)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		switch {
		case chatField != "":
			err = c.sendField(ctx, chatField)
		case len(args) > 0:
			err = c.ask(ctx, strings.Join(args, " "))
		default:
			err = c.repl(ctx, cmd.InOrStdin())
		}
		if saveErr := cfg.SaveChat(&config.ChatFile{Messages: c.session.Messages()}); saveErr != nil {
			return errors.Join(err, fmt.Errorf("saving chat history: %w", saveErr))
		}
		return err
	},
}

type chatRunner struct {
	out     io.Writer
	errOut  io.Writer
	draft   *draft
	tracker *progress.Tracker
	session *assistant.Session
}

func (c *chatRunner) repl(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(c.out, ui.Meta("Ask about your chain configuration. @path attaches a field, /send path sends its value, exit quits."))
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, ui.StyleBrand.Render("you › "))
		if !sc.Scan() {
			fmt.Fprintln(c.out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
			continue
		case line == "exit" || line == "quit":
			return nil
		case strings.HasPrefix(line, "@") && !strings.Contains(line, " "):
			c.session.AddTag(line)
			fmt.Fprintln(c.out, ui.Meta("attached "+strings.Join(c.session.Tags(), ", ")))
			continue
		case strings.HasPrefix(line, "/send "):
			if err := c.sendField(ctx, strings.TrimSpace(strings.TrimPrefix(line, "/send "))); err != nil {
				fmt.Fprintln(c.out, ui.Err(err.Error()))
			}
			continue
		}
		if err := c.ask(ctx, line); err != nil {
			fmt.Fprintln(c.out, ui.Err(err.Error()))
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *chatRunner) ask(ctx context.Context, q string) error {
	return c.run(func() (*assistant.Outcome, error) { return c.session.Send(ctx, q) })
}

func (c *chatRunner) sendField(ctx context.Context, path string) error {
	sub := confstore.Lookup(c.draft.SnapshotNested(), path)
	if sub == nil {
		return fmt.Errorf("%s is not set", path)
	}
	return c.run(func() (*assistant.Outcome, error) { return c.session.SendFieldData(ctx, path, sub) })
}

func (c *chatRunner) run(send func() (*assistant.Outcome, error)) error {
	sp := ui.NewSpinner(c.errOut, "Thinking…")
	sp.Start()
	out, err := send()
	sp.Stop()
	if err != nil {
		return err
	}
	c.report(out)
	return c.draft.Err()
}

func (c *chatRunner) report(o *assistant.Outcome) {
	if o.Err != nil {
		fmt.Fprintln(c.out, ui.Err(o.Reply.Content))
		ui.Debugf("assistant error: %v", o.Err)
		return
	}
	fmt.Fprintln(c.out, ui.StyleInfo.Render("bot › ")+o.Reply.Content)

	if o.Warning != nil {
		fmt.Fprintln(c.out, ui.Warn("Part of the suggested change could not be applied: "+o.Warning.Error()))
	}
	if o.Patch != nil {
		flat := confstore.Flatten(o.Patch)
		paths := make(map[string]string, len(flat))
		for p, l := range flat {
			paths[p] = l.String()
		}
		if o.Applied {
			fmt.Fprintln(c.out, ui.Success(fmt.Sprintf("Updated %d field(s)", len(paths))))
		}
		for _, p := range confstore.SortedPaths(paths) {
			fmt.Fprintf(c.out, "  %s = %s\n", ui.Path(p), ui.Val(paths[p]))
		}
	}
	if o.Step > 0 {
		if moved, err := c.tracker.Update(o.Step); err != nil {
			fmt.Fprintln(c.out, ui.Warn(err.Error()))
		} else if moved {
			if s := o.Step; s <= len(steps.Catalogue()) {
				fmt.Fprintln(c.out, ui.Info(fmt.Sprintf("Progress: step %d, %s", s, steps.Catalogue()[s-1].Title)))
			}
		}
	}
}

func init() {
	chatCmd.Flags().StringSliceVarP(&chatTags, "tag", "t", nil, "attach field paths to the question (repeatable)")
	chatCmd.Flags().StringVar(&chatField, "field", "", "send the current value of a field to the assistant")
	chatCmd.Flags().BoolVar(&chatFresh, "new", false, "start without the saved chat history")
}
