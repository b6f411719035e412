package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Mohsinsiddi/avagen/internal/confstore"
)

// FallbackMessage is shown as the assistant's reply when a call fails.
const FallbackMessage = "Sorry, something went wrong. Please try again."

var (
	// ErrBusy is returned when a question is sent while another is in flight.
	ErrBusy = errors.New("another question is still waiting for a reply")
	// ErrEmptyQuestion is returned for blank input.
	ErrEmptyQuestion = errors.New("question is empty")
)

// Role identifies the author of a message.
type Role string

const (
	RoleUser Role = "User"
	RoleBot  Role = "Bot"
)

// Message is one transcript entry.
type Message struct {
	ID      string    `json:"id"`
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
	Failed  bool      `json:"failed,omitempty"`
}

// Asker sends a question; *Client implements it.
type Asker interface {
	Ask(ctx context.Context, req Request) (*Response, error)
}

// Outcome describes what happened to one question. Err holds the transport
// failure behind a fallback reply; Warning holds a failure to apply the
// suggested update. Neither is fatal.
type Outcome struct {
	Reply   Message
	Patch   *confstore.Node
	Applied bool
	Step    int
	Warning error
	Err     error
}

// Session keeps the transcript and allows one question in flight at a time.
type Session struct {
	mu       sync.Mutex
	asker    Asker
	snapshot func() *confstore.Node
	apply    func(*confstore.Node) error
	timeout  time.Duration
	now      func() time.Time
	messages []Message
	tags     []string
	pending  bool
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithTimeout bounds each question. Non-positive values keep the default.
func WithTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithHistory seeds the transcript, e.g. from a saved conversation.
func WithHistory(msgs []Message) SessionOption {
	return func(s *Session) { s.messages = slices.Clone(msgs) }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// NewSession wires a session to its asker. snapshot supplies the current
// configuration sent with each question; apply merges a suggested update.
func NewSession(asker Asker, snapshot func() *confstore.Node, apply func(*confstore.Node) error, opts ...SessionOption) *Session {
	s := &Session{
		asker:    asker,
		snapshot: snapshot,
		apply:    apply,
		timeout:  DefaultTimeout,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Pending reports whether a question is waiting for its reply.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Messages returns a copy of the transcript.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// AddTag attaches a field reference to the next question.
func (s *Session) AddTag(field string) {
	field = strings.TrimPrefix(strings.TrimSpace(field), "@")
	if field == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.tags, field) {
		s.tags = append(s.tags, field)
	}
}

// RemoveTag detaches a field reference.
func (s *Session) RemoveTag(field string) {
	field = strings.TrimPrefix(strings.TrimSpace(field), "@")
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tags = slices.DeleteFunc(s.tags, func(t string) bool { return t == field })
}

// Tags returns the attached field references.
func (s *Session) Tags() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.tags)
}

// Transcript renders the conversation as "User: ..." / "Bot: ..." lines.
// Fallback replies are local and left out.
func Transcript(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m.Failed {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%s: %s", m.Role, m.Content)
	}
	return b.String()
}

// Send asks one question. Transport failures do not return an error: the
// outcome carries the fallback reply and the configuration is untouched.
func (s *Session) Send(ctx context.Context, question string) (*Outcome, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuestion
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	s.pending = true
	content := question
	if len(s.tags) > 0 {
		refs := make([]string, len(s.tags))
		for i, t := range s.tags {
			refs[i] = "@" + t
		}
		content = strings.Join(refs, " ") + " " + question
		s.tags = nil
	}
	history := Transcript(s.messages)
	s.messages = append(s.messages, s.message(RoleUser, content, false))
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.asker.Ask(ctx, Request{
		ChatHistory: history,
		UserConfig:  s.snapshot(),
		Question:    content,
	})
	if err != nil {
		reply := s.record(RoleBot, FallbackMessage, true)
		return &Outcome{Reply: reply, Err: err}, nil
	}

	out := &Outcome{
		Reply: s.record(RoleBot, resp.Reply, false),
		Patch: resp.Update,
		Step:  resp.Step,
	}
	if resp.Update != nil {
		if err := s.apply(resp.Update); err != nil {
			out.Warning = err
		} else {
			out.Applied = true
		}
	}
	return out, nil
}

// SendFieldData sends a field's value as "@field: <json>".
func (s *Session) SendFieldData(ctx context.Context, field string, value any) (*Outcome, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", field, err)
	}
	return s.Send(ctx, fmt.Sprintf("@%s: %s", field, data))
}

func (s *Session) record(role Role, content string, failed bool) Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.message(role, content, failed)
	s.messages = append(s.messages, m)
	return m
}

func (s *Session) message(role Role, content string, failed bool) Message {
	return Message{
		ID:      uuid.NewString(),
		Role:    role,
		Content: content,
		Time:    s.now(),
		Failed:  failed,
	}
}
