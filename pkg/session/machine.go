package session

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/sahilm/fuzzy"
	"golang.org/x/text/cases"

	"github.com/xob0t/FormStencil/pkg/keylock"
	"github.com/xob0t/FormStencil/pkg/layout"
	"github.com/xob0t/FormStencil/pkg/template"
)

// maxSuggestions caps the "did you mean" list after a failed selection.
const maxSuggestions = 3

// Machine is the fill session state machine. It is safe for concurrent use;
// turns of one user run one at a time, turns of different users in parallel.
type Machine struct {
	deps     Deps
	sessions *cache.Cache
	locks    keylock.Locks[int64]
	now      func() time.Time
	log      *slog.Logger
}

// New creates a Machine. Auth, Templates, Layouts and Filler must be set.
func New(d Deps) *Machine {
	ttl := d.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m := &Machine{
		deps:     d,
		sessions: cache.New(ttl, 2*ttl),
		now:      d.Now,
		log:      d.Logger,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.log == nil {
		m.log = slog.New(slog.DiscardHandler)
	}
	return m
}

// ── Session storage ──

func key(user int64) string {
	return strconv.FormatInt(user, 10)
}

func (m *Machine) lock(user int64) func() {
	return m.locks.Lock(user)
}

func (m *Machine) load(user int64) Session {
	if v, ok := m.sessions.Get(key(user)); ok {
		return v.(Session)
	}
	return Session{}
}

func (m *Machine) store(user int64, s Session) {
	if s.Stage == Idle {
		m.sessions.Delete(key(user))
		return
	}
	m.sessions.Set(key(user), s, cache.DefaultExpiration)
}

// Session returns a copy of the user's current session. Users without one
// are Idle.
func (m *Machine) Session(user int64) Session {
	s := m.load(user)
	s.Templates = slices.Clone(s.Templates)
	s.Fields = slices.Clone(s.Fields)
	return s
}

// Reset returns the user to Idle.
func (m *Machine) Reset(user int64) {
	unlock := m.lock(user)
	defer unlock()
	m.sessions.Delete(key(user))
}

// ── Turns ──

// Effect is a reply produced by a transition. An Effect with Image set is
// delivered as that file with Message.Text as its caption.
type Effect struct {
	Message Message
	Image   string
}

func say(text string) []Effect {
	return []Effect{{Message: Message{Text: text}}}
}

func sayMarkdown(text string) []Effect {
	return []Effect{{Message: Message{Text: text, Markdown: true}}}
}

// turn runs one transition under the user's lock, commits the new session
// and then delivers the effects in order.
func (m *Machine) turn(ctx context.Context, user int64, r Replier, step func(Session) (Session, []Effect)) error {
	unlock := m.lock(user)
	defer unlock()

	next, effects := step(m.load(user))
	m.store(user, next)
	return m.deliver(ctx, user, effects, r)
}

func (m *Machine) deliver(ctx context.Context, user int64, effects []Effect, r Replier) error {
	var errs []error
	for _, e := range effects {
		if e.Image == "" {
			errs = append(errs, r.SendText(ctx, e.Message))
			continue
		}
		if err := r.SendImage(ctx, e.Image, e.Message.Text); err != nil {
			m.log.Error("send document failed", "user", user, "path", e.Image, "err", err)
			errs = append(errs, r.SendText(ctx, Message{Text: msgSendFailed}))
			continue
		}
		m.log.Info("document delivered", "user", user, "path", e.Image)
	}
	return errors.Join(errs...)
}

// BeginFill starts a fill by listing the available templates. Any flow in
// progress is discarded.
func (m *Machine) BeginFill(ctx context.Context, user int64, r Replier) error {
	return m.turn(ctx, user, r, func(Session) (Session, []Effect) {
		if !m.deps.Auth.IsAuthenticated(user) {
			m.log.Warn("fill denied", "user", user)
			return Session{}, say(msgAccessDenied)
		}
		return m.listTemplates(user)
	})
}

// BeginConfig starts a layout submission. Any flow in progress is discarded.
func (m *Machine) BeginConfig(ctx context.Context, user int64, r Replier) error {
	return m.turn(ctx, user, r, func(Session) (Session, []Effect) {
		if !m.deps.Auth.IsAuthenticated(user) {
			m.log.Warn("config denied", "user", user)
			return Session{}, say(msgAccessDenied)
		}
		return Session{Stage: AwaitingConfig}, sayMarkdown(configPrompt(layout.ExampleJSON()))
	})
}

// Input advances the user's session with one free-text message. A user who
// is no longer authenticated loses any flow in progress.
func (m *Machine) Input(ctx context.Context, user int64, text string, r Replier) error {
	return m.turn(ctx, user, r, func(s Session) (Session, []Effect) {
		if !m.deps.Auth.IsAuthenticated(user) {
			return Session{}, say(msgAccessDenied)
		}
		m.log.Debug("input", "user", user, "stage", s.Stage)
		switch s.Stage {
		case ListedTemplates:
			return m.selectTemplate(ctx, s, text)
		case CollectingData:
			return m.collectData(ctx, user, s, text)
		case AwaitingConfig:
			return m.submitConfig(ctx, user, text)
		default:
			return s, say(msgIdleHint)
		}
	})
}

func (m *Machine) listTemplates(user int64) (Session, []Effect) {
	names := m.deps.Templates.List()
	if len(names) == 0 {
		return Session{}, say(msgNoTemplates)
	}
	m.log.Debug("templates listed", "user", user, "count", len(names))
	return Session{Stage: ListedTemplates, Templates: names}, say(templateList(names))
}

func (m *Machine) selectTemplate(ctx context.Context, s Session, text string) (Session, []Effect) {
	name, ok := SelectTemplate(s.Templates, text)
	if !ok {
		return s, say(noMatch(suggest(s.Templates, text)))
	}

	l, found := m.deps.Layouts.Load(ctx, name)
	if !found || l.Empty() {
		return Session{}, say(layoutMissing(name))
	}
	return Session{Stage: CollectingData, Selected: name, Fields: l.FieldNames()},
		say(fieldPrompt(name, template.FormatFields(l)))
}

func (m *Machine) collectData(ctx context.Context, user int64, s Session, text string) (Session, []Effect) {
	req := template.ParseFillRequest(text)
	if len(req) == 0 {
		return s, sayMarkdown(msgUnparseable)
	}

	output := filepath.Join(m.deps.OutputDir, template.OutputName(s.Selected, m.now()))
	res, err := m.deps.Filler.Fill(ctx, s.Selected, req, output)
	if err != nil {
		m.log.Error("fill failed", "user", user, "template", s.Selected, "err", err)
		return Session{}, say(fillFailure(s.Selected, err))
	}
	return Session{}, []Effect{{
		Message: Message{Text: fillCaption(s.Selected, res.Filled)},
		Image:   res.OutputPath,
	}}
}

func (m *Machine) submitConfig(ctx context.Context, user int64, text string) (Session, []Effect) {
	l, err := layout.ParseSubmission([]byte(text), m.now())
	if err != nil {
		m.log.Warn("config rejected", "user", user, "err", err)
		return Session{}, say(configInvalid(err))
	}
	if err := m.deps.Layouts.Save(ctx, l.TemplateName, l); err != nil {
		m.log.Error("config save failed", "user", user, "template", l.TemplateName, "err", err)
		return Session{}, say(msgConfigSaveError)
	}

	known := slices.Contains(m.deps.Templates.List(), l.TemplateName)
	m.log.Info("config saved", "user", user, "template", l.TemplateName, "fields", len(l.Fields), "template_present", known)
	return Session{}, say(configSaved(l.TemplateName, known))
}

func fillFailure(name string, err error) string {
	switch {
	case errors.Is(err, template.ErrTemplateNotFound):
		return templateGone(name)
	case errors.Is(err, template.ErrLayoutMissing):
		return layoutMissing(name)
	default:
		return msgRenderFailed
	}
}

// ── Selection ──

// SelectTemplate picks a template from names by 1-based ordinal or by
// case-insensitive substring, first match in list order. An integer input
// is only ever treated as an ordinal.
func SelectTemplate(names []string, input string) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", false
	}

	if n, err := strconv.Atoi(input); err == nil {
		if n < 1 || n > len(names) {
			return "", false
		}
		return names[n-1], true
	}

	fold := cases.Fold()
	needle := fold.String(input)
	for _, name := range names {
		if strings.Contains(fold.String(name), needle) {
			return name, true
		}
	}
	return "", false
}

func suggest(names []string, input string) []string {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	var out []string
	for _, match := range fuzzy.Find(input, names) {
		out = append(out, match.Str)
		if len(out) == maxSuggestions {
			break
		}
	}
	return out
}
