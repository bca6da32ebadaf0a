// Package session drives the per-operator fill and configuration dialogue.
//
// A Machine keeps one Session per user and advances it one message at a time.
// It never talks to a chat network directly: replies go through a Replier and
// authorization is asked of an Authenticator, so any transport can host it.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/xob0t/FormStencil/pkg/layout"
	"github.com/xob0t/FormStencil/pkg/template"
)

// Stage is the point a user's dialogue has reached.
type Stage int

const (
	Idle Stage = iota
	ListedTemplates
	CollectingData
	AwaitingConfig
)

func (s Stage) String() string {
	switch s {
	case Idle:
		return "idle"
	case ListedTemplates:
		return "listed_templates"
	case CollectingData:
		return "collecting_data"
	case AwaitingConfig:
		return "awaiting_config"
	}
	return "unknown"
}

// Session is one user's dialogue state.
type Session struct {
	Stage     Stage
	Templates []string // listing shown in ListedTemplates, in display order
	Selected  string   // template chosen for CollectingData
	Fields    []string // layout fields of Selected
}

// Message is a text reply. Markdown marks text using Markdown formatting.
type Message struct {
	Text     string
	Markdown bool
}

// Replier delivers replies to the user a turn belongs to.
type Replier interface {
	SendText(ctx context.Context, msg Message) error
	SendImage(ctx context.Context, path, caption string) error
}

// Authenticator reports whether a user may use the machine.
type Authenticator interface {
	IsAuthenticated(userID int64) bool
}

// Lister lists template names in display order.
type Lister interface {
	List() []string
}

// Filler renders a fill request.
type Filler interface {
	Fill(ctx context.Context, name string, req template.FillRequest, output string) (*template.Result, error)
}

// Deps are the collaborators of a Machine.
type Deps struct {
	Auth      Authenticator
	Templates Lister
	Layouts   layout.Store
	Filler    Filler
	OutputDir string

	// TTL expires idle sessions. Zero means DefaultTTL.
	TTL time.Duration

	// Now stamps output names and layout records. Nil means time.Now.
	Now func() time.Time

	// Logger receives turn diagnostics. Nil discards them.
	Logger *slog.Logger
}

// DefaultTTL is how long an untouched session survives.
const DefaultTTL = 30 * time.Minute
