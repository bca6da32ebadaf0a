// Package bot routes operator messages to commands and the fill session machine.
package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/xob0t/FormStencil/pkg/session"
)

// Gate is the login surface the router needs.
type Gate interface {
	session.Authenticator
	Login(user int64, password string) bool
	Logout(user int64)
}

// Command names, without the leading slash.
const (
	CmdStart     = "start"
	CmdHelp      = "help"
	CmdLogin     = "login"
	CmdLogout    = "logout"
	CmdTemplates = "templates"
	CmdFill      = "fill"
	CmdConfig    = "config"
)

// Router dispatches one message per call. Slash commands are handled here;
// any other text is session input.
type Router struct {
	gate      Gate
	machine   *session.Machine
	templates session.Lister
	log       *slog.Logger
}

// NewRouter creates a router. A nil logger discards diagnostics.
func NewRouter(gate Gate, machine *session.Machine, templates session.Lister, log *slog.Logger) *Router {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Router{gate: gate, machine: machine, templates: templates, log: log}
}

// ParseCommand splits "/name@bot args" into its lower-case name and the
// trimmed argument text. ok is false for text that is not a command.
func ParseCommand(text string) (name, args string, ok bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") || len(text) == 1 {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	head, _, _ = strings.Cut(head, "@")
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}

// Handle processes one message from user.
func (r *Router) Handle(ctx context.Context, user int64, text string, rep session.Replier) error {
	name, args, ok := ParseCommand(text)
	if !ok {
		return r.machine.Input(ctx, user, text, rep)
	}
	r.log.Debug("command", "user", user, "command", name)

	switch name {
	case CmdStart:
		return rep.SendText(ctx, session.Message{Text: welcomeText, Markdown: true})
	case CmdHelp:
		return rep.SendText(ctx, session.Message{Text: helpText, Markdown: true})
	case CmdLogin:
		return r.login(ctx, user, args, rep)
	case CmdLogout:
		r.gate.Logout(user)
		r.machine.Reset(user)
		return rep.SendText(ctx, session.Message{Text: msgLoggedOut})
	case CmdTemplates:
		return r.listTemplates(ctx, user, rep)
	case CmdFill:
		return r.machine.BeginFill(ctx, user, rep)
	case CmdConfig:
		return r.machine.BeginConfig(ctx, user, rep)
	default:
		return rep.SendText(ctx, session.Message{Text: unknownCommand(name)})
	}
}

func (r *Router) login(ctx context.Context, user int64, password string, rep session.Replier) error {
	if password == "" {
		return rep.SendText(ctx, session.Message{Text: msgLoginUsage, Markdown: true})
	}
	if !r.gate.Login(user, password) {
		return rep.SendText(ctx, session.Message{Text: msgLoginFailed})
	}
	return rep.SendText(ctx, session.Message{Text: msgLoggedIn})
}

func (r *Router) listTemplates(ctx context.Context, user int64, rep session.Replier) error {
	if !r.gate.IsAuthenticated(user) {
		return rep.SendText(ctx, session.Message{Text: msgAccessDenied})
	}
	names := r.templates.List()
	if len(names) == 0 {
		return rep.SendText(ctx, session.Message{Text: msgNoTemplates})
	}
	return rep.SendText(ctx, session.Message{Text: templateBullets(names)})
}
