// Package console runs the bot as a terminal dialogue for one local operator.
//
// Input is read line by line. A line starting with "/" is sent as a command
// at once; other lines are gathered until a blank line and sent as one
// message, so field lists and layout JSON can span several lines.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/xob0t/FormStencil/pkg/session"
)

// LocalUser is the user id of the console operator.
const LocalUser int64 = 1

// Handler processes one message.
type Handler interface {
	Handle(ctx context.Context, user int64, text string, rep session.Replier) error
}

// MarkdownFunc renders Markdown for the terminal.
type MarkdownFunc func(string) (string, error)

// Console is the terminal transport.
type Console struct {
	handler  Handler
	in       io.Reader
	out      io.Writer
	markdown MarkdownFunc

	prompt lipgloss.Style
	bot    lipgloss.Style
	image  lipgloss.Style
}

// Option configures a Console.
type Option func(*Console)

// WithMarkdown replaces the glamour renderer.
func WithMarkdown(fn MarkdownFunc) Option {
	return func(c *Console) { c.markdown = fn }
}

// New creates a console reading in and writing out.
func New(h Handler, in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{
		handler: h,
		in:      in,
		out:     out,
		prompt:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		bot:     lipgloss.NewStyle().PaddingLeft(2),
		image: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.markdown == nil {
		c.markdown = glamourMarkdown(80)
	}
	return c
}

func glamourMarkdown(wrap int) MarkdownFunc {
	style := "dark"
	if s := os.Getenv("GLAMOUR_STYLE"); s != "" {
		style = s
	} else if !lipgloss.HasDarkBackground() {
		style = "light"
	}
	r, err := glamour.NewTermRenderer(glamour.WithStandardStyle(style), glamour.WithWordWrap(wrap))
	if err != nil {
		return func(s string) (string, error) { return s, nil }
	}
	return r.Render
}

// Run reads messages until in is exhausted or ctx is cancelled.
func (c *Console) Run(ctx context.Context) error {
	fmt.Fprintln(c.out, c.prompt.Render("FormStencil console. /start for an overview, Ctrl-D to quit."))

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		sc.Buffer(make([]byte, 64*1024), 1<<20)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	var pending []string
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		text := strings.Join(pending, "\n")
		pending = pending[:0]
		return c.send(ctx, text)
	}

	c.showPrompt()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				if err := flush(); err != nil {
					return err
				}
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			switch {
			case strings.TrimSpace(line) == "":
				if err := flush(); err != nil {
					return err
				}
				c.showPrompt()
			case len(pending) == 0 && strings.HasPrefix(strings.TrimSpace(line), "/"):
				if err := c.send(ctx, line); err != nil {
					return err
				}
				c.showPrompt()
			default:
				pending = append(pending, line)
			}
		}
	}
}

func (c *Console) showPrompt() {
	fmt.Fprint(c.out, c.prompt.Render("› "))
}

func (c *Console) send(ctx context.Context, text string) error {
	if err := c.handler.Handle(ctx, LocalUser, text, c); err != nil {
		return fmt.Errorf("console: %w", err)
	}
	return nil
}

// SendText prints a reply, rendering Markdown replies.
func (c *Console) SendText(_ context.Context, m session.Message) error {
	text := m.Text
	if m.Markdown {
		if rendered, err := c.markdown(text); err == nil {
			text = strings.TrimRight(rendered, "\n")
		}
	}
	_, err := fmt.Fprintln(c.out, c.bot.Render(text))
	return err
}

// SendImage prints the caption and the path of the filled document.
func (c *Console) SendImage(_ context.Context, path, caption string) error {
	_, err := fmt.Fprintln(c.out, c.image.Render(caption+"\n🖼  "+path))
	return err
}
