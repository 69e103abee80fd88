// Package chatpresentation runs the conversation over a line-oriented terminal.
package chatpresentation

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability/logctx"
)

const (
	botPrefix  = "🤖: "
	userPrompt = "> "
)

type Responder interface {
	Respond(ctx context.Context, sid, text string) (string, error)
}

type REPL struct {
	conv Responder
	sid  string
	in   io.Reader
	out  io.Writer
	log  observability.Logger
}

func NewREPL(conv Responder, sid string, in io.Reader, out io.Writer, logger observability.Logger) *REPL {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &REPL{
		conv: conv,
		sid:  sid,
		in:   in,
		out:  out,
		log:  logger.With(observability.F("component", "chat"), observability.F("session_id", sid)),
	}
}

// Run greets the shopper and answers each input line until EOF, "exit" or ctx ends.
func (r *REPL) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(logctx.With(ctx, r.log))
	defer cancel()

	if err := r.reply(ctx, ""); err != nil {
		return err
	}

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		_, _ = fmt.Fprint(r.out, userPrompt)
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(r.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				_, _ = fmt.Fprintln(r.out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "exit", "quit":
				_, _ = fmt.Fprintln(r.out, botPrefix+"Goodbye! 👋")
				return nil
			}
			if err := r.reply(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (r *REPL) reply(ctx context.Context, text string) error {
	msg, err := r.conv.Respond(ctx, r.sid, text)
	if err != nil {
		r.log.Error("chat_reply_failed", observability.F("error", err))
		_, _ = fmt.Fprintln(r.out, botPrefix+"Something went wrong on our side. Please try again.")
		return nil
	}
	_, _ = fmt.Fprintln(r.out, botPrefix+strings.ReplaceAll(msg, "\n", "\n"+botPrefix))
	return nil
}
