package chatpresentation

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoResponder struct {
	got []string
	err error
}

func (e *echoResponder) Respond(_ context.Context, _ string, text string) (string, error) {
	e.got = append(e.got, text)
	if e.err != nil {
		return "", e.err
	}
	return "you said:\n" + text, nil
}

func TestREPL_AnswersUntilExit(t *testing.T) {
	resp := &echoResponder{}
	var out bytes.Buffer
	repl := NewREPL(resp, "s1", strings.NewReader("hello\nexit\nignored\n"), &out, nil)

	require.NoError(t, repl.Run(context.Background()))

	assert.Equal(t, []string{"", "hello"}, resp.got)
	assert.Contains(t, out.String(), "🤖: you said:\n🤖: hello")
	assert.Contains(t, out.String(), "Goodbye")
}

func TestREPL_StopsAtEOF(t *testing.T) {
	resp := &echoResponder{}
	var out bytes.Buffer
	require.NoError(t, NewREPL(resp, "s1", strings.NewReader("a\nb"), &out, nil).Run(context.Background()))
	assert.Equal(t, []string{"", "a", "b"}, resp.got)
}

func TestREPL_ReportsFailuresAndContinues(t *testing.T) {
	resp := &echoResponder{err: errors.New("repository down")}
	var out bytes.Buffer
	require.NoError(t, NewREPL(resp, "s1", strings.NewReader("hi\n"), &out, nil).Run(context.Background()))
	assert.Equal(t, 2, strings.Count(out.String(), "Something went wrong"))
}
