package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func stubReadPassword(t *testing.T, fn func(fd int) ([]byte, error)) {
	t.Helper()
	orig := readPassword
	readPassword = fn
	t.Cleanup(func() { readPassword = orig })
}

func TestTerminalPrompter_ReadsSecret(t *testing.T) {
	stubReadPassword(t, func(int) ([]byte, error) { return []byte("abc\r\n"), nil })

	var out bytes.Buffer
	p := &TerminalPrompter{Out: &out}

	secret, ok := p.AskSecret(context.Background(), PromptEnter)
	assert.True(t, ok)
	assert.Equal(t, "abc", secret)
	assert.Contains(t, out.String(), PromptEnter)
}

func TestTerminalPrompter_EmptyLineIsAnAnswer(t *testing.T) {
	stubReadPassword(t, func(int) ([]byte, error) { return nil, nil })

	secret, ok := (&TerminalPrompter{Out: io.Discard}).AskSecret(context.Background(), PromptEnroll)
	assert.True(t, ok)
	assert.Equal(t, "", secret)
}

func TestTerminalPrompter_ReadErrorIsCancel(t *testing.T) {
	stubReadPassword(t, func(int) ([]byte, error) { return nil, io.EOF })

	_, ok := (&TerminalPrompter{Out: io.Discard}).AskSecret(context.Background(), PromptEnter)
	assert.False(t, ok)
}

func TestTerminalPrompter_CancelledContext(t *testing.T) {
	stubReadPassword(t, func(int) ([]byte, error) { return nil, errors.New("must not be called") })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := (&TerminalPrompter{Out: io.Discard}).AskSecret(ctx, PromptEnter)
	assert.False(t, ok)
}

func TestStaticPrompter(t *testing.T) {
	secret, ok := NewStaticPrompter("").AskSecret(context.Background(), PromptEnter)
	assert.True(t, ok)
	assert.Equal(t, "", secret)

	_, ok = StaticPrompter{}.AskSecret(context.Background(), PromptEnter)
	assert.False(t, ok)
}
