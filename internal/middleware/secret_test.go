package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func askThroughMiddleware(t *testing.T, header *string) (string, bool) {
	t.Helper()

	var (
		secret string
		ok     bool
	)
	h := SecretMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		secret, ok = Prompter(r.Context()).AskSecret(r.Context(), "prompt")
	}))

	req := httptest.NewRequest(http.MethodPut, "/", nil)
	if header != nil {
		req.Header.Set(SecretHeader, *header)
	}
	h.ServeHTTP(httptest.NewRecorder(), req)
	return secret, ok
}

func TestSecretMiddleware_MissingHeaderIsCancelled(t *testing.T) {
	_, ok := askThroughMiddleware(t, nil)
	assert.False(t, ok)
}

func TestSecretMiddleware_PassesValueVerbatim(t *testing.T) {
	v := " Abc "
	secret, ok := askThroughMiddleware(t, &v)
	assert.True(t, ok)
	assert.Equal(t, " Abc ", secret)
}

func TestSecretMiddleware_EmptyHeaderIsAnAnswer(t *testing.T) {
	v := ""
	secret, ok := askThroughMiddleware(t, &v)
	assert.True(t, ok)
	assert.Equal(t, "", secret)
}

func TestPrompter_WithoutMiddleware(t *testing.T) {
	_, ok := Prompter(context.Background()).AskSecret(context.Background(), "prompt")
	assert.False(t, ok)
}
