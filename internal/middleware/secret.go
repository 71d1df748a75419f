package middleware

import (
	"context"
	"net/http"

	"reunion-countdown/internal/services"
)

type contextKey string

const secretKey contextKey = "countdown_secret"

// SecretHeader carries the shared secret on requests that change the countdown
const SecretHeader = "X-Countdown-Secret"

// SecretMiddleware captures the shared secret header, if any, for the access gate.
// A request without the header is treated as a cancelled prompt.
func SecretMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		values, ok := r.Header[http.CanonicalHeaderKey(SecretHeader)]
		if !ok || len(values) == 0 {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), secretKey, values[0])
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Prompter answers the gate's prompt with the secret captured from the request
func Prompter(ctx context.Context) services.SecretPrompter {
	secret, ok := ctx.Value(secretKey).(string)
	if !ok {
		return services.StaticPrompter{}
	}
	return services.NewStaticPrompter(secret)
}
