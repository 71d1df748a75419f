package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"reunion-countdown/internal/repository"

	"github.com/rs/zerolog/log"
)

// RejectReason explains why the gate refused a save
type RejectReason string

const (
	ReasonEmpty     RejectReason = "empty"
	ReasonCancelled RejectReason = "cancelled"
	ReasonWrong     RejectReason = "wrong"
)

const (
	PromptEnroll = "Set a password to protect this countdown (must not be empty):"
	PromptEnter  = "Enter your password to change the countdown:"
)

// Decision is the outcome of an authorization attempt
type Decision struct {
	Granted bool         `json:"granted"`
	Reason  RejectReason `json:"reason,omitempty"`
}

// Granted is the approving decision
func Granted() Decision { return Decision{Granted: true} }

// Rejected is a refusing decision with its reason
func Rejected(reason RejectReason) Decision { return Decision{Reason: reason} }

// SecretPrompter asks the user for a line of text.
// ok is false when the user cancelled the prompt.
type SecretPrompter interface {
	AskSecret(ctx context.Context, prompt string) (secret string, ok bool)
}

// PrompterFunc adapts a function to SecretPrompter
type PrompterFunc func(ctx context.Context, prompt string) (string, bool)

// AskSecret calls f
func (f PrompterFunc) AskSecret(ctx context.Context, prompt string) (string, bool) {
	return f(ctx, prompt)
}

// GateState tells whether a shared secret has been enrolled
type GateState int

const (
	NoSecretSet GateState = iota
	SecretSet
)

func (s GateState) String() string {
	if s == SecretSet {
		return "secret_set"
	}
	return "no_secret_set"
}

// SecretStore is the persistence the gate needs
type SecretStore interface {
	Get(ctx context.Context, key string) (string, error)
	SetMany(ctx context.Context, values map[string]string) error
}

// AccessGate guards mutation of the time store behind a single shared secret
type AccessGate struct {
	store SecretStore
}

// NewAccessGate creates a new access gate
func NewAccessGate(store SecretStore) *AccessGate {
	return &AccessGate{store: store}
}

// State reports whether a secret has been enrolled
func (g *AccessGate) State(ctx context.Context) (GateState, error) {
	_, set, err := g.secret(ctx)
	if err != nil {
		return NoSecretSet, err
	}
	if set {
		return SecretSet, nil
	}
	return NoSecretSet, nil
}

// Authorize enrolls a secret on first use, or checks the entered secret against the stored one.
// Only storage failures are returned as errors.
func (g *AccessGate) Authorize(ctx context.Context, prompter SecretPrompter) (Decision, error) {
	stored, set, err := g.secret(ctx)
	if err != nil {
		return Decision{}, err
	}

	if !set {
		return g.enroll(ctx, prompter)
	}

	entered, ok := prompter.AskSecret(ctx, PromptEnter)
	if !ok {
		return Rejected(ReasonCancelled), nil
	}
	if subtle.ConstantTimeCompare([]byte(entered), []byte(stored)) != 1 {
		log.Warn().Msg("Wrong countdown secret entered")
		return Rejected(ReasonWrong), nil
	}
	return Granted(), nil
}

func (g *AccessGate) enroll(ctx context.Context, prompter SecretPrompter) (Decision, error) {
	secret, ok := prompter.AskSecret(ctx, PromptEnroll)
	if !ok {
		return Rejected(ReasonCancelled), nil
	}
	if strings.TrimSpace(secret) == "" {
		return Rejected(ReasonEmpty), nil
	}

	if err := g.store.SetMany(ctx, map[string]string{KeySecret: secret}); err != nil {
		return Decision{}, fmt.Errorf("failed to store secret: %w", err)
	}

	log.Info().Msg("Countdown secret enrolled")
	return Granted(), nil
}

func (g *AccessGate) secret(ctx context.Context) (string, bool, error) {
	stored, err := g.store.Get(ctx, KeySecret)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read secret: %w", err)
	}
	return stored, stored != "", nil
}
