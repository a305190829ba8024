package llm

import (
	"context"
	defError "errors"
	"fmt"
	"prompt-manager/internal/domain"
	"prompt-manager/internal/errors"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
)

// Request is one completion call. Prompt is sent as the system message when
// Input is set, and as the user message otherwise.
type Request struct {
	Model       string
	Prompt      string
	Input       string
	MaxTokens   int
	Temperature float64
}

type Result struct {
	Model  string
	Output string
	Usage  domain.TokenUsage
}

// Runner executes a prompt against a model.
type Runner interface {
	Run(ctx context.Context, req Request) (*Result, error)
}

// Provider is a Runner bound to one vendor API.
type Provider interface {
	Runner
	Name() string
	Supports(model string) bool
}

// TransientError marks a provider failure worth retrying (rate limits,
// upstream 5xx).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

func transient(status int) bool {
	return status == 429 || status >= 500
}

// Registry routes a request to the first provider that supports its model.
type Registry struct {
	providers    []Provider
	defaultModel string
	attempts     uint
	delay        time.Duration
}

type RegistryOption func(*Registry)

func WithAttempts(n uint) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.attempts = n
		}
	}
}

func WithRetryDelay(d time.Duration) RegistryOption {
	return func(r *Registry) { r.delay = d }
}

func NewRegistry(defaultModel string, providers []Provider, opts ...RegistryOption) *Registry {
	r := &Registry{
		providers:    providers,
		defaultModel: defaultModel,
		attempts:     3,
		delay:        500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) DefaultModel() string { return r.defaultModel }

// Providers lists the names of the configured providers, sorted.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.providers))
	for _, p := range r.providers {
		names = append(names, p.Name())
	}
	sort.Strings(names)
	return names
}

func (r *Registry) resolve(model string) (Provider, error) {
	for _, p := range r.providers {
		if p.Supports(model) {
			return p, nil
		}
	}
	return nil, errors.New(errors.CodeModelUnavailable, fmt.Sprintf("model %q is not available", model), nil)
}

func (r *Registry) Run(ctx context.Context, req Request) (*Result, error) {
	req.Model = strings.TrimSpace(req.Model)
	if req.Model == "" {
		req.Model = r.defaultModel
	}
	p, err := r.resolve(req.Model)
	if err != nil {
		return nil, err
	}

	return retry.DoWithData(
		func() (*Result, error) { return p.Run(ctx, req) },
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(r.delay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var t *TransientError
			return defError.As(err, &t)
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().Err(err).Str("provider", p.Name()).Str("model", req.Model).
				Uint("attempt", n+1).Msg("model call failed, retrying")
		}),
	)
}

// messages splits a request into the system and user turns.
func messages(req Request) (system, user string) {
	if req.Input == "" {
		return "", req.Prompt
	}
	return req.Prompt, req.Input
}

func hasPrefix(model string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(model, p) {
			return true
		}
	}
	return false
}
