package llm

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/vibecode-backend/internal/platform/apierr"
	"github.com/yungbote/vibecode-backend/internal/platform/httpx"
	"github.com/yungbote/vibecode-backend/internal/platform/logger"
)

const (
	DefaultMaxTokens   = 2000
	DefaultTemperature = 0.7

	FallbackProvider = "fallback"
)

type Options struct {
	MaxTokens int
	// nil means DefaultTemperature; 0 is a valid setting.
	Temperature      *float64
	ProviderOverride string
	PromptKind       PromptKind
}

// Result is never an error. When every provider fails, OK stays true, Provider
// is "fallback" and Err carries llm_unavailable.
type Result struct {
	OK       bool
	Text     string
	Provider string
	Err      apierr.Kind
}

// Unavailable reports whether the text came from the fallback path.
func (r Result) Unavailable() bool { return r.Err == apierr.KindLLMUnavailable }

// Observer receives one call per provider attempt.
type Observer interface {
	ObserveLLM(provider, outcome string, dur time.Duration)
}

type Generator interface {
	Generate(ctx context.Context, prompt string, opts Options) Result
}

type Client struct {
	log       *logger.Logger
	providers []Provider
	timeout   time.Duration
	observer  Observer
	tracer    trace.Tracer
}

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithObserver(o Observer) ClientOption {
	return func(c *Client) { c.observer = o }
}

func New(log *logger.Logger, providers []Provider, opts ...ClientOption) *Client {
	if log == nil {
		log = logger.Nop()
	}
	c := &Client{
		log:       log.With("client", "LLM"),
		providers: append([]Provider(nil), providers...),
		timeout:   DefaultTimeout,
		tracer:    otel.Tracer("vibecode/llm"),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// NewProviders builds providers from resolved configs, keeping their order.
func NewProviders(cfgs []ProviderConfig) ([]Provider, error) {
	out := make([]Provider, 0, len(cfgs))
	for _, cfg := range cfgs {
		if cfg.Shape == ShapeMock {
			out = append(out, NewMock())
			continue
		}
		p, err := NewHTTPProvider(cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (c *Client) Providers() []string {
	out := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		out = append(out, p.Name())
	}
	return out
}

// Temp returns a pointer for Options.Temperature.
func Temp(v float64) *float64 { return &v }

func (c *Client) Generate(ctx context.Context, prompt string, opts Options) Result {
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	temperature := DefaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	if opts.PromptKind == "" {
		opts.PromptKind = PromptChat
	}
	req := Request{
		Messages: []Message{
			{Role: "system", Content: SystemPrompt(opts.PromptKind)},
			{Role: "user", Content: prompt},
		},
		MaxTokens:   opts.MaxTokens,
		Temperature: temperature,
	}

	for _, p := range c.order(opts.ProviderOverride) {
		if ctx.Err() != nil {
			break
		}
		text, err := c.attempt(ctx, p, opts.PromptKind, req)
		if err != nil {
			c.log.Warn("provider failed, falling through", "provider", p.Name(), "prompt_kind", opts.PromptKind, "error", err)
			continue
		}
		return Result{OK: true, Text: text, Provider: p.Name()}
	}

	c.log.Error("all providers failed", "prompt_kind", opts.PromptKind, "providers", len(c.providers))
	return Result{
		OK:       true,
		Text:     "service unavailable: " + prompt,
		Provider: FallbackProvider,
		Err:      apierr.KindLLMUnavailable,
	}
}

func (c *Client) attempt(ctx context.Context, p Provider, kind PromptKind, req Request) (string, error) {
	timeout := c.timeout
	if t, ok := p.(timeouter); ok && t.Timeout() > 0 {
		timeout = t.Timeout()
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := c.tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("llm.provider", p.Name()),
		attribute.String("llm.prompt_kind", string(kind)),
	))
	defer span.End()

	start := time.Now()
	text, err := p.Complete(ctx, req)
	if err == nil && strings.TrimSpace(text) == "" {
		err = ErrEmptyReply
	}
	outcome := httpx.Outcome(err)
	span.SetAttributes(attribute.String("llm.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if c.observer != nil {
		c.observer.ObserveLLM(p.Name(), outcome, time.Since(start))
	}
	return text, err
}

// order puts the override (if known) first and keeps the rest in priority order.
func (c *Client) order(override string) []Provider {
	override = strings.ToLower(strings.TrimSpace(override))
	if override == "" {
		return c.providers
	}
	out := make([]Provider, 0, len(c.providers))
	var rest []Provider
	for _, p := range c.providers {
		if strings.ToLower(p.Name()) == override {
			out = append(out, p)
		} else {
			rest = append(rest, p)
		}
	}
	return append(out, rest...)
}
