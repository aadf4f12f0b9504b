package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// HTTPProvider talks to a JSON completion endpoint. The request body is built
// per Shape and the reply text is read from ReplyPath.
type HTTPProvider struct {
	cfg        ProviderConfig
	httpClient *http.Client
}

func NewHTTPProvider(cfg ProviderConfig) (*HTTPProvider, error) {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return NewHTTPProviderWithClient(cfg, &http.Client{Transport: tr})
}

// NewHTTPProviderWithClient lets tests swap the transport.
func NewHTTPProviderWithClient(cfg ProviderConfig, httpClient *http.Client) (*HTTPProvider, error) {
	cfg.URL = strings.TrimSpace(cfg.URL)
	if cfg.Auth == "" {
		cfg.Auth = AuthBearer
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.ReplyPath == "" {
		cfg.ReplyPath = defaultReplyPath(cfg.Shape)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPProvider{cfg: cfg, httpClient: httpClient}, nil
}

func (p *HTTPProvider) Name() string { return p.cfg.Name }

func (p *HTTPProvider) Timeout() time.Duration { return p.cfg.Timeout }

func (p *HTTPProvider) Complete(ctx context.Context, req Request) (string, error) {
	body, err := p.body(req)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Accept", "application/json")
	p.setAuth(hreq)

	resp, err := p.httpClient.Do(hreq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > 1<<10 {
			raw = raw[:1<<10]
		}
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if !gjson.ValidBytes(raw) {
		return "", fmt.Errorf("llm %s: reply is not json", p.cfg.Name)
	}
	text := strings.TrimSpace(gjson.GetBytes(raw, p.cfg.ReplyPath).String())
	if text == "" {
		return "", ErrEmptyReply
	}
	return text, nil
}

func (p *HTTPProvider) setAuth(req *http.Request) {
	switch {
	case p.cfg.Auth == AuthNone || p.cfg.APIKey == "":
	case p.cfg.Auth == AuthBearer:
		req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	case p.cfg.Auth == AuthAPIKey:
		req.Header.Set("Authorization", "Api-Key "+p.cfg.APIKey)
	case strings.HasPrefix(p.cfg.Auth, "header:"):
		req.Header.Set(strings.TrimPrefix(p.cfg.Auth, "header:"), p.cfg.APIKey)
	}
}

func (p *HTTPProvider) body(req Request) ([]byte, error) {
	switch p.cfg.Shape {
	case ShapeOpenAIChat:
		return openAIChatBody(p.cfg.Model, req)
	case ShapeHFInference:
		return hfInferenceBody(req)
	case ShapeYandexCompletion:
		return yandexBody(p.modelURI(), req)
	}
	return nil, fmt.Errorf("llm %s: unsupported shape %q", p.cfg.Name, p.cfg.Shape)
}

func (p *HTTPProvider) modelURI() string {
	if strings.HasPrefix(p.cfg.Model, "gpt://") || p.cfg.Folder == "" {
		return p.cfg.Model
	}
	return "gpt://" + p.cfg.Folder + "/" + p.cfg.Model
}

func openAIChatBody(model string, req Request) ([]byte, error) {
	msgs := make([]map[string]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, map[string]string{"role": m.Role, "content": m.Content})
	}
	return setAll([]byte(`{}`),
		kv{"model", model},
		kv{"messages", msgs},
		kv{"max_tokens", req.MaxTokens},
		kv{"temperature", req.Temperature},
	)
}

func hfInferenceBody(req Request) ([]byte, error) {
	system, user := systemAndUser(req.Messages)
	input := user
	if system != "" {
		input = system + "\n\n" + user
	}
	return setAll([]byte(`{}`),
		kv{"inputs", input},
		kv{"parameters.max_new_tokens", req.MaxTokens},
		kv{"parameters.temperature", req.Temperature},
		kv{"parameters.return_full_text", false},
	)
}

func yandexBody(modelURI string, req Request) ([]byte, error) {
	msgs := make([]map[string]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, map[string]string{"role": m.Role, "text": m.Content})
	}
	return setAll([]byte(`{}`),
		kv{"modelUri", modelURI},
		kv{"completionOptions.stream", false},
		kv{"completionOptions.temperature", req.Temperature},
		kv{"completionOptions.maxTokens", fmt.Sprint(req.MaxTokens)},
		kv{"messages", msgs},
	)
}

type kv struct {
	path  string
	value any
}

func setAll(doc []byte, pairs ...kv) ([]byte, error) {
	var err error
	for _, p := range pairs {
		if p.path == "model" && p.value == "" {
			continue
		}
		if doc, err = sjson.SetBytes(doc, p.path, p.value); err != nil {
			return nil, fmt.Errorf("build body %s: %w", p.path, err)
		}
	}
	return doc, nil
}
