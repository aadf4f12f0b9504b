package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/yungbote/vibecode-backend/internal/platform/envutil"
)

type Shape string

const (
	ShapeOpenAIChat       Shape = "openai_chat"
	ShapeHFInference      Shape = "hf_inference"
	ShapeYandexCompletion Shape = "yandex_completion"
	ShapeMock             Shape = "mock"
)

// Auth schemes: "bearer", "api_key", "header:<Name>", "none".
const (
	AuthBearer = "bearer"
	AuthAPIKey = "api_key"
	AuthNone   = "none"
)

const DefaultTimeout = 30 * time.Second

type ProviderConfig struct {
	Name      string
	Shape     Shape
	URL       string
	Auth      string
	APIKey    string
	Model     string
	ReplyPath string
	// Folder scopes yandex model URIs (gpt://<folder>/<model>).
	Folder  string
	Timeout time.Duration
}

type preset struct {
	ProviderConfig
	keyEnv    string
	folderEnv string
}

var presets = map[string]preset{
	"groq": {ProviderConfig: ProviderConfig{
		Shape: ShapeOpenAIChat,
		URL:   "https://api.groq.com/openai/v1/chat/completions",
		Auth:  AuthBearer,
		Model: "llama3-8b-8192",
	}, keyEnv: "GROQ_API_KEY"},
	"deepseek": {ProviderConfig: ProviderConfig{
		Shape: ShapeOpenAIChat,
		URL:   "https://api.deepseek.com/v1/chat/completions",
		Auth:  AuthBearer,
		Model: "deepseek-chat",
	}, keyEnv: "DEEPSEEK_API_KEY"},
	"openai": {ProviderConfig: ProviderConfig{
		Shape: ShapeOpenAIChat,
		URL:   "https://api.openai.com/v1/chat/completions",
		Auth:  AuthBearer,
		Model: "gpt-4o-mini",
	}, keyEnv: "OPENAI_API_KEY"},
	"gigachat": {ProviderConfig: ProviderConfig{
		Shape: ShapeOpenAIChat,
		URL:   "https://gigachat.devices.sberbank.ru/api/v1/chat/completions",
		Auth:  AuthBearer,
		Model: "GigaChat:latest",
	}, keyEnv: "GIGACHAT_API_KEY"},
	"localai": {ProviderConfig: ProviderConfig{
		Shape: ShapeOpenAIChat,
		URL:   "http://localhost:8080/v1/chat/completions",
		Auth:  AuthNone,
		Model: "gpt-3.5-turbo",
	}},
	"huggingface": {ProviderConfig: ProviderConfig{
		Shape: ShapeHFInference,
		URL:   "https://api-inference.huggingface.co/models/mistralai/Mistral-7B-Instruct-v0.2",
		Auth:  AuthBearer,
	}, keyEnv: "HUGGINGFACE_API_KEY"},
	"yandex": {ProviderConfig: ProviderConfig{
		Shape: ShapeYandexCompletion,
		URL:   "https://llm.api.cloud.yandex.net/foundationModels/v1/completion",
		Auth:  AuthAPIKey,
		Model: "yandexgpt-lite",
	}, keyEnv: "YANDEX_API_KEY", folderEnv: "YANDEX_FOLDER_ID"},
	"mock": {ProviderConfig: ProviderConfig{Shape: ShapeMock, Auth: AuthNone}},
}

func defaultReplyPath(s Shape) string {
	switch s {
	case ShapeHFInference:
		return "0.generated_text"
	case ShapeYandexCompletion:
		return "result.alternatives.0.message.text"
	default:
		return "choices.0.message.content"
	}
}

// ConfigsFromEnv resolves the ordered provider list. Each name is a preset or a
// custom tag configured entirely through LLM_<TAG>_* variables. Providers that
// cannot be used (no endpoint, or no key for an authenticated scheme) are
// returned in skipped with the reason.
func ConfigsFromEnv(names []string, defTimeout time.Duration) ([]ProviderConfig, map[string]string) {
	if defTimeout <= 0 {
		defTimeout = DefaultTimeout
	}
	var out []ProviderConfig
	skipped := map[string]string{}
	seen := map[string]bool{}
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		p := presets[name]
		tag := "LLM_" + envTag(name) + "_"
		cfg := ProviderConfig{
			Name:      name,
			Shape:     Shape(envutil.String(tag+"SHAPE", string(p.Shape))),
			URL:       envutil.String(tag+"BASE_URL", p.URL),
			Auth:      envutil.String(tag+"AUTH", p.Auth),
			Model:     envutil.String(tag+"MODEL", p.Model),
			ReplyPath: envutil.String(tag+"REPLY_PATH", p.ReplyPath),
			Timeout:   envutil.Seconds(tag+"TIMEOUT_SECONDS", defTimeout),
		}
		key := ""
		if p.keyEnv != "" {
			key = envutil.String(p.keyEnv, "")
		}
		cfg.APIKey = envutil.String(tag+"API_KEY", key)
		folder := ""
		if p.folderEnv != "" {
			folder = envutil.String(p.folderEnv, "")
		}
		cfg.Folder = envutil.String(tag+"FOLDER_ID", folder)

		if cfg.Shape == "" {
			cfg.Shape = ShapeOpenAIChat
		}
		if cfg.Auth == "" {
			cfg.Auth = AuthBearer
		}
		if reason := cfg.unusable(); reason != "" {
			skipped[name] = reason
			continue
		}
		out = append(out, cfg)
	}
	return out, skipped
}

func (c ProviderConfig) unusable() string {
	if c.Shape == ShapeMock {
		return ""
	}
	if c.URL == "" {
		return "no endpoint configured"
	}
	if c.Auth != AuthNone && c.APIKey == "" {
		return "no api key configured"
	}
	return ""
}

func (c ProviderConfig) validate() error {
	switch c.Shape {
	case ShapeOpenAIChat, ShapeHFInference, ShapeYandexCompletion:
	default:
		return fmt.Errorf("provider %s: unsupported shape %q", c.Name, c.Shape)
	}
	if c.URL == "" {
		return fmt.Errorf("provider %s: url required", c.Name)
	}
	switch {
	case c.Auth == AuthBearer, c.Auth == AuthAPIKey, c.Auth == AuthNone:
	case strings.HasPrefix(c.Auth, "header:") && len(c.Auth) > len("header:"):
	default:
		return fmt.Errorf("provider %s: unsupported auth %q", c.Name, c.Auth)
	}
	return nil
}

func envTag(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
