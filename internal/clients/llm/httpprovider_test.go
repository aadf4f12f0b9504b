package llm

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func testRequest() Request {
	return Request{
		Messages: []Message{
			{Role: "system", Content: "sys"},
			{Role: "user", Content: "make a calculator"},
		},
		MaxTokens:   100,
		Temperature: 0.5,
	}
}

func TestOpenAIChatShape(t *testing.T) {
	var body []byte
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		require.Equal(t, "https://upstream/v1/chat/completions", req.URL.String())
		require.Equal(t, "Bearer secret", req.Header.Get("Authorization"))
		body, _ = io.ReadAll(req.Body)
		return jsonResponse(200, `{"choices":[{"message":{"content":"  done  "}}]}`), nil
	})}

	p, err := NewHTTPProviderWithClient(ProviderConfig{
		Name: "groq", Shape: ShapeOpenAIChat, URL: "https://upstream/v1/chat/completions",
		Auth: AuthBearer, APIKey: "secret", Model: "llama",
	}, client)
	require.NoError(t, err)

	text, err := p.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, "done", text)

	require.Equal(t, "llama", gjson.GetBytes(body, "model").String())
	require.Equal(t, "system", gjson.GetBytes(body, "messages.0.role").String())
	require.Equal(t, "make a calculator", gjson.GetBytes(body, "messages.1.content").String())
	require.EqualValues(t, 100, gjson.GetBytes(body, "max_tokens").Int())
	require.InDelta(t, 0.5, gjson.GetBytes(body, "temperature").Float(), 1e-9)
}

func TestHFInferenceShape(t *testing.T) {
	var body []byte
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		body, _ = io.ReadAll(req.Body)
		return jsonResponse(200, `[{"generated_text":"<html></html>"}]`), nil
	})}
	p, err := NewHTTPProviderWithClient(ProviderConfig{
		Name: "huggingface", Shape: ShapeHFInference, URL: "https://hf/models/x", APIKey: "k",
	}, client)
	require.NoError(t, err)

	text, err := p.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, "<html></html>", text)
	require.Equal(t, "sys\n\nmake a calculator", gjson.GetBytes(body, "inputs").String())
	require.EqualValues(t, 100, gjson.GetBytes(body, "parameters.max_new_tokens").Int())
	require.False(t, gjson.GetBytes(body, "parameters.return_full_text").Bool())
}

func TestYandexShapeAndAPIKeyAuth(t *testing.T) {
	var body []byte
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		require.Equal(t, "Api-Key yk", req.Header.Get("Authorization"))
		body, _ = io.ReadAll(req.Body)
		return jsonResponse(200, `{"result":{"alternatives":[{"message":{"role":"assistant","text":"привет"}}]}}`), nil
	})}
	p, err := NewHTTPProviderWithClient(ProviderConfig{
		Name: "yandex", Shape: ShapeYandexCompletion, URL: "https://ya/completion",
		Auth: AuthAPIKey, APIKey: "yk", Model: "yandexgpt-lite", Folder: "b1g",
	}, client)
	require.NoError(t, err)

	text, err := p.Complete(context.Background(), testRequest())
	require.NoError(t, err)
	require.Equal(t, "привет", text)
	require.Equal(t, "gpt://b1g/yandexgpt-lite", gjson.GetBytes(body, "modelUri").String())
	require.Equal(t, "make a calculator", gjson.GetBytes(body, "messages.1.text").String())
	require.Equal(t, "100", gjson.GetBytes(body, "completionOptions.maxTokens").String())
}

func TestCustomHeaderAuth(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		require.Equal(t, "tok", req.Header.Get("X-Token"))
		require.Empty(t, req.Header.Get("Authorization"))
		return jsonResponse(200, `{"choices":[{"message":{"content":"ok"}}]}`), nil
	})}
	p, err := NewHTTPProviderWithClient(ProviderConfig{
		Name: "custom", Shape: ShapeOpenAIChat, URL: "http://u", Auth: "header:X-Token", APIKey: "tok",
	}, client)
	require.NoError(t, err)
	_, err = p.Complete(context.Background(), testRequest())
	require.NoError(t, err)
}

func TestHTTPProviderErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{"non-2xx", 429, `{"error":"rate"}`, func(t *testing.T, err error) {
			var he *HTTPError
			require.True(t, errors.As(err, &he))
			require.Equal(t, 429, he.StatusCode)
		}},
		{"empty", 200, `{"choices":[]}`, func(t *testing.T, err error) {
			require.ErrorIs(t, err, ErrEmptyReply)
		}},
		{"not json", 200, `<html>gateway</html>`, func(t *testing.T, err error) {
			require.Error(t, err)
		}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			client := &http.Client{Transport: roundTripperFunc(func(*http.Request) (*http.Response, error) {
				return jsonResponse(tc.status, tc.body), nil
			})}
			p, err := NewHTTPProviderWithClient(ProviderConfig{Name: "x", Shape: ShapeOpenAIChat, URL: "http://u", Auth: AuthNone}, client)
			require.NoError(t, err)
			_, err = p.Complete(context.Background(), testRequest())
			tc.check(t, err)
		})
	}
}

func TestHTTPProviderTimeout(t *testing.T) {
	client := &http.Client{Transport: roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	})}
	p, err := NewHTTPProviderWithClient(ProviderConfig{
		Name: "slow", Shape: ShapeOpenAIChat, URL: "http://u", Auth: AuthNone, Timeout: 10 * time.Millisecond,
	}, client)
	require.NoError(t, err)
	_, err = p.Complete(context.Background(), testRequest())
	require.Error(t, err)
}

func TestNewHTTPProviderValidates(t *testing.T) {
	_, err := NewHTTPProviderWithClient(ProviderConfig{Name: "a", Shape: "grpc", URL: "http://u"}, nil)
	require.Error(t, err)
	_, err = NewHTTPProviderWithClient(ProviderConfig{Name: "a", Shape: ShapeOpenAIChat}, nil)
	require.Error(t, err)
	_, err = NewHTTPProviderWithClient(ProviderConfig{Name: "a", Shape: ShapeOpenAIChat, URL: "http://u", Auth: "magic"}, nil)
	require.Error(t, err)
}

func TestConfigsFromEnv(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "g")
	t.Setenv("LLM_GROQ_MODEL", "mixtral")
	t.Setenv("LLM_GROQ_TIMEOUT_SECONDS", "5")
	t.Setenv("LLM_MYLLM_BASE_URL", "http://my/llm")
	t.Setenv("LLM_MYLLM_AUTH", "none")
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("LLM_DEEPSEEK_API_KEY", "")

	cfgs, skipped := ConfigsFromEnv([]string{"groq", "deepseek", "myllm", "mock", "groq", "nothing"}, 0)
	require.Len(t, cfgs, 3)

	require.Equal(t, "groq", cfgs[0].Name)
	require.Equal(t, "mixtral", cfgs[0].Model)
	require.Equal(t, 5*time.Second, cfgs[0].Timeout)
	require.Equal(t, "g", cfgs[0].APIKey)

	require.Equal(t, "myllm", cfgs[1].Name)
	require.Equal(t, ShapeOpenAIChat, cfgs[1].Shape)
	require.Equal(t, DefaultTimeout, cfgs[1].Timeout)

	require.Equal(t, ShapeMock, cfgs[2].Shape)

	require.Contains(t, skipped, "deepseek")
	require.Contains(t, skipped, "nothing")

	providers, err := NewProviders(cfgs)
	require.NoError(t, err)
	require.Equal(t, []string{"groq", "myllm", "mock"}, New(nil, providers).Providers())
}
