package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type Message struct {
	Role    string
	Content string
}

// Request is the provider-neutral completion call.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// Provider is one upstream completion backend.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (string, error)
}

// timeouter is implemented by providers carrying their own per-call timeout.
type timeouter interface {
	Timeout() time.Duration
}

var ErrEmptyReply = errors.New("llm: empty reply")

type HTTPError struct {
	StatusCode int
	Body       string
}

// HTTPStatusCode lets callers classify the failure without unwrapping.
func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "upstream http error"
	}
	if e.Body == "" {
		return fmt.Sprintf("upstream http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("upstream http error: status=%d body=%s", e.StatusCode, e.Body)
}

func systemAndUser(msgs []Message) (system, user string) {
	for _, m := range msgs {
		switch m.Role {
		case "system":
			system = m.Content
		default:
			user = m.Content
		}
	}
	return system, user
}
