package llm

import (
	"context"
	"fmt"
	"strings"
)

const mockReplyRunes = 280

// Mock is an offline provider for local development. It answers with one line
// quoting the first line of the user turn, so its reply never carries file
// sections that could be applied to a project.
type Mock struct{}

func NewMock() *Mock { return &Mock{} }

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	_, user := systemAndUser(req.Messages)
	line, _, _ := strings.Cut(strings.TrimSpace(user), "\n")
	line = strings.TrimSpace(line)
	if r := []rune(line); len(r) > mockReplyRunes {
		line = string(r[:mockReplyRunes]) + "..."
	}
	return fmt.Sprintf("[mock] %s", line), nil
}
