package httpx

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type statusErr int

func (e statusErr) Error() string       { return fmt.Sprintf("status %d", int(e)) }
func (e statusErr) HTTPStatusCode() int { return int(e) }

func TestOutcome(t *testing.T) {
	require.Equal(t, "ok", Outcome(nil))
	require.Equal(t, "timeout", Outcome(fmt.Errorf("call: %w", context.DeadlineExceeded)))
	require.Equal(t, "transient", Outcome(statusErr(429)))
	require.Equal(t, "transient", Outcome(fmt.Errorf("wrapped: %w", statusErr(503))))
	require.Equal(t, "error", Outcome(statusErr(401)))
	require.Equal(t, "error", Outcome(errors.New("boom")))
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 599} {
		require.True(t, IsRetryableHTTPStatus(code), code)
	}
	for _, code := range []int{200, 400, 401, 404, 600} {
		require.False(t, IsRetryableHTTPStatus(code), code)
	}
}
