package realtime

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SSEClient is one open progress stream. Channels and Outbound are owned by
// the hub; handlers only read them through the methods below.
type SSEClient struct {
	ID       uuid.UUID
	Channels map[string]bool
	Outbound chan SSEMessage
	done     chan struct{}
	once     sync.Once
}

func newSSEClient(buffer int) *SSEClient {
	return &SSEClient{
		ID:       uuid.New(),
		Channels: make(map[string]bool),
		Outbound: make(chan SSEMessage, buffer),
		done:     make(chan struct{}),
	}
}

// Done is closed once the hub closes the client.
func (c *SSEClient) Done() <-chan struct{} { return c.done }

// ProjectIDs lists the projects the client follows, sorted.
func (c *SSEClient) ProjectIDs() []string {
	var out []string
	for ch := range c.Channels {
		if IsProjectChannel(ch) {
			out = append(out, strings.TrimPrefix(ch, projectChannelPrefix))
		}
	}
	sort.Strings(out)
	return out
}
