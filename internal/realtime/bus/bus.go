package bus

import (
	"context"

	"github.com/yungbote/vibecode-backend/internal/realtime"
)

// Handler receives every message relayed from any instance, including this one.
type Handler func(realtime.SSEMessage)

// Bus carries synthesis progress between API instances so a client streaming
// from one instance sees work done on another.
type Bus interface {
	Publish(ctx context.Context, msg realtime.SSEMessage) error
	// StartForwarder subscribes before returning and delivers until ctx ends.
	StartForwarder(ctx context.Context, h Handler) error
	Close() error
}
