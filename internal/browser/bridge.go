package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/homed/internal/scrape"
)

// Bridge messages tab-resident extractors. One request, one response,
// bounded by the caller's timeout; a late response is discarded with the
// evaluation, never delivered.
type Bridge struct {
	logger *slog.Logger
}

// NewBridge creates a Bridge.
func NewBridge(logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{logger: logger}
}

// Send dispatches a request of the given type and returns the page's data
// payload.
func (b *Bridge) Send(ctx context.Context, st scrape.Tab, msgType string, timeout time.Duration) (json.RawMessage, error) {
	t, err := unwrap(st)
	if err != nil {
		return nil, err
	}

	msg, err := json.Marshal(struct {
		Type string `json:"type"`
	}{Type: msgType})
	if err != nil {
		return nil, fmt.Errorf("browser: marshal request: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := dispatch(sendCtx, t.page, string(msg))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("browser: %s timed out after %s", msgType, timeout)
		}
		return nil, err
	}
	return raw, nil
}
