package database

import (
	"context"
	"time"
)

// Health reports whether the database answers a ping within timeout.
func (c *Client) Health(ctx context.Context, timeout time.Duration) error {
	if c == nil || c.db == nil {
		return ErrNotConnected
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.db.PingContext(ctx)
}
