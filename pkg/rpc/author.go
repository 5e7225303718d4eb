package rpc

import (
	"context"
	"fmt"
)

// HasKey asks the node whether its keystore holds publicHex for keyType
// (e.g. "aura"). Monitoring must not start when this returns false: the
// resolved identity would not be the one actually producing blocks.
func (c *Client) HasKey(ctx context.Context, publicHex, keyType string) (bool, error) {
	var has bool
	if err := c.call(ctx, "author_hasKey", []any{publicHex, keyType}, &has); err != nil {
		return false, fmt.Errorf("author_hasKey: %w", err)
	}
	return has, nil
}
