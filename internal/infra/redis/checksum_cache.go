package redis

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const checksumKeyPrefix = "upload:checksum"

// UploadChecksumCache remembers content checksums of recent uploads so a
// byte-identical re-upload within the duplicate window can be flagged on
// its ingestion log. Entries expire on their own; nothing is ever listed
// or swept.
type UploadChecksumCache struct {
	client *Client
}

// NewUploadChecksumCache creates a checksum cache on top of the shared
// Redis client.
func NewUploadChecksumCache(client *Client) (*UploadChecksumCache, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &UploadChecksumCache{client: client}, nil
}

func checksumKey(checksum string) string {
	return fmt.Sprintf("%s:%s", checksumKeyPrefix, checksum)
}

// Seen reports whether the checksum was remembered within its window.
func (c *UploadChecksumCache) Seen(ctx context.Context, checksum string) (bool, error) {
	if checksum == "" {
		return false, errors.New("checksum is required")
	}
	return c.client.Exists(ctx, checksumKey(checksum))
}

// Remember records the checksum for the given window.
func (c *UploadChecksumCache) Remember(ctx context.Context, checksum string, window time.Duration) error {
	if checksum == "" {
		return errors.New("checksum is required")
	}
	if window <= 0 {
		return errors.New("window must be positive")
	}
	return c.client.Set(ctx, checksumKey(checksum), "1", window)
}
