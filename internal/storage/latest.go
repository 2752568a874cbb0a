package storage

import (
	"context"
	"fmt"
	"strings"
)

// FindLatestKey lists objects under prefix and returns the key with the
// newest LastModified whose name ends with suffix (case-insensitive).
// Used by the explicit-table load path to discover the most recent export
// for a source; the primary load path addresses objects by exact key.
func FindLatestKey(ctx context.Context, store ObjectStore, bucket, prefix, suffix string) (string, error) {
	infos, err := store.List(ctx, bucket, prefix)
	if err != nil {
		return "", err
	}

	suffix = strings.ToLower(suffix)
	var best *ObjectInfo
	for i := range infos {
		if !strings.HasSuffix(strings.ToLower(infos[i].Key), suffix) {
			continue
		}
		if best == nil || infos[i].LastModified.After(best.LastModified) {
			best = &infos[i]
		}
	}

	if best == nil {
		return "", fmt.Errorf("no object under %s/%s ending with %q: %w", bucket, prefix, suffix, ErrNotFound)
	}
	return best.Key, nil
}
