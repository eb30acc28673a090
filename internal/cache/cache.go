// Package cache provides the short-TTL read cache that keeps repeated sheet
// reads inside the Sheets API quota. Caching is best-effort: a backend
// failure degrades to a live read, never to a request failure.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"habitquest/api/internal/tabular"
)

// Cache stores query results keyed by (sheet, tab, filter) and supports
// explicit invalidation of everything under one (sheet, tab) pair. Writers
// invalidate; they never update entries in place.
type Cache interface {
	Get(ctx context.Context, key string) ([]tabular.Row, bool)
	Set(ctx context.Context, key string, rows []tabular.Row)
	Invalidate(ctx context.Context, sheetID, sheetName string)
}

// Key builds the cache key for one read. The filter spec is canonicalized
// (sorted, empty and sentinel values dropped) so equivalent specs share an
// entry, then hashed to keep keys bounded.
func Key(sheetID, sheetName string, filters tabular.FilterSpec) string {
	pairs := make([]string, 0, len(filters))
	for k, v := range filters {
		if v == "" || v == tabular.SentinelAll {
			continue
		}
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)

	sum := sha256.Sum256([]byte(strings.Join(pairs, "&")))
	return scope(sheetID, sheetName) + hex.EncodeToString(sum[:8])
}

// scope is the key prefix shared by every entry of one (sheet, tab) pair;
// Invalidate removes by this prefix.
func scope(sheetID, sheetName string) string {
	return fmt.Sprintf("sheetread:%s:%s:", sheetID, sheetName)
}
