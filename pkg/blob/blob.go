// Package blob stores export artifacts. The contract lives in blob/core so
// the drivers can implement it without importing this package; Open picks a
// driver from the environment and Prune applies artifact retention.
package blob

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pluginkit/pkg/blob/core"
)

type (
	Driver       = core.Driver
	WriteOptions = core.WriteOptions
	Object       = core.Object
	Store        = core.Store
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory

	MetaFilename = core.MetaFilename
	MetaPlugin   = core.MetaPlugin
	MetaFormat   = core.MetaFormat
)

var (
	ErrNotFound   = core.ErrNotFound
	ErrExists     = core.ErrExists
	ErrInvalidKey = core.ErrInvalidKey
)

// Prune removes the artifacts under prefix created before cutoff and
// returns their keys. Artifacts that vanish concurrently are skipped.
func Prune(ctx context.Context, s Store, prefix string, cutoff time.Time) ([]string, error) {
	objs, err := s.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("prune %q: %w", prefix, err)
	}
	var removed []string
	for _, o := range objs {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		if !o.Created.Before(cutoff) {
			continue
		}
		if err := s.Remove(ctx, o.Key); err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return removed, fmt.Errorf("prune %s: %w", o.Key, err)
		}
		removed = append(removed, o.Key)
	}
	return removed, nil
}
