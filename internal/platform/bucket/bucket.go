// Package bucket abstracts the object stores that hold tenant backups.
// Backends exist for S3, GCS and an in-memory store used in tests.
package bucket

import (
	"context"
	"time"
)

// Object describes one stored object. Backends fill what their API
// reports; Held is true when a retention marker is set on the object.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
	Held         bool
}

// Bucket is the minimal surface the backup platform needs: enumerate
// objects, enumerate tenant prefixes, and set or clear a retention
// marker. Backends translate the marker to their native mechanism
// (S3 object tags, GCS temporary holds).
type Bucket interface {
	// List returns all objects under prefix, in key order.
	List(ctx context.Context, prefix string) ([]Object, error)

	// ListPrefixes returns the immediate child prefixes under prefix,
	// each ending with "/".
	ListPrefixes(ctx context.Context, prefix string) ([]string, error)

	// SetHold sets (hold=true) or clears (hold=false) the retention
	// marker on every object under prefix. Returns the number of
	// objects changed.
	SetHold(ctx context.Context, prefix string, hold bool) (int, error)

	Close() error
}
