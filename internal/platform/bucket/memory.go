package bucket

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryBucket is an in-memory Bucket for tests and local development.
type MemoryBucket struct {
	mu      sync.Mutex
	objects map[string]Object

	// ListErr, when set, is returned by List and ListPrefixes.
	ListErr error
	// HoldErr, when set, is returned by SetHold.
	HoldErr error
}

var _ Bucket = (*MemoryBucket)(nil)

func NewMemoryBucket() *MemoryBucket {
	return &MemoryBucket{objects: make(map[string]Object)}
}

// Put stores an object record directly.
func (b *MemoryBucket) Put(key string, size int64, modified time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = Object{Key: key, Size: size, LastModified: modified}
}

func (b *MemoryBucket) List(_ context.Context, prefix string) ([]Object, error) {
	if b.ListErr != nil {
		return nil, b.ListErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var objects []Object
	for key, obj := range b.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, obj)
		}
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (b *MemoryBucket) ListPrefixes(_ context.Context, prefix string) ([]string, error) {
	if b.ListErr != nil {
		return nil, b.ListErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	seen := make(map[string]bool)
	for key := range b.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := key[len(prefix):]
		if i := strings.Index(rest, "/"); i >= 0 {
			seen[prefix+rest[:i+1]] = true
		}
	}

	prefixes := make([]string, 0, len(seen))
	for p := range seen {
		prefixes = append(prefixes, p)
	}
	sort.Strings(prefixes)
	return prefixes, nil
}

func (b *MemoryBucket) SetHold(_ context.Context, prefix string, hold bool) (int, error) {
	if b.HoldErr != nil {
		return 0, b.HoldErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	var changed int
	for key, obj := range b.objects {
		if !strings.HasPrefix(key, prefix) || obj.Held == hold {
			continue
		}
		obj.Held = hold
		b.objects[key] = obj
		changed++
	}
	return changed, nil
}

// Held reports whether the object at key carries a retention marker.
func (b *MemoryBucket) Held(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.objects[key].Held
}

func (b *MemoryBucket) Close() error { return nil }
