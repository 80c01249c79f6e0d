package bucket

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

type GCSBucket struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

var _ Bucket = (*GCSBucket)(nil)

// NewGCSBucket opens a GCS-backed bucket. When credentialsFile is
// empty, application default credentials are used.
func NewGCSBucket(ctx context.Context, bucketName, credentialsFile string) (*GCSBucket, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gcs client: %w", err)
	}
	return &GCSBucket{client: client, bucket: client.Bucket(bucketName)}, nil
}

func (b *GCSBucket) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing gcs objects under %s: %w", prefix, err)
		}
		objects = append(objects, Object{
			Key:          attrs.Name,
			Size:         attrs.Size,
			LastModified: attrs.Updated,
			Held:         attrs.TemporaryHold,
		})
	}
	return objects, nil
}

func (b *GCSBucket) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	var prefixes []string
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("listing gcs prefixes under %s: %w", prefix, err)
		}
		// Prefix entries have an empty Name and carry the prefix.
		if attrs.Prefix != "" {
			prefixes = append(prefixes, attrs.Prefix)
		}
	}
	return prefixes, nil
}

func (b *GCSBucket) SetHold(ctx context.Context, prefix string, hold bool) (int, error) {
	objects, err := b.List(ctx, prefix)
	if err != nil {
		return 0, err
	}

	var changed int
	for _, obj := range objects {
		if obj.Held == hold {
			continue
		}
		_, err := b.bucket.Object(obj.Key).Update(ctx, storage.ObjectAttrsToUpdate{
			TemporaryHold: hold,
		})
		if err != nil {
			return changed, fmt.Errorf("updating hold on gcs object %s: %w", obj.Key, err)
		}
		changed++
	}
	return changed, nil
}

func (b *GCSBucket) Close() error { return b.client.Close() }
