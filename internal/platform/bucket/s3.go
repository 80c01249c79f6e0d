package bucket

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// holdTagKey marks an object as retained. Clearing the hold removes
// the tag rather than flipping its value, so untouched objects carry
// no tag at all.
const holdTagKey = "retention-hold"

type S3Bucket struct {
	client *s3.Client
	bucket string
}

var _ Bucket = (*S3Bucket)(nil)

// NewS3Bucket opens an S3-backed bucket. Credentials come from the
// default chain (environment, shared config, instance role).
func NewS3Bucket(ctx context.Context, bucketName, region string) (*S3Bucket, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	return &S3Bucket{client: s3.NewFromConfig(cfg), bucket: bucketName}, nil
}

func (b *S3Bucket) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3 objects under %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			o := Object{Key: aws.ToString(obj.Key)}
			if obj.Size != nil {
				o.Size = *obj.Size
			}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			objects = append(objects, o)
		}
	}
	return objects, nil
}

func (b *S3Bucket) ListPrefixes(ctx context.Context, prefix string) ([]string, error) {
	var prefixes []string
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(b.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing s3 prefixes under %s: %w", prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			prefixes = append(prefixes, aws.ToString(cp.Prefix))
		}
	}
	return prefixes, nil
}

func (b *S3Bucket) SetHold(ctx context.Context, prefix string, hold bool) (int, error) {
	objects, err := b.List(ctx, prefix)
	if err != nil {
		return 0, err
	}

	var changed int
	for _, obj := range objects {
		var tagging *types.Tagging
		if hold {
			tagging = &types.Tagging{TagSet: []types.Tag{
				{Key: aws.String(holdTagKey), Value: aws.String("true")},
			}}
		} else {
			tagging = &types.Tagging{TagSet: []types.Tag{}}
		}
		_, err := b.client.PutObjectTagging(ctx, &s3.PutObjectTaggingInput{
			Bucket:  aws.String(b.bucket),
			Key:     aws.String(obj.Key),
			Tagging: tagging,
		})
		if err != nil {
			return changed, fmt.Errorf("tagging s3 object %s: %w", obj.Key, err)
		}
		changed++
	}
	return changed, nil
}

func (b *S3Bucket) Close() error { return nil }
