package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/peekbilling/importer/internal/config"
)

type blobStore struct {
	client *s3.Client
	bucket string
}

// NewBlobClient builds the S3 client from configuration. A custom endpoint
// enables S3-compatible object stores.
func NewBlobClient(cfg config.Config) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.BlobRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.BlobEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.BlobEndpoint)
			o.UsePathStyle = true
		}
	})
	return client, nil
}

// NewBlobs returns a Blobs implementation writing JSON snapshots under
// container-named prefixes of the configured bucket.
func NewBlobs(client *s3.Client, cfg config.Config) Blobs {
	return &blobStore{client: client, bucket: cfg.BlobBucket}
}

func (b *blobStore) Put(ctx context.Context, container, name string, item any) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("serialize blob %s/%s: %w", container, name, err)
	}

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(fmt.Sprintf("%s/%s", container, name)),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("put blob %s/%s: %w", container, name, err)
	}
	return nil
}

// DeletePrefix removes every object under the given container prefix. Used
// only by the development-mode reset.
func (b *blobStore) DeletePrefix(ctx context.Context, container string) error {
	paginator := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(container + "/"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return err
		}
		if len(page.Contents) == 0 {
			continue
		}

		objects := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			objects = append(objects, types.ObjectIdentifier{Key: obj.Key})
		}

		_, err = b.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(b.bucket),
			Delete: &types.Delete{Objects: objects},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
