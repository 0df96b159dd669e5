package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCSReader reads corpus CSVs from a Cloud Storage bucket, for deployments
// where the reference data does not live on local disk.
type GCSReader struct {
	client     *storage.Client
	bucketName string
}

func NewGCSReader(ctx context.Context, bucketName string) (*GCSReader, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}
	return &GCSReader{
		client:     client,
		bucketName: bucketName,
	}, nil
}

func (r *GCSReader) Close() error {
	return r.client.Close()
}

func (r *GCSReader) ReadCSV(ctx context.Context, objectName string) (*CSVResult, error) {
	bucket := r.client.Bucket(r.bucketName)
	obj := bucket.Object(objectName)

	reader, err := obj.NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create object reader: %w", err)
	}
	defer reader.Close()

	return parseCSV(reader)
}

// ListCSVObjects returns the names of CSV objects under the given prefix.
func (r *GCSReader) ListCSVObjects(ctx context.Context, prefix string) ([]string, error) {
	bucket := r.client.Bucket(r.bucketName)
	it := bucket.Objects(ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		if strings.HasSuffix(attrs.Name, ".csv") {
			names = append(names, attrs.Name)
		}
	}
	return names, nil
}
