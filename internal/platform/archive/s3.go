// Package archive copies persisted coding decisions to S3 as JSON documents
// keyed by completion date.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Putter is the subset of the S3 client the store needs.
type Putter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Store struct {
	client Putter
	bucket string
	prefix string
}

func NewStore(client Putter, bucket, prefix string) *Store {
	return &Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// NewS3Store builds a Store from the default AWS credential chain.
func NewS3Store(ctx context.Context, bucket, prefix, region string) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return NewStore(s3.NewFromConfig(cfg), bucket, prefix), nil
}

// Key returns <prefix>/decisions/YYYY/MM/DD/<run>.json using the UTC date.
func (s *Store) Key(runID uuid.UUID, completedAt time.Time) string {
	day := completedAt.UTC().Format("2006/01/02")
	return path.Join(s.prefix, "decisions", day, runID.String()+".json")
}

// Archive writes doc as JSON. The object carries its SHA-256 so downstream
// consumers can verify it without re-reading the database.
func (s *Store) Archive(ctx context.Context, runID uuid.UUID, completedAt time.Time, doc any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal decision %s: %w", runID, err)
	}
	sum := sha256.Sum256(data)
	key := s.Key(runID, completedAt)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata:    map[string]string{"sha256": hex.EncodeToString(sum[:])},
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}
