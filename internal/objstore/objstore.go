// Package objstore fetches raw source products. The dispatcher sees a
// single Get; retries, per-attempt timeouts and a total budget live
// behind it.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var (
	// ErrNotFound: the path does not exist; retrying cannot help.
	ErrNotFound = errors.New("objstore: object not found")
	// ErrUnavailable: transient failures exhausted the retry budget.
	ErrUnavailable = errors.New("objstore: object store unavailable")
)

// Store returns the raw bytes of a stored product.
type Store interface {
	Get(ctx context.Context, path string) ([]byte, error)
}

// RetryPolicy bounds the fetch loop.
type RetryPolicy struct {
	Attempts       int
	PerAttempt     time.Duration
	TotalBudget    time.Duration
	InitialBackoff time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.PerAttempt <= 0 {
		p.PerAttempt = 15 * time.Second
	}
	if p.TotalBudget <= 0 {
		p.TotalBudget = 45 * time.Second
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = 200 * time.Millisecond
	}
	return p
}

// S3Store reads from an S3-compatible bucket.
type S3Store struct {
	client *s3.Client
	bucket string
	policy RetryPolicy
}

// NewS3 builds the client from the ambient AWS config. A non-empty
// endpoint switches to path-style addressing for MinIO-style stores.
func NewS3(ctx context.Context, bucket, region, endpoint string, policy RetryPolicy) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("objstore: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Store{client: client, bucket: bucket, policy: policy.withDefaults()}, nil
}

// Get fetches an object with bounded retries. Transient failures back
// off exponentially until the total budget runs out.
func (s *S3Store) Get(ctx context.Context, path string) ([]byte, error) {
	p := s.policy
	ctx, cancel := context.WithTimeout(ctx, p.TotalBudget)
	defer cancel()

	backoff := p.InitialBackoff
	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
			}
			backoff *= 2
		}

		data, err := s.getOnce(ctx, path, p.PerAttempt)
		if err == nil {
			return data, nil
		}
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		lastErr = err
		slog.Warn("object fetch failed", "path", path, "attempt", attempt+1, "error", err)
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (s *S3Store) getOnce(ctx context.Context, path string, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(strings.TrimPrefix(path, "/")),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// FSStore serves products from a local directory, for development and
// fixtures.
type FSStore struct {
	Root string
}

func (s FSStore) Get(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.Root, filepath.Clean("/"+path)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return data, nil
}
