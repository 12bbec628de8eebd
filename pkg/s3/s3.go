package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Alijeyrad/mindcare_backend/config"
)

// ErrDisabled is returned by every call on a client built from a disabled config.
var ErrDisabled = errors.New("s3: object storage is disabled")

// ErrObjectNotFound is returned when a key does not exist in the bucket.
var ErrObjectNotFound = errors.New("s3: object not found")

// Client wraps the AWS S3 client for any S3-compatible store. Transcripts
// are stored under transcripts/{session_id}.txt.
type Client struct {
	s3     *s3.Client
	presig *s3.PresignClient
	bucket string
	ttl    time.Duration
}

// New creates a client. A disabled config yields a client whose Enabled
// reports false.
func New(cfg config.S3Config) (*Client, error) {
	if !cfg.Enabled {
		return &Client{}, nil
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket name is required")
	}

	awsCfg, err := awscfg.LoadDefaultConfig(context.Background(),
		awscfg.WithRegion(cfg.Region),
		awscfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}

	cli := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true // self-hosted stores (minio, arvan) need path-style
	})

	ttl := time.Duration(cfg.PresignTTLSec) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	return &Client{
		s3:     cli,
		presig: s3.NewPresignClient(cli),
		bucket: cfg.Bucket,
		ttl:    ttl,
	}, nil
}

// Enabled reports whether the client talks to a bucket.
func (c *Client) Enabled() bool { return c.s3 != nil }

// TranscriptKey is the object key of a session transcript.
func TranscriptKey(sessionID string) string {
	return "transcripts/" + sessionID + ".txt"
}

// PutTranscript stores a session transcript and returns its key.
func (c *Client) PutTranscript(ctx context.Context, sessionID, transcript string) (string, error) {
	key := TranscriptKey(sessionID)
	data := []byte(transcript)
	if err := c.Upload(ctx, key, "text/plain; charset=utf-8", bytes.NewReader(data), int64(len(data))); err != nil {
		return "", err
	}
	return key, nil
}

// Upload puts an object into the bucket.
func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("s3 upload %q: %w", key, err)
	}
	return nil
}

// Download reads a whole object.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("s3 download %q: %w", key, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 download %q: %w", key, err)
	}
	return b, nil
}

// PresignDownload generates a presigned GET URL valid for the configured TTL.
func (c *Client) PresignDownload(ctx context.Context, key string) (string, error) {
	if !c.Enabled() {
		return "", ErrDisabled
	}
	req, err := c.presig.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(c.ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign %q: %w", key, err)
	}
	return req.URL, nil
}

// Delete removes an object from the bucket.
func (c *Client) Delete(ctx context.Context, key string) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	_, err := c.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %q: %w", key, err)
	}
	return nil
}
