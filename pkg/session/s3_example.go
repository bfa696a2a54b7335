//go:build s3example
// +build s3example

// This file provides an example S3-backed SessionStore implementation.
// It is excluded from regular builds because it requires the AWS SDK.
//
// To use this in your project, copy this file and add the AWS SDK:
//   go get github.com/aws/aws-sdk-go-v2
//   go get github.com/aws/aws-sdk-go-v2/config
//   go get github.com/aws/aws-sdk-go-v2/service/s3

package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store persists detached sessions as S3 objects, one object per
// session. Expiration rides on object metadata: Load checks the
// stored deadline and treats stale objects as absent, so a bucket
// lifecycle rule can lazily reap them.
//
// Example usage:
//
//	cfg, _ := config.LoadDefaultConfig(context.Background())
//	store := session.NewS3Store(s3.NewFromConfig(cfg), "my-bucket", "sessions/")
//
//	serverCfg := server.DefaultServerConfig()
//	serverCfg.SessionStore = store
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
	closed atomic.Bool
}

const s3ExpiresAtKey = "matchmedia-expires-at"

// NewS3Store creates an S3-backed session store. prefix namespaces the
// keys (e.g., "sessions/").
func NewS3Store(client *s3.Client, bucket, prefix string) *S3Store {
	return &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

func (s *S3Store) key(sessionID string) string {
	return s.prefix + sessionID
}

// Save stores serialized session state.
func (s *S3Store) Save(ctx context.Context, sessionID string, data []byte, expiresAt time.Time) error {
	if s.closed.Load() {
		return ErrStoreClosed{}
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(sessionID)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			s3ExpiresAtKey: strconv.FormatInt(expiresAt.Unix(), 10),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 save session %s: %w", sessionID, err)
	}
	return nil
}

// Load returns the serialized state, or (nil, nil) when the session is
// absent or past its stored deadline.
func (s *S3Store) Load(ctx context.Context, sessionID string) ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed{}
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(sessionID)),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("s3 load session %s: %w", sessionID, err)
	}
	defer out.Body.Close()

	if expired(out.Metadata) {
		return nil, nil
	}

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("s3 read session %s: %w", sessionID, err)
	}
	return data, nil
}

// Delete removes a session. Deleting an absent session is not an error.
func (s *S3Store) Delete(ctx context.Context, sessionID string) error {
	if s.closed.Load() {
		return ErrStoreClosed{}
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(sessionID)),
	})
	if err != nil {
		return fmt.Errorf("s3 delete session %s: %w", sessionID, err)
	}
	return nil
}

// Touch extends a session's expiration by rewriting its metadata with
// a self-copy. Touching an absent session is not an error.
func (s *S3Store) Touch(ctx context.Context, sessionID string, expiresAt time.Time) error {
	if s.closed.Load() {
		return ErrStoreClosed{}
	}

	key := s.key(sessionID)
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(key),
		CopySource:        aws.String(s.bucket + "/" + key),
		MetadataDirective: types.MetadataDirectiveReplace,
		Metadata: map[string]string{
			s3ExpiresAtKey: strconv.FormatInt(expiresAt.Unix(), 10),
		},
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil
		}
		return fmt.Errorf("s3 touch session %s: %w", sessionID, err)
	}
	return nil
}

// SaveAll stores a batch of sessions. S3 has no batch put; failures
// abort the loop and report the first error.
func (s *S3Store) SaveAll(ctx context.Context, sessions map[string]SessionData) error {
	if s.closed.Load() {
		return ErrStoreClosed{}
	}

	for id, sd := range sessions {
		if err := s.Save(ctx, id, sd.Data, sd.ExpiresAt); err != nil {
			return err
		}
	}
	return nil
}

// Close marks the store closed. The S3 client itself is owned by the
// caller.
func (s *S3Store) Close() error {
	s.closed.Store(true)
	return nil
}

func expired(metadata map[string]string) bool {
	raw, ok := metadata[s3ExpiresAtKey]
	if !ok {
		return false
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	return time.Now().Unix() > unix
}

var _ SessionStore = (*S3Store)(nil)
