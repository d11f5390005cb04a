package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"taskini/internal/common"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// JetStreamStorage keeps photos in a NATS JetStream object store bucket.
type JetStreamStorage struct {
	conn   *nats.Conn
	js     jetstream.JetStream
	store  jetstream.ObjectStore
	bucket string
}

func NewJetStreamStorage(natsURL, bucket string) (*JetStreamStorage, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return &JetStreamStorage{conn: conn, js: js, bucket: bucket}, nil
}

// Init binds to the bucket, creating it on first use.
func (s *JetStreamStorage) Init(ctx context.Context) error {
	store, err := s.js.ObjectStore(ctx, s.bucket)
	if err == nil {
		s.store = store
		return nil
	}
	store, err = s.js.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      s.bucket,
		Description: "Profile photos",
	})
	if err != nil {
		return fmt.Errorf("failed to create object store bucket: %w", err)
	}
	s.store = store
	return nil
}

func (s *JetStreamStorage) Store(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	ref := Prefix + name
	meta := jetstream.ObjectMeta{
		Name:    ref,
		Headers: nats.Header{"Content-Type": []string{contentType}},
	}
	if _, err := s.store.Put(ctx, meta, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("failed to store object %s: %w", ref, err)
	}
	return ref, nil
}

func (s *JetStreamStorage) Open(ctx context.Context, ref string) ([]byte, string, error) {
	result, err := s.store.Get(ctx, ref)
	if errors.Is(err, jetstream.ErrObjectNotFound) {
		return nil, "", common.NewError(common.ErrNotFound, "File not found")
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object %s: %w", ref, err)
	}
	defer result.Close()

	data, err := io.ReadAll(result)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object %s: %w", ref, err)
	}
	contentType := "application/octet-stream"
	if info, err := result.Info(); err == nil && info.Headers != nil {
		if ct := info.Headers.Get("Content-Type"); ct != "" {
			contentType = ct
		}
	}
	return data, contentType, nil
}

func (s *JetStreamStorage) Delete(ctx context.Context, ref string) error {
	err := s.store.Delete(ctx, ref)
	if err != nil && !errors.Is(err, jetstream.ErrObjectNotFound) {
		return fmt.Errorf("failed to delete object %s: %w", ref, err)
	}
	return nil
}

func (s *JetStreamStorage) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}
	return nil
}
