// Package objectstore provides a NATS JetStream implementation of core.ObjectStore.
//
// It backs generated audio when the service runs with the "nats" audio backend, and
// holds uploaded images for requests arriving through the NATS worker.
package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/book-expert/visionvoice/internal/core"
	"github.com/book-expert/visionvoice/internal/tts/audio"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const headerContentType = "Content-Type"

// NatsObjectStore implements core.ObjectStore on a JetStream object store bucket.
type NatsObjectStore struct {
	bucket string
	store  nats.ObjectStore
}

// New creates the bucket, or binds to it when it already exists. A positive ttl
// expires objects automatically; it only applies when the bucket is created here.
func New(jetstreamContext nats.JetStreamContext, bucketName string, ttl time.Duration) (*NatsObjectStore, error) {
	store, err := jetstreamContext.CreateObjectStore(&nats.ObjectStoreConfig{
		Bucket:      bucketName,
		Description: fmt.Sprintf("VisionVoice storage for the %s bucket.", bucketName),
		TTL:         ttl,
		MaxBytes:    0,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Placement:   nil,
		Metadata:    nil,
		Compression: false,
	})
	if err != nil {
		if !errors.Is(err, jetstream.ErrBucketExists) && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("failed to create object store bucket '%s': %w", bucketName, err)
		}

		store, err = jetstreamContext.ObjectStore(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to bind to existing object store bucket '%s': %w", bucketName, err)
		}
	}

	return &NatsObjectStore{
		bucket: bucketName,
		store:  store,
	}, nil
}

// Download retrieves an object. Missing keys yield core.ErrNotFound.
func (n *NatsObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	obj, err := n.store.Get(key)
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: '%s' in bucket '%s'", core.ErrNotFound, key, n.bucket)
		}

		return nil, fmt.Errorf("failed to get object '%s' from bucket '%s': %w", key, n.bucket, err)
	}

	data, readErr := io.ReadAll(obj)
	closeErr := obj.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read object '%s': %w", key, readErr)
	}

	if closeErr != nil {
		return data, fmt.Errorf("failed to close object '%s': %w", key, closeErr)
	}

	return data, nil
}

// Upload stores data under key, tagging audio objects with their content type.
func (n *NatsObjectStore) Upload(_ context.Context, key string, data []byte) error {
	meta := &nats.ObjectMeta{
		Name:        key,
		Description: "",
		Headers:     nil,
		Metadata:    nil,
		Opts:        nil,
	}

	format, formatErr := audio.FormatFromFilename(key)
	if formatErr == nil {
		meta.Headers = nats.Header{}
		meta.Headers.Set(headerContentType, format.ContentType())
	}

	_, err := n.store.Put(meta, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to put object '%s' to bucket '%s': %w", key, n.bucket, err)
	}

	return nil
}

// Delete removes an object.
func (n *NatsObjectStore) Delete(_ context.Context, key string) error {
	err := n.store.Delete(key)
	if err != nil {
		if errors.Is(err, nats.ErrObjectNotFound) {
			return fmt.Errorf("%w: '%s' in bucket '%s'", core.ErrNotFound, key, n.bucket)
		}

		return fmt.Errorf("failed to delete object '%s' from bucket '%s': %w", key, n.bucket, err)
	}

	return nil
}
