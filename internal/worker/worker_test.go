// Package worker_test tests the NATS worker for the visionvoice service.
package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/visionvoice/internal/core"
	"github.com/book-expert/visionvoice/internal/pipeline"
	"github.com/book-expert/visionvoice/internal/worker"
	"github.com/google/uuid"

	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errMockCaption = errors.New("mock caption error")

// mockObjectStore is a mock implementation of the ObjectStore interface.
type mockObjectStore struct {
	mutex   sync.Mutex
	objects map[string][]byte
}

func (m *mockObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	data, found := m.objects[key]
	if !found {
		return nil, fmt.Errorf("%w: '%s'", core.ErrNotFound, key)
	}

	return data, nil
}

func (m *mockObjectStore) Delete(_ context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.objects, key)

	return nil
}

func (m *mockObjectStore) has(key string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	_, found := m.objects[key]

	return found
}

func (m *mockObjectStore) Upload(_ context.Context, key string, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.objects[key] = data

	return nil
}

// mockDescriber is a mock implementation of the describe pipeline.
type mockDescriber struct {
	mutex       sync.Mutex
	describeErr error
	inputs      []pipeline.Input
}

func (m *mockDescriber) setError(err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.describeErr = err
}

func (m *mockDescriber) received() []pipeline.Input {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return append([]pipeline.Input(nil), m.inputs...)
}

func (m *mockDescriber) Describe(_ context.Context, in pipeline.Input) (*core.Description, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.inputs = append(m.inputs, in)

	if m.describeErr != nil {
		return nil, m.describeErr
	}

	return &core.Description{
		ID:          in.WorkflowID,
		Caption:     "A crosswalk.",
		Description: "This image shows a crosswalk.",
		AudioKey:    "description_abc.mp3",
		AudioURL:    "/static/audio/description_abc.mp3",
		Hazard:      core.Hazard{Detected: true, Type: "crosswalk ahead", Priority: 2, MatchedKeyword: "crosswalk"},
	}, nil
}

func createTestNatsClient(t *testing.T) *nats.Conn {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	server := test.RunServer(&opts)

	natsConnection, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	t.Cleanup(func() {
		natsConnection.Close()
		server.Shutdown()
	})

	return natsConnection
}

type fixture struct {
	store     *mockObjectStore
	describer *mockDescriber
	conn      *nats.Conn
	subject   string
}

// startWorker runs a worker until the test ends.
func startWorker(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:     &mockObjectStore{objects: map[string][]byte{"image-key": []byte("png bytes")}},
		describer: &mockDescriber{},
		conn:      createTestNatsClient(t),
		subject:   "visionvoice.describe",
	}

	testLogger, err := logger.New(t.TempDir(), "worker-test.log")
	require.NoError(t, err)

	workerInstance := worker.NewNatsWorker(f.conn, f.subject, f.store, f.describer, testLogger)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)

	go func() {
		errChan <- workerInstance.Run(ctx)
	}()

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-errChan, "worker.Run should not error on graceful shutdown")
		_ = testLogger.Close()
	})

	// Wait until the subscription is live; an empty request gets a failure reply.
	require.Eventually(t, func() bool {
		reply, requestErr := f.conn.Request(f.subject, []byte("{}"), 100*time.Millisecond)

		return requestErr == nil && reply != nil
	}, 5*time.Second, 50*time.Millisecond)

	return f
}

func newRequest(imageKey, filename string) *core.DescribeRequestEvent {
	return &core.DescribeRequestEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: uuid.NewString(),
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		ImageKey: imageKey,
		Filename: filename,
	}
}

func (f *fixture) request(t *testing.T, event *core.DescribeRequestEvent) []byte {
	t.Helper()

	eventData, err := json.Marshal(event)
	require.NoError(t, err)

	replyMsg, err := f.conn.Request(f.subject, eventData, 5*time.Second)
	require.NoError(t, err, "Request should succeed and receive a reply")

	return replyMsg.Data
}

func TestMessageHandler_Success(t *testing.T) {
	t.Parallel()

	f := startWorker(t)
	testEvent := newRequest("image-key", "street.jpg")

	var replyEvent core.DescriptionCreatedEvent

	require.NoError(t, json.Unmarshal(f.request(t, testEvent), &replyEvent))

	inputs := f.describer.received()
	require.Len(t, inputs, 1)
	assert.Equal(t, []byte("png bytes"), inputs[0].Image)
	assert.Equal(t, "street.jpg", inputs[0].Filename)
	assert.Equal(t, testEvent.Header.WorkflowID, inputs[0].WorkflowID)

	assert.Equal(t, testEvent.Header.WorkflowID, replyEvent.Header.WorkflowID)
	assert.Equal(t, "description_abc.mp3", replyEvent.AudioKey)
	assert.Equal(t, "This image shows a crosswalk.", replyEvent.Description)
	assert.True(t, replyEvent.Hazard.Detected)
	assert.False(t, f.store.has("image-key"), "described image should be removed from the bucket")
}

func TestMessageHandler_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		event           *core.DescribeRequestEvent
		describeErr     error
		wantClientError bool
		wantMessage     string
	}{
		{
			name:            "missing image key",
			event:           newRequest("", "street.jpg"),
			wantClientError: true,
			wantMessage:     "image key cannot be empty",
		},
		{
			name:            "missing filename",
			event:           newRequest("image-key", ""),
			wantClientError: true,
			wantMessage:     "filename cannot be empty",
		},
		{
			name:            "image not in bucket",
			event:           newRequest("unknown-key", "street.jpg"),
			wantClientError: true,
			wantMessage:     "object not found",
		},
		{
			name:            "invalid image",
			event:           newRequest("image-key", "street.jpg"),
			describeErr:     fmt.Errorf("%w: bad bytes", pipeline.ErrInvalidInput),
			wantClientError: true,
			wantMessage:     "invalid image upload",
		},
		{
			name:            "captioning failure",
			event:           newRequest("image-key", "street.jpg"),
			describeErr:     fmt.Errorf("%w: %w", pipeline.ErrCaptionFailed, errMockCaption),
			wantClientError: false,
			wantMessage:     "mock caption error",
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			f := startWorker(t)
			f.describer.setError(testCase.describeErr)

			var replyEvent core.DescribeFailedEvent

			require.NoError(t, json.Unmarshal(f.request(t, testCase.event), &replyEvent))

			assert.Equal(t, testCase.event.Header.WorkflowID, replyEvent.Header.WorkflowID)
			assert.NotEqual(t, testCase.event.Header.EventID, replyEvent.Header.EventID)
			assert.Equal(t, testCase.wantClientError, replyEvent.ClientError)
			assert.Contains(t, replyEvent.Error, testCase.wantMessage)
			assert.True(t, f.store.has("image-key"), "failed requests keep their image")
		})
	}
}
