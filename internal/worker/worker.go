// Package worker serves describe requests arriving over NATS.
//
// A request names an image already uploaded to the image bucket. The worker runs the
// same pipeline as the HTTP API and replies with a core.DescriptionCreatedEvent, or a
// core.DescribeFailedEvent when the request cannot be served. Described images are
// deleted from the bucket.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/visionvoice/internal/core"
	"github.com/book-expert/visionvoice/internal/notify"
	"github.com/book-expert/visionvoice/internal/pipeline"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const handleMessageTimeout = 3 * time.Minute

var (
	// ErrImageKeyEmpty indicates that the request does not name an image.
	ErrImageKeyEmpty = errors.New("image key cannot be empty")
	// ErrFilenameEmpty indicates that the request does not carry the original file name.
	ErrFilenameEmpty = errors.New("filename cannot be empty")
)

// Describer runs the describe pipeline.
type Describer interface {
	Describe(ctx context.Context, in pipeline.Input) (*core.Description, error)
}

// imageDeleter is implemented by image stores that can drop an image once it has
// been described.
type imageDeleter interface {
	Delete(ctx context.Context, key string) error
}

// NatsWorker listens for describe requests on a NATS subject.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	images         core.ObjectStore
	describer      Describer
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	images core.ObjectStore,
	describer Describer,
	log *logger.Logger,
) *NatsWorker {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		images:         images,
		describer:      describer,
		log:            log,
	}
}

// Run subscribes and serves requests until ctx is cancelled.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subject, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info("Listening for describe requests on %s", w.subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate describe request: %v", err)
		w.replyFailure(msg, requestHeader(event), err, true)

		return
	}

	desc, err := w.describe(ctx, event)
	if err != nil {
		w.log.Error("Failed to describe image for workflow %s: %v", event.Header.WorkflowID, err)
		w.replyFailure(msg, event.Header, err, isClientError(err))

		return
	}

	w.releaseImage(ctx, event.ImageKey)

	err = w.reply(msg, notify.NewDescriptionCreatedEvent(desc))
	if err != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v", event.Header.WorkflowID, err)
	}
}

// releaseImage removes a described image from the image bucket. Images of failed
// requests stay so the request can be retried.
func (w *NatsWorker) releaseImage(ctx context.Context, imageKey string) {
	deleter, canDelete := w.images.(imageDeleter)
	if !canDelete {
		return
	}

	err := deleter.Delete(ctx, imageKey)
	if err != nil {
		w.log.Warn("Failed to delete described image %s: %v", imageKey, err)
	}
}

// describe downloads the requested image and runs the pipeline on it.
func (w *NatsWorker) describe(ctx context.Context, event *core.DescribeRequestEvent) (*core.Description, error) {
	imageData, err := w.images.Download(ctx, event.ImageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to download image for key '%s': %w", event.ImageKey, err)
	}

	desc, err := w.describer.Describe(ctx, pipeline.Input{
		Image:      imageData,
		Filename:   event.Filename,
		WorkflowID: event.Header.WorkflowID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe image '%s': %w", event.ImageKey, err)
	}

	return desc, nil
}

func (w *NatsWorker) replyFailure(msg *nats.Msg, header events.EventHeader, cause error, clientError bool) {
	header.EventID = uuid.NewString()
	header.Timestamp = time.Now().UTC()

	err := w.reply(msg, &core.DescribeFailedEvent{
		Header:      header,
		Error:       cause.Error(),
		ClientError: clientError,
	})
	if err != nil {
		w.log.Error("Failed to publish failure reply for workflow %s: %v", header.WorkflowID, err)
	}
}

// reply marshals and responds with the given event. Requests published without a
// reply subject get no response.
func (w *NatsWorker) reply(msg *nats.Msg, replyEvent any) error {
	if msg.Reply == "" {
		return nil
	}

	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func parseAndValidateEvent(msg *nats.Msg) (*core.DescribeRequestEvent, error) {
	var event core.DescribeRequestEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.ImageKey == "" {
		return &event, ErrImageKeyEmpty
	}

	if event.Filename == "" {
		return &event, ErrFilenameEmpty
	}

	return &event, nil
}

func requestHeader(event *core.DescribeRequestEvent) events.EventHeader {
	if event == nil {
		return events.EventHeader{}
	}

	return event.Header
}

func isClientError(err error) bool {
	return errors.Is(err, pipeline.ErrInvalidInput) || errors.Is(err, core.ErrNotFound)
}
