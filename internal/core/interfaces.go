// Package core defines the core business logic and interfaces for the visionvoice service.
package core

import (
	"context"
	"errors"
	"image"

	"github.com/book-expert/visionvoice/internal/tts/audio"
)

// ErrNotFound is returned by an ObjectStore when no object exists under a key.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the interface for interacting with a key-value blob store.
// Generated audio is written to and served from an ObjectStore.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
}

// Captioner converts an image into a descriptive text string.
type Captioner interface {
	Caption(ctx context.Context, img image.Image) (string, error)
	// Ready reports whether the captioner can serve requests at all, for example
	// whether its credentials are configured.
	Ready() error
}

// Synthesizer converts text into spoken audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) (audio.Clip, error)
}

// Hazard describes the most urgent hazard mentioned in a description.
type Hazard struct {
	Detected       bool   `json:"hazard_detected"`
	Type           string `json:"hazard_type"`
	Emoji          string `json:"hazard_emoji"`
	Priority       int    `json:"hazard_priority"`
	MatchedKeyword string `json:"matched_keyword"`
}

// Description is the result of describing one image. ID doubles as the workflow ID
// of the events published for it.
type Description struct {
	ID          string `json:"id"`
	Caption     string `json:"caption"`
	Description string `json:"description"`
	AudioKey    string `json:"audio_key"`
	AudioURL    string `json:"audio_url"`
	Hazard      Hazard `json:"hazard"`
}

// Publisher announces finished descriptions to interested consumers.
type Publisher interface {
	PublishDescription(ctx context.Context, desc *Description) error
}
