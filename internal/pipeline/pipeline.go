// Package pipeline turns an uploaded image into a spoken description.
//
// Describe runs the stages in order: validate and decode the image, caption it,
// phrase the description, scan it for hazards, synthesize speech and store the audio.
// A failed stage stops the run; nothing is retried here.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/book-expert/logger"
	"github.com/book-expert/visionvoice/internal/caption"
	"github.com/book-expert/visionvoice/internal/core"
	"github.com/book-expert/visionvoice/internal/fileutil"
	"github.com/book-expert/visionvoice/internal/hazard"
	"github.com/book-expert/visionvoice/internal/tts/text"
	"github.com/google/uuid"
)

// KeyPrefix starts the name of every generated audio file.
const KeyPrefix = "description_"

const (
	descriptionLead     = "This image shows "
	fallbackDescription = "The image could not be described. Please try a different photo."
)

// Stage errors. Each wraps the underlying cause.
var (
	ErrInvalidInput  = errors.New("invalid image upload")
	ErrCaptionFailed = errors.New("captioning failed")
	ErrSpeechFailed  = errors.New("speech synthesis failed")
	ErrStoreFailed   = errors.New("storing audio failed")
)

// Pruner is implemented by stores that can drop old generated audio.
type Pruner interface {
	Prune(keepLatest int) (int, error)
}

// Options tunes a Pipeline.
type Options struct {
	Language   string
	URLPrefix  string
	KeepLatest int
	// MaxPixels bounds the decoded image size; <= 0 uses caption.DefaultMaxPixels.
	MaxPixels int64
}

// Input is one image to describe.
type Input struct {
	Image    []byte
	Filename string
	// WorkflowID becomes the description ID. A new ID is generated when empty.
	WorkflowID string
}

// Pipeline describes images.
type Pipeline struct {
	captioner   core.Captioner
	synthesizer core.Synthesizer
	store       core.ObjectStore
	publisher   core.Publisher
	scanner     *hazard.Scanner
	normalizer  *text.Normalizer
	log         *logger.Logger
	options     Options
}

// New wires a pipeline. A nil publisher disables event publishing.
func New(
	captioner core.Captioner,
	synthesizer core.Synthesizer,
	store core.ObjectStore,
	publisher core.Publisher,
	log *logger.Logger,
	options Options,
) *Pipeline {
	return &Pipeline{
		captioner:   captioner,
		synthesizer: synthesizer,
		store:       store,
		publisher:   publisher,
		scanner:     hazard.NewDefaultScanner(),
		normalizer:  text.NewNormalizer(),
		log:         log,
		options:     options,
	}
}

// Ready reports whether the captioner can serve requests.
func (p *Pipeline) Ready() error {
	return p.captioner.Ready()
}

// Describe runs the full pipeline for in.
func (p *Pipeline) Describe(ctx context.Context, in Input) (*core.Description, error) {
	extErr := caption.CheckExtension(in.Filename)
	if extErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, extErr)
	}

	img, format, err := caption.DecodeImage(in.Image, p.options.MaxPixels)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	bounds := img.Bounds()
	p.log.Info("Describing %s (%s, %dx%d, %s)", fileutil.SanitizeFilename(in.Filename), format,
		bounds.Dx(), bounds.Dy(), fileutil.FormatFileSize(int64(len(in.Image))))

	captionText, err := p.captioner.Caption(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCaptionFailed, err)
	}

	desc := &core.Description{
		ID:          in.WorkflowID,
		Caption:     captionText,
		Description: FormatDescription(captionText),
		AudioKey:    "",
		AudioURL:    "",
		Hazard:      core.Hazard{},
	}

	if desc.ID == "" {
		desc.ID = uuid.NewString()
	}

	desc.Hazard = p.scanner.Scan(desc.Description)
	if desc.Hazard.Detected {
		p.log.Warn("Hazard detected in %s: %s (%s)", desc.ID, desc.Hazard.Type, desc.Hazard.MatchedKeyword)
	}

	clip, err := p.synthesizer.Synthesize(ctx, p.normalizer.Normalize(desc.Description), p.options.Language)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpeechFailed, err)
	}

	err = clip.Validate()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSpeechFailed, err)
	}

	desc.AudioKey = NewAudioKey() + clip.Format.Extension()

	err = p.store.Upload(ctx, desc.AudioKey, clip.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}

	desc.AudioURL = AudioURL(p.options.URLPrefix, desc.AudioKey)
	p.log.Info("Stored %s (%s) for %s", desc.AudioKey, fileutil.FormatFileSize(int64(len(clip.Data))), desc.ID)

	p.afterStore(ctx, desc)

	return desc, nil
}

// afterStore runs the best-effort steps that must never fail a request.
func (p *Pipeline) afterStore(ctx context.Context, desc *core.Description) {
	pruner, canPrune := p.store.(Pruner)
	if canPrune && p.options.KeepLatest > 0 {
		removed, pruneErr := pruner.Prune(p.options.KeepLatest)
		if pruneErr != nil {
			p.log.Warn("Failed to prune old audio: %v", pruneErr)
		} else if removed > 0 {
			p.log.Info("Pruned %d old audio files", removed)
		}
	}

	if p.publisher == nil {
		return
	}

	publishErr := p.publisher.PublishDescription(ctx, desc)
	if publishErr != nil {
		p.log.Warn("Failed to publish description %s: %v", desc.ID, publishErr)
	}
}

// FormatDescription phrases a caption as the sentence read to the user.
func FormatDescription(captionText string) string {
	captionText = strings.TrimSpace(captionText)
	if captionText == "" {
		return fallbackDescription
	}

	first, size := utf8.DecodeRuneInString(captionText)
	sentence := descriptionLead + string(unicode.ToLower(first)) + captionText[size:]

	if !strings.HasSuffix(sentence, ".") {
		sentence += "."
	}

	return sentence
}

// NewAudioKey returns a fresh audio file name without extension.
func NewAudioKey() string {
	return KeyPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// AudioURL joins the public URL prefix and an audio key.
func AudioURL(prefix, key string) string {
	return strings.TrimRight(prefix, "/") + "/" + key
}
