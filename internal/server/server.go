// Package server exposes the describe pipeline over HTTP.
//
// Routes:
//
//	GET  /                      health and captioner readiness
//	POST /describe-image        multipart upload, field "image"
//	GET  <url_prefix>/:filename generated audio
//
// Every error is returned as {"error": "..."}.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/visionvoice/internal/audiostore"
	"github.com/book-expert/visionvoice/internal/core"
	"github.com/book-expert/visionvoice/internal/fileutil"
	"github.com/book-expert/visionvoice/internal/pipeline"
	"github.com/book-expert/visionvoice/internal/tts/audio"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

const (
	formFieldImage  = "image"
	statusRunning   = "VisionVoice API is running"
	statusPreflight = "preflight ok"
	bytesPerMB      = 1 << 20
)

// Client-facing error messages.
const (
	msgNoImage        = "No image file found in request. The file field must be named 'image'."
	msgEmptyFilename  = "Empty filename. Please select a valid image."
	msgFmtTooLarge    = "Image is too large. The limit is %d MB."
	msgFmtModelFailed = "AI model failed to load: %v. Check the captioning API token."
	msgFmtProcessing  = "Processing failed: %v"
	msgAudioNotFound  = "Audio file not found."
	msgInvalidAudio   = "Invalid audio file name."
)

// Describer is the pipeline as seen by the HTTP layer.
type Describer interface {
	Describe(ctx context.Context, in pipeline.Input) (*core.Description, error)
	Ready() error
}

// Options configures a Server.
type Options struct {
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
	URLPrefix      string
}

// Server is the VisionVoice HTTP API.
type Server struct {
	app       *fiber.App
	describer Describer
	store     core.ObjectStore
	log       *logger.Logger
	options   Options
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	ModelError  string `json:"model_error"`
}

type describeResponse struct {
	Caption     string      `json:"caption"`
	Description string      `json:"description"`
	AudioURL    string      `json:"audio_url"`
	Hazard      core.Hazard `json:"hazard"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// New builds the server and registers its routes. Audio is served from store.
func New(describer Describer, store core.ObjectStore, log *logger.Logger, options Options) *Server {
	srv := &Server{
		describer: describer,
		store:     store,
		log:       log,
		options:   options,
	}

	srv.app = fiber.New(fiber.Config{
		AppName:               "visionvoice",
		BodyLimit:             int(options.MaxUploadBytes),
		ReadTimeout:           options.ReadTimeout,
		WriteTimeout:          options.WriteTimeout,
		DisableStartupMessage: true,
		ErrorHandler:          srv.handleError,
	})

	srv.app.Use(recover.New())
	srv.app.Use(requestid.New())
	srv.app.Use(srv.logRequests)
	srv.app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(options.AllowedOrigins, ","),
		AllowMethods: strings.Join([]string{fiber.MethodGet, fiber.MethodPost, fiber.MethodOptions}, ","),
		AllowHeaders: "Origin, Content-Type, Accept",
	}))
	srv.app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))

	srv.app.Get("/", srv.handleHealth)
	srv.app.Post("/describe-image", srv.handleDescribe)
	srv.app.Options("/describe-image", srv.handlePreflight)
	srv.app.Get(strings.TrimRight(options.URLPrefix, "/")+"/:filename", srv.handleAudio)

	return srv
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	err := s.app.Listen(addr)
	if err != nil {
		return fmt.Errorf("http server stopped: %w", err)
	}

	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}

	return nil
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	response := healthResponse{Status: statusRunning, ModelLoaded: true, ModelError: ""}

	readyErr := s.describer.Ready()
	if readyErr != nil {
		response.ModelLoaded = false
		response.ModelError = readyErr.Error()
	}

	return c.JSON(response)
}

func (s *Server) handlePreflight(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": statusPreflight})
}

func (s *Server) handleDescribe(c *fiber.Ctx) error {
	readyErr := s.describer.Ready()
	if readyErr != nil {
		s.log.Error("Captioner not ready: %v", readyErr)

		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf(msgFmtModelFailed, readyErr))
	}

	fileHeader, err := c.FormFile(formFieldImage)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgNoImage)
	}

	if fileHeader.Filename == "" {
		return fiber.NewError(fiber.StatusBadRequest, msgEmptyFilename)
	}

	data, err := readUpload(fileHeader)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	desc, err := s.describer.Describe(c.UserContext(), pipeline.Input{
		Image:      data,
		Filename:   fileHeader.Filename,
		WorkflowID: "",
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidInput) {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		s.log.Error("Failed to describe %s: %v", fileutil.SanitizeFilename(fileHeader.Filename), err)

		return fiber.NewError(fiber.StatusInternalServerError, fmt.Sprintf(msgFmtProcessing, err))
	}

	return c.JSON(describeResponse{
		Caption:     desc.Caption,
		Description: desc.Description,
		AudioURL:    desc.AudioURL,
		Hazard:      desc.Hazard,
	})
}

func (s *Server) handleAudio(c *fiber.Ctx) error {
	filename := c.Params("filename")

	keyErr := audiostore.ValidateKey(pipeline.KeyPrefix, filename)
	if keyErr != nil {
		return fiber.NewError(fiber.StatusBadRequest, msgInvalidAudio)
	}

	data, err := s.store.Download(c.UserContext(), filename)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			return fiber.NewError(fiber.StatusNotFound, msgAudioNotFound)
		case errors.Is(err, audiostore.ErrInvalidKey):
			return fiber.NewError(fiber.StatusBadRequest, msgInvalidAudio)
		default:
			s.log.Error("Failed to load audio %s: %v", filename, err)

			return fmt.Errorf("failed to load audio: %w", err)
		}
	}

	contentType := audio.CONTENT_TYPE_ANY

	format, formatErr := audio.FormatFromFilename(filename)
	if formatErr == nil {
		contentType = format.ContentType()
	}

	c.Set(fiber.HeaderContentType, contentType)

	return c.Send(data)
}

// handleError renders every error as JSON.
func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
		message = fiberErr.Message
	}

	if code == fiber.StatusRequestEntityTooLarge {
		message = fmt.Sprintf(msgFmtTooLarge, s.options.MaxUploadBytes/bytesPerMB)
	}

	return c.Status(code).JSON(errorResponse{Error: message})
}

// logRequests logs one line per request once the handler chain has finished.
func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()

	var fiberErr *fiber.Error

	switch {
	case errors.As(err, &fiberErr):
		status = fiberErr.Code
	case err != nil:
		status = fiber.StatusInternalServerError
	}

	s.log.Info("%s %s -> %d in %s [%v]", c.Method(), c.Path(), status, time.Since(start), c.Locals("requestid"))

	return err
}

func readUpload(fileHeader *multipart.FileHeader) ([]byte, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}

	data, readErr := io.ReadAll(file)
	closeErr := file.Close()

	if readErr != nil {
		return nil, fmt.Errorf("failed to read upload: %w", readErr)
	}

	if closeErr != nil {
		return nil, fmt.Errorf("failed to close upload: %w", closeErr)
	}

	return data, nil
}
