// main package for the visionvoice-service
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/visionvoice/internal/audiostore"
	"github.com/book-expert/visionvoice/internal/caption"
	"github.com/book-expert/visionvoice/internal/config"
	"github.com/book-expert/visionvoice/internal/core"
	"github.com/book-expert/visionvoice/internal/notify"
	"github.com/book-expert/visionvoice/internal/objectstore"
	"github.com/book-expert/visionvoice/internal/pipeline"
	"github.com/book-expert/visionvoice/internal/server"
	"github.com/book-expert/visionvoice/internal/tts"
	"github.com/book-expert/visionvoice/internal/tts/audio"
	"github.com/book-expert/visionvoice/internal/worker"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"
)

const (
	shutdownTimeout    = 15 * time.Second
	healthCheckTimeout = 5 * time.Second
)

// healthChecker is implemented by synthesizers backed by a service that exposes a
// health endpoint.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "visionvoice-service.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

// loadEnvFile exports the variables in path, typically API tokens. A missing file
// is not an error.
func loadEnvFile(path string, log *logger.Logger) error {
	err := godotenv.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Info("No env file at %s, using the process environment.", path)

			return nil
		}

		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	log.Info("Loaded environment from %s.", path)

	return nil
}

func newSynthesizer(cfg *config.SpeechConfig) (core.Synthesizer, error) {
	switch cfg.Engine {
	case config.SpeechEngineHTTP:
		return tts.NewHTTPClient(tts.HTTPOptions{
			BaseURL:        cfg.ServiceURL,
			Timeout:        cfg.Timeout(),
			Temperature:    cfg.TTSTemperature(),
			SpeakerRefPath: cfg.SpeakerRefPath,
		}), nil
	case config.SpeechEngineOpenAI:
		format, err := audio.ParseFormat(cfg.OpenAIFormat)
		if err != nil {
			return nil, fmt.Errorf("invalid openai format: %w", err)
		}

		return tts.NewOpenAIClient(tts.OpenAIOptions{
			URL:     cfg.OpenAIURL,
			Token:   cfg.OpenAIToken(),
			Model:   cfg.OpenAIModel,
			Voice:   cfg.OpenAIVoice,
			Speed:   cfg.OpenAISpeed,
			Format:  format,
			Timeout: cfg.Timeout(),
		}), nil
	default:
		return tts.NewGoogleClient(cfg.GoogleURL, cfg.Timeout(), cfg.Slow), nil
	}
}

// checkSpeechService logs a warning when the speech backend reports itself unhealthy.
// The service still starts: the backend may come up later.
func checkSpeechService(ctx context.Context, synthesizer core.Synthesizer, log *logger.Logger) error {
	checker, canCheck := synthesizer.(healthChecker)
	if !canCheck {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	err := checker.HealthCheck(ctx)
	if err != nil {
		log.Warn("Speech service is not healthy: %v", err)

		return fmt.Errorf("speech service health check: %w", err)
	}

	log.Info("Speech service is healthy.")

	return nil
}

// services holds everything wired from the configuration.
type services struct {
	natsConnection *nats.Conn
	pipeline       *pipeline.Pipeline
	audioStore     core.ObjectStore
	imageStore     core.ObjectStore
}

func (s *services) close() {
	if s.natsConnection != nil {
		_ = s.natsConnection.Drain()
	}
}

func wire(cfg *config.Config, log *logger.Logger) (*services, error) {
	svc := &services{}

	var publisher core.Publisher = notify.NopPublisher{}

	if cfg.NATS.Enabled {
		natsConnection, err := nats.Connect(cfg.NATS.URL, nats.Name("visionvoice-service"))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.NATS.URL, err)
		}

		svc.natsConnection = natsConnection

		jetstreamContext, err := natsConnection.JetStream()
		if err != nil {
			svc.close()

			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}

		if cfg.Audio.Backend == config.AudioBackendNATS {
			svc.audioStore, err = objectstore.New(jetstreamContext, cfg.NATS.AudioObjectStoreBucket, cfg.NATS.AudioTTL())
			if err != nil {
				svc.close()

				return nil, err
			}
		}

		if cfg.NATS.DescribeRequestSubject != "" {
			svc.imageStore, err = objectstore.New(jetstreamContext, cfg.NATS.ImageObjectStoreBucket, 0)
			if err != nil {
				svc.close()

				return nil, err
			}
		}

		publisher = notify.NewNatsPublisher(natsConnection, cfg.NATS.DescriptionCreatedSubject)
		log.Info("Connected to NATS at %s", cfg.NATS.URL)
	}

	if svc.audioStore == nil {
		fileStore, err := audiostore.NewFileStore(cfg.Audio.Dir, pipeline.KeyPrefix, log)
		if err != nil {
			svc.close()

			return nil, err
		}

		svc.audioStore = fileStore
	}

	captioner := caption.NewHFClient(caption.Options{
		APIURL:       cfg.Caption.APIURL,
		Token:        cfg.Caption.CaptionToken(),
		Timeout:      cfg.Caption.Timeout(),
		MaxAttempts:  cfg.Caption.MaxAttempts,
		RetryWait:    cfg.Caption.RetryWait(),
		MaxDimension: cfg.Caption.MaxDimension,
		JPEGQuality:  cfg.Caption.JPEGQuality,
	}, log)

	readyErr := captioner.Ready()
	if readyErr != nil {
		log.Warn("Captioner not ready: %v. Set %s.", readyErr, cfg.Caption.APITokenEnv)
	}

	synthesizer, err := newSynthesizer(&cfg.Speech)
	if err != nil {
		svc.close()

		return nil, err
	}

	_ = checkSpeechService(context.Background(), synthesizer, log)

	svc.pipeline = pipeline.New(captioner, synthesizer, svc.audioStore, publisher, log, pipeline.Options{
		Language:   cfg.Speech.Language,
		URLPrefix:  cfg.Audio.URLPrefix,
		KeepLatest: cfg.Audio.KeepLatest,
		MaxPixels:  int64(cfg.Caption.MaxPixels),
	})

	return svc, nil
}

func serve(ctx context.Context, cfg *config.Config, svc *services, log *logger.Logger) error {
	httpServer := server.New(svc.pipeline, svc.audioStore, log, server.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		ReadTimeout:    cfg.Server.ReadTimeout(),
		WriteTimeout:   cfg.Server.WriteTimeout(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		URLPrefix:      cfg.Audio.URLPrefix,
	})

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return httpServer.Listen(cfg.Server.Addr)
	})

	group.Go(func() error {
		<-groupCtx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	})

	if svc.imageStore != nil {
		natsWorker := worker.NewNatsWorker(
			svc.natsConnection, cfg.NATS.DescribeRequestSubject, svc.imageStore, svc.pipeline, log,
		)

		group.Go(func() error {
			return natsWorker.Run(groupCtx)
		})
	}

	log.System("VisionVoice service listening on %s (speech engine: %s, audio backend: %s)",
		cfg.Server.Addr, cfg.Speech.Engine, cfg.Audio.Backend)

	err := group.Wait()
	if err != nil {
		return fmt.Errorf("service stopped: %w", err)
	}

	return nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	defer func() { _ = bootstrapLog.Close() }()

	bootstrapLog.Info("Bootstrap logger created.")

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	err = loadEnvFile(cfg.Paths.EnvFile, finalLog)
	if err != nil {
		finalLog.Error("%v", err)

		return err
	}

	// 4. Wire the pipeline and its transports
	svc, err := wire(cfg, finalLog)
	if err != nil {
		finalLog.Error("Failed to initialize service: %v", err)

		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer svc.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = serve(ctx, cfg, svc, finalLog)
	if err != nil {
		finalLog.Error("%v", err)

		return err
	}

	finalLog.System("VisionVoice service stopped.")

	return nil
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
