// main package for the visionvoice command-line client.
//
// The client uploads an image to a running visionvoice-service, prints the spoken
// description and hazard warning, and saves the generated audio locally.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// Flag names.
const (
	flagServer  = "server"
	flagImage   = "image"
	flagOutput  = "output"
	flagTimeout = "timeout"
)

// Flag descriptions.
const (
	flagServerDesc  = "Base URL of the visionvoice service"
	flagImageDesc   = "Path of the image to describe"
	flagOutputDesc  = "Directory to save the audio into (skipped when empty)"
	flagTimeoutDesc = "Request timeout"
)

// Output messages.
const (
	msgDescription = "Description: %s\n"
	msgCaption     = "Caption:     %s\n"
	msgHazard      = "Hazard:      %s %s (priority %d, keyword %q)\n"
	msgNoHazard    = "Hazard:      none\n"
	msgAudioURL    = "Audio URL:   %s\n"
	msgAudioSaved  = "Audio saved: %s\n"
	msgHealthy     = "Service: %s\n"
	msgModelLoaded = "Model loaded: %t\n"
	msgModelError  = "Model error: %s\n"
)

// ErrMissingImage is returned when describe is run without --image.
var ErrMissingImage = errors.New("--image is required")

const (
	defaultServer  = "http://127.0.0.1:5001"
	defaultTimeout = 3 * time.Minute
)

type rootOptions struct {
	server  string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	options := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "visionvoice-client",
		Short:         "Describe images through a VisionVoice service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&options.server, flagServer, defaultServer, flagServerDesc)
	rootCmd.PersistentFlags().DurationVar(&options.timeout, flagTimeout, defaultTimeout, flagTimeoutDesc)

	rootCmd.AddCommand(newDescribeCmd(options))
	rootCmd.AddCommand(newHealthCmd(options))

	return rootCmd
}

func newDescribeCmd(options *rootOptions) *cobra.Command {
	var imagePath, outputDir string

	describeCmd := &cobra.Command{
		Use:   "describe --image <file>",
		Short: "Upload an image and print its spoken description",
		Long: `Upload an image to the service, print the description and any hazard
warning, and optionally save the generated audio.

Examples:
  visionvoice-client describe --image street.jpg
  visionvoice-client describe --image street.jpg --output ./audio
  visionvoice-client describe --image cat.png --server http://10.0.0.5:5001`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if imagePath == "" {
				return ErrMissingImage
			}

			client := newAPIClient(options.server, options.timeout)

			result, err := client.describe(cmd.Context(), imagePath)
			if err != nil {
				return err
			}

			printDescription(cmd, result)

			if outputDir == "" {
				return nil
			}

			savedPath, err := client.downloadAudio(cmd.Context(), result.AudioURL, outputDir)
			if err != nil {
				return err
			}

			cmd.Printf(msgAudioSaved, savedPath)

			return nil
		},
	}

	describeCmd.Flags().StringVar(&imagePath, flagImage, "", flagImageDesc)
	describeCmd.Flags().StringVar(&outputDir, flagOutput, "", flagOutputDesc)

	return describeCmd
}

func newHealthCmd(options *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the service is up and its captioning model is usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			health, err := newAPIClient(options.server, options.timeout).health(cmd.Context())
			if err != nil {
				return err
			}

			cmd.Printf(msgHealthy, health.Status)
			cmd.Printf(msgModelLoaded, health.ModelLoaded)

			if health.ModelError != "" {
				cmd.Printf(msgModelError, health.ModelError)
			}

			return nil
		},
	}
}

func printDescription(cmd *cobra.Command, result *describeResponse) {
	cmd.Printf(msgDescription, result.Description)
	cmd.Printf(msgCaption, result.Caption)

	if result.Hazard.Detected {
		cmd.Printf(msgHazard, result.Hazard.Emoji, result.Hazard.Type, result.Hazard.Priority, result.Hazard.MatchedKeyword)
	} else {
		cmd.Print(msgNoHazard)
	}

	cmd.Printf(msgAudioURL, result.AudioURL)
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
