// Package audio provides the audio data structures exchanged between speech
// synthesizers, audio stores and the HTTP layer.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Constants for error messages and formats.
const (
	ERR_FMT_UNSUPPORTED_FORMAT = "%w: '%s'"
	ERR_FMT_FORMAT_MISMATCH    = "%w: declared %s, data looks like %s"
)

// Common errors for the audio package.
var (
	ErrEmptyAudio        = errors.New("audio data is empty")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrFormatMismatch    = errors.New("audio data does not match its format")
)

// Format represents supported audio formats.
type Format string

const (
	FORMAT_WAV     Format = "wav"
	FORMAT_MP3     Format = "mp3"
	FORMAT_UNKNOWN Format = ""
)

// Content types served for each format.
const (
	CONTENT_TYPE_WAV  = "audio/wav"
	CONTENT_TYPE_MP3  = "audio/mpeg"
	CONTENT_TYPE_ANY  = "application/octet-stream"
	mp3FrameSyncByte  = 0xFF
	mp3FrameSyncMask  = 0xE0
	wavHeaderMinBytes = 12
)

var (
	id3Magic  = []byte("ID3")
	riffMagic = []byte("RIFF")
	waveMagic = []byte("WAVE")
)

// Clip is a piece of synthesized speech.
type Clip struct {
	Data   []byte
	Format Format
}

// Extension returns the file extension for the format, including the leading dot.
func (f Format) Extension() string {
	if f == FORMAT_UNKNOWN {
		return ""
	}

	return "." + string(f)
}

// ContentType returns the MIME type used when serving the format.
func (f Format) ContentType() string {
	switch f {
	case FORMAT_WAV:
		return CONTENT_TYPE_WAV
	case FORMAT_MP3:
		return CONTENT_TYPE_MP3
	default:
		return CONTENT_TYPE_ANY
	}
}

// ParseFormat maps a format name or file extension to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case string(FORMAT_WAV):
		return FORMAT_WAV, nil
	case string(FORMAT_MP3):
		return FORMAT_MP3, nil
	default:
		return FORMAT_UNKNOWN, fmt.Errorf(ERR_FMT_UNSUPPORTED_FORMAT, ErrUnsupportedFormat, name)
	}
}

// FormatFromFilename returns the format implied by a file name's extension.
func FormatFromFilename(filename string) (Format, error) {
	return ParseFormat(filepath.Ext(filename))
}

// FormatFromContentType maps a response content type to a Format.
func FormatFromContentType(contentType string) Format {
	mediaType, _, _ := strings.Cut(contentType, ";")

	switch strings.TrimSpace(strings.ToLower(mediaType)) {
	case CONTENT_TYPE_WAV, "audio/x-wav", "audio/wave":
		return FORMAT_WAV
	case CONTENT_TYPE_MP3, "audio/mp3":
		return FORMAT_MP3
	default:
		return FORMAT_UNKNOWN
	}
}

// Detect sniffs the container format from the leading bytes of data.
func Detect(data []byte) Format {
	if len(data) >= wavHeaderMinBytes &&
		bytes.Equal(data[0:4], riffMagic) && bytes.Equal(data[8:12], waveMagic) {
		return FORMAT_WAV
	}

	if bytes.HasPrefix(data, id3Magic) {
		return FORMAT_MP3
	}

	if len(data) >= 2 && data[0] == mp3FrameSyncByte && data[1]&mp3FrameSyncMask == mp3FrameSyncMask {
		return FORMAT_MP3
	}

	return FORMAT_UNKNOWN
}

// Validate checks that the clip carries data of a supported format. When the data
// can be sniffed, it must agree with the declared format.
func (c Clip) Validate() error {
	if len(c.Data) == 0 {
		return ErrEmptyAudio
	}

	if c.Format != FORMAT_WAV && c.Format != FORMAT_MP3 {
		return fmt.Errorf(ERR_FMT_UNSUPPORTED_FORMAT, ErrUnsupportedFormat, c.Format)
	}

	detected := Detect(c.Data)
	if detected != FORMAT_UNKNOWN && detected != c.Format {
		return fmt.Errorf(ERR_FMT_FORMAT_MISMATCH, ErrFormatMismatch, c.Format, detected)
	}

	return nil
}
