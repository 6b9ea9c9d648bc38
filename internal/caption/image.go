package caption

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	// Registered decoders for the accepted upload formats.
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/book-expert/visionvoice/internal/fileutil"
	xdraw "golang.org/x/image/draw"
)

// DefaultMaxPixels bounds the decoded size of an upload, matching the usual
// decompression-bomb limit of image libraries.
const DefaultMaxPixels = 89_478_485

// Image validation errors.
var (
	ErrInvalidImage         = errors.New("invalid image")
	ErrUnsupportedExtension = errors.New("unsupported file type")
	ErrEmptyImage           = errors.New("image data is empty")
	ErrImageTooLarge        = errors.New("image dimensions are too large")
)

// AllowedExtensions lists the upload file extensions accepted, without the dot.
var AllowedExtensions = []string{"png", "jpg", "jpeg", "gif", "bmp", "webp"}

// CheckExtension verifies that filename carries one of AllowedExtensions.
func CheckExtension(filename string) error {
	ext := fileutil.Extension(filename)

	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}

	return fmt.Errorf("%w '%s'. Please upload a PNG, JPG, or WEBP image", ErrUnsupportedExtension, ext)
}

// DecodeImage decodes PNG, JPEG, GIF, BMP or WebP data. The header is checked first
// and images with more than maxPixels pixels are rejected before any pixel data is
// allocated. maxPixels <= 0 selects DefaultMaxPixels.
func DecodeImage(data []byte, maxPixels int64) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrEmptyImage
	}

	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	if header.Width <= 0 || header.Height <= 0 {
		return nil, "", fmt.Errorf("%w: %dx%d", ErrInvalidImage, header.Width, header.Height)
	}

	if int64(header.Width)*int64(header.Height) > maxPixels {
		return nil, "", fmt.Errorf("%w: %w: %dx%d exceeds %d pixels",
			ErrInvalidImage, ErrImageTooLarge, header.Width, header.Height, maxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	return img, format, nil
}

// PrepareJPEG downscales img so its longest side is at most maxDimension,
// flattens transparency onto white and encodes the result as JPEG.
func PrepareJPEG(img image.Image, maxDimension, quality int) ([]byte, error) {
	resized := fitWithin(img, maxDimension)

	var buffer bytes.Buffer

	err := jpeg.Encode(&buffer, flatten(resized), &jpeg.Options{Quality: quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}

	return buffer.Bytes(), nil
}

// fitWithin returns img scaled down, keeping its aspect ratio, so that neither side
// exceeds maxDimension. Smaller images are returned unchanged.
func fitWithin(img image.Image, maxDimension int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if maxDimension <= 0 || (width <= maxDimension && height <= maxDimension) {
		return img
	}

	scale := float64(maxDimension) / float64(max(width, height))
	newWidth := max(1, int(float64(width)*scale))
	newHeight := max(1, int(float64(height)*scale))

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)

	return dst
}

// flatten composites img over an opaque white background.
func flatten(img image.Image) image.Image {
	bounds := img.Bounds()
	dst := image.NewRGBA(bounds)

	draw.Draw(dst, bounds, &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(dst, bounds, img, bounds.Min, draw.Over)

	return dst
}
