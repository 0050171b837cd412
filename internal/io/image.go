package ioutils

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // GIF decoder registration
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// ErrNotImage is returned when cover art data is not a supported image.
var ErrNotImage = errors.New("not a supported image")

var supportedImages = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// ImageService provides image processing operations for cover art.
//
// ImageService is used to:
//   - Reject downloads that are not images (error pages, empty bodies)
//   - Resize images to fit maximum dimensions
//   - Convert images to JPEG format
//
// Example usage:
//
//	svc := NewImageService()
//
//	// Download cover art
//	imageData, _ := httpClient.Get(ctx, info.ArtworkURL)
//
//	// Resize to max 1000x1000 and convert to JPEG
//	cover, err := svc.PrepareCover(ctx, imageData, 1000)
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// DetectImage returns the MIME type of data, or an error wrapping
// ErrNotImage if it is not one of the decodable image formats.
func (s *ImageService) DetectImage(data []byte) (string, error) {
	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), supportedImages...) {
		return "", fmt.Errorf("%w: %s", ErrNotImage, mt.String())
	}
	return mt.String(), nil
}

// PrepareCover validates cover art data, shrinks it to fit a maxSize square
// and returns it JPEG-encoded. A JPEG that already fits is returned as is.
// A maxSize of zero or less disables resizing.
func (s *ImageService) PrepareCover(ctx context.Context, data []byte, maxSize int) ([]byte, error) {
	mt, err := s.DetectImage(data)
	if err != nil {
		return nil, err
	}

	if maxSize <= 0 {
		if mt == "image/jpeg" {
			return data, nil
		}
		return s.ConvertToJPEG(ctx, data)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if mt == "image/jpeg" && cfg.Width <= maxSize && cfg.Height <= maxSize {
		return data, nil
	}

	return s.ResizeImage(ctx, data, maxSize, maxSize)
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved. If the image is already smaller than the
// maximum dimensions, it will still be processed (re-encoded as JPEG).
//
// Returns the resized image as JPEG-encoded bytes.
//
// The Catmull-Rom algorithm is used for high-quality resizing.
//
// Example:
//
//	// Resize to fit within 1000x1000, maintaining aspect ratio
//	resized, err := svc.ResizeImage(ctx, imageData, 1000, 1000)
//	// A 1500x1000 image becomes 1000x666
//	// A 800x600 image remains 800x600 (but re-encoded)
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := fit(bounds.Dx(), bounds.Dy(), maxWidth, maxHeight)

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return encodeJPEG(dst)
}

// ConvertToJPEG converts an image to JPEG format with 90% quality.
//
// Example:
//
//	pngData, _ := httpClient.Get(ctx, "https://example.com/cover.png")
//	jpegData, err := svc.ConvertToJPEG(ctx, pngData)
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return encodeJPEG(img)
}

// fit scales width x height down to fit maxWidth x maxHeight, keeping the
// aspect ratio. Sizes that already fit are returned unchanged.
func fit(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= maxWidth && height <= maxHeight {
		return width, height
	}

	ratio := float64(width) / float64(height)
	if float64(maxWidth)/float64(maxHeight) > ratio {
		// Height is the limiting factor
		return max(int(float64(maxHeight)*ratio), 1), maxHeight
	}
	// Width is the limiting factor
	return maxWidth, max(int(float64(maxWidth)/ratio), 1)
}

func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
