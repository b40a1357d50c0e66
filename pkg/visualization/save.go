package visualization

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"path"
	"strings"

	"hsicube/pkg/vfs"
)

// DefaultQuality is the JPEG quality used when none is given.
const DefaultQuality = 90

var ErrImageFormat = errors.New("visualization: unsupported image format")

// ImageFormat picks "png" or "jpeg" from a file name.
func ImageFormat(url string) (string, error) {
	switch strings.ToLower(path.Ext(url)) {
	case ".png":
		return "png", nil
	case ".jpg", ".jpeg":
		return "jpeg", nil
	}
	return "", fmt.Errorf("%w: %s", ErrImageFormat, url)
}

// SaveImage encodes img to url. The format comes from the extension and
// quality applies to JPEG only; 0 means DefaultQuality.
func SaveImage(url string, img image.Image, quality int) error {
	format, err := ImageFormat(url)
	if err != nil {
		return err
	}
	f, err := vfs.OpenWrite(url)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}

	switch format {
	case "png":
		err = png.Encode(f, img)
	default:
		if quality <= 0 {
			quality = DefaultQuality
		}
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return f.Close()
}
