// Package debug provides frame capture utilities for the viewers.
package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"
)

// Origin tells which row of a pixel buffer is the top of the image.
type Origin int

const (
	// TopLeft buffers start with the top row, as ray-traced frames do.
	TopLeft Origin = iota
	// BottomLeft buffers start with the bottom row, as glReadPixels returns.
	BottomLeft
)

// ScreenshotCapture handles screenshot capture functionality.
type ScreenshotCapture struct {
	outputDir string
	prefix    string
	now       func() time.Time
	seq       int
}

// NewScreenshotCapture creates a new screenshot capture handler.
func NewScreenshotCapture(outputDir, prefix string) *ScreenshotCapture {
	return &ScreenshotCapture{
		outputDir: outputDir,
		prefix:    prefix,
		now:       time.Now,
	}
}

// SetOutputDir sets the output directory for screenshots.
func (sc *ScreenshotCapture) SetOutputDir(dir string) {
	sc.outputDir = dir
}

// ToImage copies an RGBA8 pixel buffer into an image, flipping rows when
// the buffer origin is at the bottom.
func ToImage(pixels []byte, width, height int, origin Origin) (*image.RGBA, error) {
	if width < 0 || height < 0 || len(pixels) != width*height*4 {
		return nil, fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	rowSize := width * 4
	for y := 0; y < height; y++ {
		srcY := y
		if origin == BottomLeft {
			srcY = height - 1 - y
		}
		srcOffset := srcY * rowSize
		dstOffset := y * img.Stride
		copy(img.Pix[dstOffset:dstOffset+rowSize], pixels[srcOffset:srcOffset+rowSize])
	}
	return img, nil
}

// CaptureFromPixels writes an RGBA8 pixel buffer to a new PNG file and
// returns its path.
func (sc *ScreenshotCapture) CaptureFromPixels(pixels []byte, width, height int, origin Origin) (string, error) {
	img, err := ToImage(pixels, width, height, origin)
	if err != nil {
		return "", err
	}
	return sc.CaptureFromImage(img)
}

// CaptureFromImage writes an image to a new PNG file and returns its path.
func (sc *ScreenshotCapture) CaptureFromImage(img image.Image) (string, error) {
	if sc.outputDir != "" {
		if err := os.MkdirAll(sc.outputDir, 0755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	filename := sc.GenerateFilename()
	if err := WritePNG(filename, img); err != nil {
		return "", err
	}
	return filename, nil
}

// GenerateFilename returns the next screenshot path. A sequence suffix keeps
// captures taken within the same second apart.
func (sc *ScreenshotCapture) GenerateFilename() string {
	timestamp := sc.now().Format("2006-01-02_15-04-05")
	sc.seq++
	filename := fmt.Sprintf("%s_%s_%03d.png", sc.prefix, timestamp, sc.seq)
	if sc.outputDir != "" {
		filename = filepath.Join(sc.outputDir, filename)
	}
	return filename
}

// WritePNG encodes img to path.
func WritePNG(path string, img image.Image) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		err = multierr.Append(err, file.Close())
	}()

	if err := png.Encode(file, img); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}
