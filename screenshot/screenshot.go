// Package screenshot captures PNG images of the emulated display for
// resume archives and user screenshots.
package screenshot

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	emucore "github.com/user-none/savestates/api"
	xdraw "golang.org/x/image/draw"
)

// ErrNoFrame is returned when nothing has been rendered yet
var ErrNoFrame = errors.New("no frame available")

// Capturer encodes the current frame as PNG. It satisfies
// emucore.Screenshotter.
type Capturer struct {
	fb       *Framebuffer
	maxWidth int
}

// NewCapturer creates a capturer for fb. Frames wider than maxWidth are
// scaled down preserving the aspect ratio; 0 keeps the native size.
func NewCapturer(fb *Framebuffer, maxWidth int) *Capturer {
	return &Capturer{fb: fb, maxWidth: maxWidth}
}

// Screenshot writes the current frame to w as PNG.
func (c *Capturer) Screenshot(w io.Writer) error {
	img := c.fb.Image()
	if img == nil {
		return ErrNoFrame
	}

	var out image.Image = img
	if c.maxWidth > 0 && img.Bounds().Dx() > c.maxWidth {
		out = Scale(img, c.maxWidth)
	}

	if err := png.Encode(w, out); err != nil {
		return fmt.Errorf("failed to encode screenshot: %w", err)
	}
	return nil
}

// Scale resizes src to width pixels wide, preserving the aspect ratio.
func Scale(src image.Image, width int) *image.RGBA {
	bounds := src.Bounds()
	height := bounds.Dy() * width / bounds.Dx()
	if height < 1 {
		height = 1
	}

	// Approximate bilinear is fast with good quality at thumbnail sizes
	dstRect := image.Rect(0, 0, width, height)
	scaled := image.NewRGBA(dstRect)
	xdraw.ApproxBiLinear.Scale(scaled, dstRect, src, bounds, draw.Over, nil)
	return scaled
}

// Save writes a screenshot from s to dir, named after the current Unix
// time, and returns its path.
func Save(dir string, s emucore.Screenshotter) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	path := filepath.Join(dir, strconv.FormatInt(time.Now().Unix(), 10)+".png")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create screenshot file: %w", err)
	}

	werr := s.Screenshot(f)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		os.Remove(path)
		return "", werr
	}
	return path, nil
}
