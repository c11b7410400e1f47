package screenshot

import (
	"image"
	"sync"
)

// Framebuffer holds RGBA pixel data written by the emulation goroutine
// and read by screenshot capture. Uses separate write and read buffers
// so the emulation goroutine can write new data while a reader uses the
// read copy.
type Framebuffer struct {
	mu           sync.Mutex
	writePixels  []byte // Written by emu goroutine under lock
	readPixels   []byte // Snapshot copied on Read for safe external use
	stride       int
	activeHeight int
}

// NewFramebuffer creates a pre-allocated framebuffer sized for the
// given screen dimensions (width and height in pixels, 4 bytes per pixel).
func NewFramebuffer(width, height int) *Framebuffer {
	size := width * height * 4
	return &Framebuffer{
		writePixels: make([]byte, size),
		readPixels:  make([]byte, size),
	}
}

// Update copies a frame from the emulation goroutine. stride is the row
// length in bytes.
func (fb *Framebuffer) Update(pixels []byte, stride, activeHeight int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	n := min(stride*activeHeight, len(fb.writePixels), len(pixels))
	copy(fb.writePixels[:n], pixels[:n])
	fb.stride = stride
	fb.activeHeight = activeHeight
}

// Read returns a snapshot of the current frame. The returned slice is
// only valid until the next Read.
func (fb *Framebuffer) Read() (pixels []byte, stride, activeHeight int) {
	fb.mu.Lock()
	defer fb.mu.Unlock()

	stride = fb.stride
	activeHeight = fb.activeHeight
	n := min(stride*activeHeight, len(fb.writePixels))
	if n > 0 {
		copy(fb.readPixels[:n], fb.writePixels[:n])
	}
	return fb.readPixels, stride, activeHeight
}

// Image returns a copy of the current frame, or nil before the first
// Update.
func (fb *Framebuffer) Image() *image.RGBA {
	pixels, stride, height := fb.Read()
	if stride < 4 || height <= 0 || stride*height > len(pixels) {
		return nil
	}
	img := image.NewRGBA(image.Rect(0, 0, stride/4, height))
	for y := 0; y < height; y++ {
		copy(img.Pix[y*img.Stride:(y+1)*img.Stride], pixels[y*stride:y*stride+img.Stride])
	}
	return img
}
