package imaging

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
)

// ErrNoImages is returned by OpenDir when the directory holds no decodable frames.
var ErrNoImages = errors.New("no image files found")

// Frame is an immutable colour frame with its origin at (0, 0).
//
// Frames are built from any decoded image.Image; the pixels are copied into
// an NRGBA buffer so the pipeline can read RGB samples without going through
// the color.Color interface. The alpha channel is ignored.
type Frame struct {
	img *image.NRGBA
}

// NewFrame copies img into a new Frame. A nil image yields an empty 0×0 frame.
func NewFrame(img image.Image) *Frame {
	if img == nil {
		return &Frame{img: image.NewNRGBA(image.Rect(0, 0, 0, 0))}
	}
	return &Frame{img: imaging.Clone(img)}
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int {
	if f == nil || f.img == nil {
		return 0
	}
	return f.img.Rect.Dx()
}

// Height returns the frame height in pixels.
func (f *Frame) Height() int {
	if f == nil || f.img == nil {
		return 0
	}
	return f.img.Rect.Dy()
}

// Empty reports whether the frame has no pixels.
func (f *Frame) Empty() bool {
	return f.Width() == 0 || f.Height() == 0
}

// In reports whether (x, y) is a valid pixel coordinate.
func (f *Frame) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < f.Width() && y < f.Height()
}

// RGB returns the 8-bit colour components at (x, y).
// No bounds checking is performed; callers must use In first.
func (f *Frame) RGB(x, y int) (r, g, b uint8) {
	i := f.img.PixOffset(x, y)
	return f.img.Pix[i], f.img.Pix[i+1], f.img.Pix[i+2]
}

// Image exposes the frame as an image.Image. The returned image must not be modified.
func (f *Frame) Image() image.Image {
	return f.img
}

// LoadFrame decodes an image file into a Frame.
//
// Supported formats are those registered with disintegration/imaging (PNG,
// JPEG, GIF, BMP, TIFF). EXIF orientation tags are honoured so frames exported
// from phones come out upright.
func LoadFrame(path string) (*Frame, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load frame %s: %w", path, err)
	}
	return NewFrame(img), nil
}

// FrameCache provides thread-safe caching of loaded frames keyed by file path.
//
// The tool server uses it so repeated calls on the same image skip decoding.
// Each entry remembers the file's size and modification time; a file that
// has been rewritten since it was cached is decoded again on the next Load.
// Cached frames remain in memory until replaced or removed via Evict().
type FrameCache struct {
	mu     sync.RWMutex
	frames map[string]cachedFrame
}

type cachedFrame struct {
	frame   *Frame
	size    int64
	modTime time.Time
}

// NewFrameCache creates an empty frame cache.
func NewFrameCache() *FrameCache {
	return &FrameCache{
		frames: make(map[string]cachedFrame),
	}
}

// Load returns the cached frame for path, decoding it from disk on first use
// or when the file changed since it was cached.
//
// The frame is cached using the exact path string provided. Different paths to
// the same file result in separate cache entries.
func (c *FrameCache) Load(path string) (*Frame, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load frame %s: %w", path, err)
	}

	c.mu.RLock()
	entry, ok := c.frames[path]
	c.mu.RUnlock()
	if ok && entry.size == info.Size() && entry.modTime.Equal(info.ModTime()) {
		return entry.frame, nil
	}

	f, err := LoadFrame(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.frames[path] = cachedFrame{frame: f, size: info.Size(), modTime: info.ModTime()}
	c.mu.Unlock()

	return f, nil
}

// Evict removes a single frame from the cache. Unknown paths are ignored.
func (c *FrameCache) Evict(path string) {
	c.mu.Lock()
	delete(c.frames, path)
	c.mu.Unlock()
}

// Len returns the number of cached frames.
func (c *FrameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.frames)
}

// DirSource yields the image files of a directory as a frame sequence.
//
// Files are visited in lexical order of their names, so numbered exports such
// as frame_00001.png play back in capture order. Subdirectories and files
// with unrecognised extensions are skipped.
type DirSource struct {
	paths []string
	next  int
}

// OpenDir lists the frames in dir.
//
// Returns an error if the directory cannot be read, or ErrNoImages (wrapped)
// if it holds no image files. Either case means the source failed to open.
func OpenDir(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame directory: %w", err)
	}

	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !isFrameFile(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoImages)
	}
	sort.Strings(paths)

	return &DirSource{paths: paths}, nil
}

// Len returns the total number of frames in the source.
func (s *DirSource) Len() int {
	return len(s.paths)
}

// Next decodes the next frame and returns it with its file path.
// It returns io.EOF once every frame has been read.
func (s *DirSource) Next() (*Frame, string, error) {
	if s.next >= len(s.paths) {
		return nil, "", io.EOF
	}
	path := s.paths[s.next]
	s.next++

	f, err := LoadFrame(path)
	if err != nil {
		return nil, path, err
	}
	return f, path, nil
}

func isFrameFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}

// SaveImage writes img to path, choosing the encoder from the file extension.
//
// ".jpg" and ".jpeg" are written as JPEG (quality 95); everything else is PNG.
func SaveImage(path string, img image.Image) error {
	var enc imgio.Encoder
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		enc = imgio.JPEGEncoder(95)
	default:
		enc = imgio.PNGEncoder()
	}

	if err := imgio.Save(path, img, enc); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}
	return nil
}
