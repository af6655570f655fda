package imaging

import (
	"errors"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestImage writes a solid colour image into dir and returns its path
func writeTestImage(t *testing.T, dir, name string, width, height int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(dir, name)
	require.NoError(t, SaveImage(path, img))
	return path
}

func TestNewFrame_Nil(t *testing.T) {
	f := NewFrame(nil)
	assert.True(t, f.Empty())
	assert.Equal(t, 0, f.Width())
	assert.Equal(t, 0, f.Height())
}

func TestNewFrame_RebasesOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 15, 13))
	src.Set(5, 5, color.RGBA{10, 20, 30, 255})

	f := NewFrame(src)

	assert.Equal(t, 10, f.Width())
	assert.Equal(t, 8, f.Height())
	r, g, b := f.RGB(0, 0)
	assert.Equal(t, [3]uint8{10, 20, 30}, [3]uint8{r, g, b})
	assert.True(t, f.In(9, 7))
	assert.False(t, f.In(10, 7))
}

func TestLoadFrame(t *testing.T) {
	dir := t.TempDir()
	path := writeTestImage(t, dir, "frame.png", 30, 20, color.RGBA{255, 0, 0, 255})

	f, err := LoadFrame(path)
	require.NoError(t, err)
	assert.Equal(t, 30, f.Width())
	assert.Equal(t, 20, f.Height())

	r, g, b := f.RGB(3, 3)
	assert.Equal(t, [3]uint8{255, 0, 0}, [3]uint8{r, g, b})
}

func TestLoadFrame_Errors(t *testing.T) {
	_, err := LoadFrame("/nonexistent/path/frame.png")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = LoadFrame(bad)
	assert.Error(t, err)
}

func TestFrameCache(t *testing.T) {
	dir := t.TempDir()
	path := writeTestImage(t, dir, "a.png", 10, 10, color.White)
	cache := NewFrameCache()

	f1, err := cache.Load(path)
	require.NoError(t, err)
	f2, err := cache.Load(path)
	require.NoError(t, err)

	assert.Same(t, f1, f2, "second load should hit the cache")
	assert.Equal(t, 1, cache.Len())

	cache.Evict(path)
	assert.Equal(t, 0, cache.Len())

	f3, err := cache.Load(path)
	require.NoError(t, err)
	assert.NotSame(t, f1, f3, "evicted frame should be decoded again")
}

func TestFrameCache_ReloadsRewrittenFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTestImage(t, dir, "live.png", 10, 10, color.White)
	cache := NewFrameCache()

	first, err := cache.Load(path)
	require.NoError(t, err)

	// Same dimensions, different content; push the mtime forward so the
	// change is visible on filesystems with coarse timestamps.
	writeTestImage(t, dir, "live.png", 10, 10, color.Black)
	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	second, err := cache.Load(path)
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	r, g, b := second.RGB(0, 0)
	assert.Equal(t, [3]uint8{0, 0, 0}, [3]uint8{r, g, b})
	assert.Equal(t, 1, cache.Len())
}

func TestFrameCache_MissingFile(t *testing.T) {
	cache := NewFrameCache()
	_, err := cache.Load(filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, 0, cache.Len())
}

func TestFrameCache_Concurrent(t *testing.T) {
	dir := t.TempDir()
	path := writeTestImage(t, dir, "a.png", 10, 10, color.White)
	cache := NewFrameCache()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.Load(path)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cache.Len())
}

func TestOpenDir(t *testing.T) {
	dir := t.TempDir()
	writeTestImage(t, dir, "frame_002.png", 8, 8, color.White)
	writeTestImage(t, dir, "frame_001.png", 8, 8, color.Black)
	writeTestImage(t, dir, "frame_003.jpg", 8, 8, color.White)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.png"), 0o755))

	src, err := OpenDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, src.Len())

	var names []string
	for {
		f, path, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		assert.Equal(t, 8, f.Width())
		names = append(names, filepath.Base(path))
	}

	assert.Equal(t, []string{"frame_001.png", "frame_002.png", "frame_003.jpg"}, names)

	_, _, err = src.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenDir_Failures(t *testing.T) {
	_, err := OpenDir(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)

	_, err = OpenDir(t.TempDir())
	assert.ErrorIs(t, err, ErrNoImages)
}

func TestSaveImage_JPEG(t *testing.T) {
	dir := t.TempDir()
	path := writeTestImage(t, dir, "out.jpeg", 16, 16, color.Gray{Y: 128})

	f, err := LoadFrame(path)
	require.NoError(t, err)
	assert.Equal(t, 16, f.Width())
}
