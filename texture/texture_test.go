package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, dir, name string, w, h int, alpha uint8) string {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 100, B: 50, A: alpha})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, buf.Bytes(), 0644))
	return path
}

func TestProbe(t *testing.T) {
	dir := t.TempDir()
	path := writePNG(t, dir, "wood.png", 8, 4, 255)

	info, err := Probe(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.MIME)
	assert.Equal(t, 8, info.Width)
	assert.Equal(t, 4, info.Height)

	_, err = Probe(filepath.Join(dir, "missing.png"))
	assert.True(t, os.IsNotExist(err))

	txt := filepath.Join(dir, "notes.png")
	require.NoError(t, ioutil.WriteFile(txt, []byte("not an image"), 0644))
	_, err = Probe(txt)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestCacheReencode(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, dir, "leaf.png", 16, 16, 128)
	c := NewCache(dir)

	img, err := c.Image("leaf.png")
	require.NoError(t, err)
	assert.True(t, HasAlpha(img))
	again, _ := c.Image("leaf.png")
	assert.Same(t, img, again)

	r, err := c.Reencode("leaf.png", "image/webp", 0.5, 0)
	require.NoError(t, err)
	data, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", MimeType("leaf.webp", data))

	decoded, mime, err := Decode("leaf.webp", data)
	require.NoError(t, err)
	assert.Equal(t, "image/webp", mime)
	assert.Equal(t, 8, decoded.Bounds().Dx())
}

func TestScaleLimit(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 32))
	assert.Same(t, image.Image(img), Scale(img, 1, 0))
	s := Scale(img, 1, 16)
	assert.Equal(t, 16, s.Bounds().Dx())
	assert.Equal(t, 8, s.Bounds().Dy())
	assert.False(t, HasAlpha(image.NewGray(image.Rect(0, 0, 1, 1))))
}

func TestOutputMimeType(t *testing.T) {
	assert.Equal(t, "image/jpeg", OutputMimeType("a.JPG", false))
	assert.Equal(t, "image/png", OutputMimeType("a.tga", false))
	assert.Equal(t, "image/webp", OutputMimeType("a.png", true))
}
