package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"io/ioutil"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// Cache decodes textures once. Names are relative to SrcDir unless absolute.
type Cache struct {
	SrcDir   string
	textures map[string]*entry
}

type entry struct {
	name string
	data []byte
	mime string
	img  image.Image
	err  error
}

func NewCache(srcDir string) *Cache {
	return &Cache{SrcDir: srcDir, textures: map[string]*entry{}}
}

func (c *Cache) path(name string) string {
	if filepath.IsAbs(name) || c.SrcDir == "" {
		return name
	}
	return filepath.Join(c.SrcDir, name)
}

func (c *Cache) get(name string) *entry {
	if t, ok := c.textures[name]; ok {
		return t
	}
	t := &entry{name: name}
	c.textures[name] = t
	return t
}

func (c *Cache) load(t *entry) {
	if t.data != nil || t.err != nil {
		return
	}
	t.data, t.err = ioutil.ReadFile(c.path(t.name))
	if t.err == nil {
		t.mime = MimeType(t.name, t.data)
	}
}

// Image returns the decoded texture.
func (c *Cache) Image(name string) (image.Image, error) {
	t := c.get(name)
	c.load(t)
	if t.img != nil || t.err != nil {
		return t.img, t.err
	}
	t.img, _, t.err = Decode(t.name, t.data)
	return t.img, t.err
}

// Raw returns the file contents and sniffed MIME type.
func (c *Cache) Raw(name string) ([]byte, string, error) {
	t := c.get(name)
	c.load(t)
	return t.data, t.mime, t.err
}

func HasAlpha(img image.Image) bool {
	switch img.ColorModel() {
	case color.YCbCrModel, color.CMYKModel, color.GrayModel, color.Gray16Model:
		return false
	}
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return false
}

// Scale resizes img by scale, clamped so the width does not exceed limit (0: unlimited).
func Scale(img image.Image, scale float32, limit int) image.Image {
	rect := img.Bounds()
	if limit > 0 {
		sz := int(float32(rect.Dx()) * scale)
		if sz > limit {
			scale *= float32(limit) / float32(sz)
		}
	}
	if scale == 1.0 || scale <= 0 {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, int(float32(rect.Dx())*scale), int(float32(rect.Dy())*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, rect, draw.Over, nil)
	return dst
}

func Encode(w io.Writer, img image.Image, mime string) error {
	switch mime {
	case "image/png":
		return png.Encode(w, img)
	case "image/webp":
		return nativewebp.Encode(w, img, nil)
	}
	return jpeg.Encode(w, img, nil)
}

// OutputMimeType picks the encoding used when a texture must be re-encoded.
func OutputMimeType(name string, preferWebP bool) string {
	if preferWebP {
		return "image/webp"
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".jpg" || ext == ".jpeg" {
		return "image/jpeg"
	}
	return "image/png"
}

// Reencode decodes, scales and encodes a texture.
func (c *Cache) Reencode(name, mime string, scale float32, limit int) (io.Reader, error) {
	img, err := c.Image(name)
	if err != nil {
		return nil, err
	}
	w := new(bytes.Buffer)
	if err := Encode(w, Scale(img, scale, limit), mime); err != nil {
		return nil, err
	}
	return w, nil
}
