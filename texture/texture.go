package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/blezek/tga"
	ftga "github.com/ftrvxmtrx/tga"
	"github.com/h2non/filetype"
	_ "github.com/oov/psd"
	"golang.org/x/image/bmp"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

// Info describes a texture file.
type Info struct {
	Path   string
	MIME   string
	Width  int
	Height int
}

type decodeFunc func(r io.Reader) (image.Image, error)

var decoders = map[string]decodeFunc{
	"image/png":  png.Decode,
	"image/jpeg": jpeg.Decode,
	"image/gif":  gif.Decode,
	"image/bmp":  bmp.Decode,
	"image/webp": nativewebp.Decode,
	"image/vnd.adobe.photoshop": func(r io.Reader) (image.Image, error) {
		img, _, err := image.Decode(r)
		return img, err
	},
}

// MimeType sniffs the content type of an image. TGA has no signature and
// is recognised by extension.
func MimeType(name string, data []byte) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if strings.ToLower(filepath.Ext(name)) == ".tga" {
		return "image/x-tga"
	}
	return ""
}

func decodeTGA(data []byte) (image.Image, error) {
	img, err := ftga.Decode(bytes.NewReader(data))
	if err != nil {
		// retry
		img, err = tga.Decode(bytes.NewReader(data))
	}
	return img, err
}

// Decode decodes image data. name is used for formats without a signature.
func Decode(name string, data []byte) (image.Image, string, error) {
	mime := MimeType(name, data)
	if mime == "image/x-tga" {
		img, err := decodeTGA(data)
		return img, mime, err
	}
	dec, ok := decoders[mime]
	if !ok {
		return nil, mime, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	img, err := dec(bytes.NewReader(data))
	return img, mime, err
}

func Load(path string) (image.Image, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, _, err := Decode(path, data)
	return img, err
}

// Probe checks that path is a decodable image.
func Probe(path string) (*Info, error) {
	if path == "" {
		return nil, fmt.Errorf("empty texture path")
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, mime, err := Decode(path, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	b := img.Bounds()
	return &Info{Path: path, MIME: mime, Width: b.Dx(), Height: b.Dy()}, nil
}

func Exists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
