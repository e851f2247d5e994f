package face

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultMinImageBytes is the smallest decoded payload accepted as a face image.
const DefaultMinImageBytes = 1000

// MaxImagePixels caps Width*Height, checked from the container header before
// any pixel is decoded.
const MaxImagePixels = 40_000_000

var allowedMediaTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/bmp":  true,
}

// Image is a decoded picture normalised to packed 8-bit RGB.
type Image struct {
	Width  int
	Height int
	// Pix holds 3 bytes per pixel, row major.
	Pix    []byte
	Format string
	// Size is the length of the encoded payload the image was decoded from.
	Size int
}

func (img Image) Validate() error {
	if img.Width <= 0 || img.Height <= 0 {
		return Fail(InvalidImageFormat, "face.Image", errors.New("empty image"))
	}
	if len(img.Pix) != img.Width*img.Height*3 {
		return Fail(InvalidImageFormat, "face.Image", fmt.Errorf("pixel buffer has %d bytes for %dx%d", len(img.Pix), img.Width, img.Height))
	}
	return nil
}

// RGBA expands the pixel data into an *image.RGBA, for encoders.
func (img Image) RGBA() *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for i, j := 0, 0; i+2 < len(img.Pix); i, j = i+3, j+4 {
		out.Pix[j] = img.Pix[i]
		out.Pix[j+1] = img.Pix[i+1]
		out.Pix[j+2] = img.Pix[i+2]
		out.Pix[j+3] = 0xff
	}
	return out
}

// Digest identifies the pixel content, independent of the container it came in.
func (img Image) Digest() string {
	h := sha256.New()
	var dims [16]byte
	binary.BigEndian.PutUint64(dims[:8], uint64(img.Width))
	binary.BigEndian.PutUint64(dims[8:], uint64(img.Height))
	h.Write(dims[:])
	h.Write(img.Pix)
	return hex.EncodeToString(h.Sum(nil))
}

// DecodeImage accepts a data URI, bare base64 text or raw image bytes and
// returns the normalised image. Payloads that decode to fewer than minBytes
// bytes are rejected with ImageTooSmall before the container is parsed.
func DecodeImage(payload []byte, minBytes int) (Image, error) {
	const op = "face.DecodeImage"

	raw, err := decodePayload(payload)
	if err != nil {
		return Image{}, err
	}

	if len(raw) < minBytes {
		return Image{}, Fail(ImageTooSmall, op, fmt.Errorf("%d bytes, minimum is %d", len(raw), minBytes))
	}

	header, _, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Image{}, Fail(InvalidImageFormat, op, err)
	}
	if header.Width <= 0 || header.Height <= 0 || header.Width > MaxImagePixels/header.Height {
		return Image{}, Fail(InvalidImageFormat, op, fmt.Errorf("%dx%d exceeds %d pixels", header.Width, header.Height, MaxImagePixels))
	}

	src, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Image{}, Fail(InvalidImageFormat, op, err)
	}

	img := normalize(src)
	img.Format = format
	img.Size = len(raw)
	if err := img.Validate(); err != nil {
		return Image{}, err
	}
	return img, nil
}

// DecodedBytes strips the transport encoding from payload and returns the
// container bytes, without parsing them.
func DecodedBytes(payload []byte) ([]byte, error) {
	return decodePayload(payload)
}

func decodePayload(payload []byte) ([]byte, error) {
	const op = "face.DecodeImage"

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return nil, Fail(InvalidImageFormat, op, errors.New("empty payload"))
	}

	if bytes.HasPrefix(trimmed, []byte("data:")) {
		return decodeDataURI(trimmed)
	}

	if looksLikeBase64(trimmed) {
		if decoded, err := decodeBase64(trimmed); err == nil {
			return decoded, nil
		}
	}

	return payload, nil
}

func decodeDataURI(uri []byte) ([]byte, error) {
	const op = "face.DecodeImage"

	header, data, ok := bytes.Cut(uri, []byte(","))
	if !ok {
		return nil, Fail(InvalidImageFormat, op, errors.New("data URI without payload separator"))
	}

	meta := strings.ToLower(string(header[len("data:"):]))
	mediaType, _, _ := strings.Cut(meta, ";")
	if !allowedMediaTypes[mediaType] {
		return nil, Fail(InvalidImageFormat, op, fmt.Errorf("unsupported media type %q", mediaType))
	}
	if !strings.HasSuffix(meta, ";base64") {
		return nil, Fail(InvalidImageFormat, op, errors.New("data URI is not base64 encoded"))
	}

	decoded, err := decodeBase64(data)
	if err != nil {
		return nil, Fail(InvalidImageFormat, op, err)
	}
	return decoded, nil
}

func decodeBase64(data []byte) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, string(data))

	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err == nil {
		return decoded, nil
	}
	if decoded, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(cleaned, "=")); rawErr == nil {
		return decoded, nil
	}
	return nil, fmt.Errorf("invalid base64 payload: %w", err)
}

func looksLikeBase64(data []byte) bool {
	if len(data) < 4 {
		return false
	}
	for _, c := range data {
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '+', c == '/', c == '=', c == '\n', c == '\r':
		default:
			return false
		}
	}
	return true
}

// normalize converts any colour model to packed RGB. Alpha is discarded.
func normalize(src image.Image) Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	rgba, ok := src.(*image.RGBA)
	if !ok || rgba.Rect.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	}

	pix := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			pix = append(pix, row[x], row[x+1], row[x+2])
		}
	}

	return Image{Width: w, Height: h, Pix: pix}
}
