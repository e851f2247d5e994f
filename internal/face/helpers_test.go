package face

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"sync"
	"testing"
)

// noisePNG encodes a w x h image of pseudo-random pixels. Noise keeps the
// encoded size well above DefaultMinImageBytes for anything over ~24x24.
func noisePNG(t testing.TB, w, h int, seed uint64) []byte {
	t.Helper()
	return encodePNG(t, noiseImage(w, h, seed))
}

func noiseImage(w, h int, seed uint64) *image.NRGBA {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(rng.IntN(256)),
				G: uint8(rng.IntN(256)),
				B: uint8(rng.IntN(256)),
				A: 0xff,
			})
		}
	}
	return img
}

func encodePNG(t testing.TB, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func dataURI(mediaType string, data []byte) []byte {
	return []byte("data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

type call struct {
	profile string
	width   int
}

// stubExtractor returns canned embeddings or errors per (profile, image width).
type stubExtractor struct {
	mu      sync.Mutex
	calls   []call
	results map[call]stubResult
}

type stubResult struct {
	emb Embedding
	err error
}

func newStub() *stubExtractor {
	return &stubExtractor{results: make(map[call]stubResult)}
}

func (s *stubExtractor) on(profile string, width int, emb Embedding, err error) *stubExtractor {
	s.results[call{profile, width}] = stubResult{emb: emb, err: err}
	return s
}

func (s *stubExtractor) Extract(ctx context.Context, img Image, p ModelProfile) (Embedding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := call{p.Name, img.Width}
	s.calls = append(s.calls, c)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := s.results[c]
	if !ok {
		return nil, Fail(ExtractionError, "stub", nil)
	}
	return r.emb.Clone(), r.err
}

func (s *stubExtractor) callsFor(profile string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.profile == profile {
			n++
		}
	}
	return n
}
