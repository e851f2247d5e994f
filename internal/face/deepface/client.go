// Package deepface extracts face embeddings through a DeepFace-compatible
// HTTP service exposing POST /represent.
package deepface

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PauloHFS/faceauth/internal/face"
	"github.com/PauloHFS/faceauth/internal/httpclient"
	"github.com/PauloHFS/faceauth/internal/logging"
	"golang.org/x/image/draw"
)

const (
	defaultBaseURL      = "http://localhost:5005"
	defaultTimeout      = 30 * time.Second
	defaultMaxImageSide = 1024
	maxResponseBytes    = 16 << 20
)

var ErrNoFaceInResponse = errors.New("no face in response")

type Config struct {
	BaseURL string
	Timeout time.Duration
	// Token is sent as a bearer token when set.
	Token string
	// MaxImageSide bounds the longest side of the image sent to the service.
	MaxImageSide int
	Transport    http.RoundTripper
}

// Client implements face.Extractor.
type Client struct {
	baseURL      string
	maxImageSide int
	http         *httpclient.Client
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxImageSide <= 0 {
		cfg.MaxImageSide = defaultMaxImageSide
	}

	return &Client{
		baseURL:      strings.TrimSuffix(cfg.BaseURL, "/"),
		maxImageSide: cfg.MaxImageSide,
		http: httpclient.New(httpclient.Config{
			Name:      "deepface",
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		}, httpclient.WithBearerToken(cfg.Token)),
	}
}

var _ face.Extractor = (*Client)(nil)

func (c *Client) Extract(ctx context.Context, img face.Image, profile face.ModelProfile) (face.Embedding, error) {
	const op = "deepface.Extract"

	encoded, err := c.encode(img)
	if err != nil {
		return nil, face.Fail(face.ExtractionError, op, err)
	}

	body, err := json.Marshal(representRequest{
		Img:              "data:image/jpeg;base64," + encoded,
		ModelName:        profile.Model,
		DetectorBackend:  profile.Detector,
		EnforceDetection: profile.EnforceDetection,
		Align:            true,
	})
	if err != nil {
		return nil, face.Fail(face.ExtractionError, op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/represent", bytes.NewReader(body))
	if err != nil {
		return nil, face.Fail(face.ExtractionError, op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, face.Fail(face.ModelUnavailable, op, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, face.Fail(face.ModelUnavailable, op, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classify(op, resp.StatusCode, payload)
	}

	var out representResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, face.Fail(face.ExtractionError, op, fmt.Errorf("decode response: %w", err))
	}
	if len(out.Results) == 0 {
		return nil, face.Fail(face.NoFaceDetected, op, ErrNoFaceInResponse)
	}

	// The first face the detector returns is authoritative.
	first := out.Results[0]
	logging.AddToEvent(ctx,
		slog.String("deepface_model", profile.Model),
		slog.Int("deepface_faces", len(out.Results)),
		slog.Float64("deepface_face_confidence", first.FaceConfidence),
	)

	if len(first.Embedding) == 0 {
		return nil, face.Fail(face.ExtractionError, op, errors.New("empty embedding returned"))
	}
	return face.Embedding(first.Embedding), nil
}

// Ping checks that the service answers on its root endpoint.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return face.Fail(face.ModelUnavailable, "deepface.Ping", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return face.Fail(face.ModelUnavailable, "deepface.Ping", fmt.Errorf("status %d", resp.StatusCode))
	}
	return nil
}

func classify(op string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		msg = er.Error
	}
	cause := fmt.Errorf("status %d: %s", status, msg)

	switch {
	case status >= 500, status == http.StatusNotFound, status == http.StatusTooManyRequests:
		return face.Fail(face.ModelUnavailable, op, cause)
	case isNoFaceMessage(msg):
		return face.Fail(face.NoFaceDetected, op, cause)
	default:
		return face.Fail(face.ExtractionError, op, cause)
	}
}

func isNoFaceMessage(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "face could not be detected") ||
		strings.Contains(m, "no face") ||
		strings.Contains(m, "could not detect")
}

// encode downsizes img to maxImageSide and returns it as base64 JPEG.
func (c *Client) encode(img face.Image) (string, error) {
	if err := img.Validate(); err != nil {
		return "", err
	}

	var src image.Image = img.RGBA()
	if w, h := img.Width, img.Height; max(w, h) > c.maxImageSide {
		var nw, nh int
		if w > h {
			nw = c.maxImageSide
			nh = max(1, h*c.maxImageSide/w)
		} else {
			nh = c.maxImageSide
			nw = max(1, w*c.maxImageSide/h)
		}
		dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
		src = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: 95}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
