package face

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/PauloHFS/faceauth/internal/face"

var (
	extractionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "face_extraction_duration_seconds",
		Help:    "Embedding extraction duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"model", "detector", "status"})

	extractionErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "face_extraction_errors_total",
		Help: "Total number of failed embedding extractions",
	}, []string{"model", "reason"})

	extractorCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "face_embedding_cache_hits_total",
		Help: "Embeddings served from the in-memory cache",
	}, []string{"profile"})

	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "face_verifications_total",
		Help: "Completed face verifications by outcome and deciding profile",
	}, []string{"outcome", "profile"})

	tierFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "face_tier_failures_total",
		Help: "Tier attempts that ended without a decision",
	}, []string{"profile", "reason"})

	verificationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "face_verification_duration_seconds",
		Help:    "End-to-end verification duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"outcome"})
)

func tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

type instrumentedExtractor struct {
	next Extractor
}

// NewInstrumentedExtractor records latency, failures and a trace span for every extraction.
func NewInstrumentedExtractor(next Extractor) Extractor {
	return &instrumentedExtractor{next: next}
}

func (i *instrumentedExtractor) Extract(ctx context.Context, img Image, profile ModelProfile) (Embedding, error) {
	ctx, span := tracer().Start(ctx, "face.Extract", trace.WithAttributes(
		attribute.String("face.model", profile.Model),
		attribute.String("face.detector", profile.Detector),
		attribute.Int("face.image.width", img.Width),
		attribute.Int("face.image.height", img.Height),
	))
	defer span.End()

	start := time.Now()
	emb, err := i.next.Extract(ctx, img, profile)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		reason := string(KindOf(err))
		extractionDuration.WithLabelValues(profile.Model, profile.Detector, "error").Observe(elapsed)
		extractionErrors.WithLabelValues(profile.Model, reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		return nil, err
	}

	extractionDuration.WithLabelValues(profile.Model, profile.Detector, "success").Observe(elapsed)
	span.SetAttributes(attribute.Int("face.embedding.dim", len(emb)))
	return emb, nil
}
