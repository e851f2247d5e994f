package face

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/PauloHFS/faceauth/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Result is the outcome of one verification. Profile names the tier that
// decided, or the last tier attempted when every tier failed.
type Result struct {
	Verified      bool        `json:"verified"`
	Distance      float64     `json:"distance"`
	Threshold     float64     `json:"threshold"`
	Profile       string      `json:"model_profile"`
	FailureReason FailureKind `json:"failure_reason,omitempty"`
}

// Failed reports whether no tier produced a decision.
func (r Result) Failed() bool {
	return r.FailureReason != ""
}

// tierOutcome is what a single tier hands back to the verifier: either a
// decision or the kind of failure that stopped it.
type tierOutcome struct {
	profile  ModelProfile
	decision Decision
	failure  FailureKind
	err      error
}

func (o tierOutcome) ok() bool {
	return o.failure == ""
}

func (o tierOutcome) result() Result {
	r := Result{
		Profile:   o.profile.Name,
		Threshold: o.profile.Threshold,
	}
	if o.ok() {
		r.Verified = o.decision.Verified
		r.Distance = o.decision.Distance
	} else {
		r.FailureReason = o.failure
	}
	return r
}

// Verifier runs the primary profile and, only when it fails to produce a
// decision, the fallback profile. It holds no mutable state and is safe for
// concurrent use.
type Verifier struct {
	extractor Extractor
	profiles  []ModelProfile
	minBytes  int
	logger    *slog.Logger
}

var ErrNilExtractor = errors.New("face verifier requires an extractor")

type Option func(*Verifier)

func WithMinImageBytes(n int) Option {
	return func(v *Verifier) {
		v.minBytes = n
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) {
		v.logger = l
	}
}

func NewVerifier(extractor Extractor, profiles []ModelProfile, opts ...Option) (*Verifier, error) {
	if extractor == nil {
		return nil, ErrNilExtractor
	}
	if err := ValidateProfiles(profiles); err != nil {
		return nil, err
	}

	v := &Verifier{
		extractor: extractor,
		profiles:  append([]ModelProfile(nil), profiles...),
		minBytes:  DefaultMinImageBytes,
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = logging.Get()
	}
	return v, nil
}

func (v *Verifier) Profiles() []ModelProfile {
	return append([]ModelProfile(nil), v.profiles...)
}

func (v *Verifier) MinImageBytes() int {
	return v.minBytes
}

// Verify decodes both payloads and compares them. Image errors are returned
// before any model runs. Once both images decode, the only error Verify
// returns is the context's; everything else is reported through Result.
func (v *Verifier) Verify(ctx context.Context, reference, probe []byte) (Result, error) {
	ref, err := DecodeImage(reference, v.minBytes)
	if err != nil {
		return Result{}, fmt.Errorf("reference image: %w", err)
	}
	prb, err := DecodeImage(probe, v.minBytes)
	if err != nil {
		return Result{}, fmt.Errorf("probe image: %w", err)
	}
	return v.VerifyImages(ctx, ref, prb)
}

// VerifyImages is Verify for images that are already decoded. Images that
// fail Validate are rejected before any model runs.
func (v *Verifier) VerifyImages(ctx context.Context, reference, probe Image) (Result, error) {
	if err := reference.Validate(); err != nil {
		return Result{}, fmt.Errorf("reference image: %w", err)
	}
	if err := probe.Validate(); err != nil {
		return Result{}, fmt.Errorf("probe image: %w", err)
	}

	start := time.Now()

	ctx, span := tracer().Start(ctx, "face.Verify")
	defer span.End()

	var (
		last     tierOutcome
		attempts []string
	)
	for tier, profile := range v.profiles {
		if err := ctx.Err(); err != nil {
			return v.abort(span, err)
		}

		last = v.runTier(ctx, tier, profile, reference, probe)
		if last.ok() {
			break
		}

		// Cancellation surfaces as a failed extraction; it must not fall through to the next tier.
		if err := ctx.Err(); err != nil {
			return v.abort(span, err)
		}

		attempts = append(attempts, profile.Name+"="+string(last.failure))
		tierFailures.WithLabelValues(profile.Name, string(last.failure)).Inc()
		v.logger.WarnContext(ctx, "face tier failed",
			slog.Int("tier", tier),
			slog.String("profile", profile.Name),
			slog.String("reason", string(last.failure)),
			slog.Any("error", last.err),
		)
	}

	result := last.result()

	outcome := "rejected"
	switch {
	case result.Failed():
		outcome = "failed"
		span.SetStatus(codes.Error, string(result.FailureReason))
	case result.Verified:
		outcome = "verified"
	}

	verificationsTotal.WithLabelValues(outcome, result.Profile).Inc()
	verificationDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())

	span.SetAttributes(
		attribute.String("face.outcome", outcome),
		attribute.String("face.profile", result.Profile),
		attribute.Float64("face.distance", result.Distance),
	)

	logging.AddToEvent(ctx,
		slog.Bool("face_verified", result.Verified),
		slog.String("face_profile", result.Profile),
		slog.Float64("face_distance", result.Distance),
		slog.Float64("face_threshold", result.Threshold),
		slog.String("face_failure_reason", string(result.FailureReason)),
		slog.Any("face_failed_tiers", attempts),
	)

	return result, nil
}

func (v *Verifier) abort(span trace.Span, err error) (Result, error) {
	span.SetStatus(codes.Error, "cancelled")
	verificationsTotal.WithLabelValues("cancelled", "").Inc()
	return Result{}, err
}

func (v *Verifier) runTier(ctx context.Context, tier int, p ModelProfile, reference, probe Image) tierOutcome {
	ctx, span := tracer().Start(ctx, "face.Tier", trace.WithAttributes(
		attribute.Int("face.tier", tier),
		attribute.String("face.profile", p.Name),
	))
	defer span.End()

	fail := func(err error) tierOutcome {
		kind := KindOf(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		return tierOutcome{profile: p, failure: kind, err: err}
	}

	refEmb, err := v.extract(ctx, reference, p)
	if err != nil {
		return fail(fmt.Errorf("reference: %w", err))
	}
	probeEmb, err := v.extract(ctx, probe, p)
	if err != nil {
		return fail(fmt.Errorf("probe: %w", err))
	}

	distance, err := Distance(refEmb, probeEmb, p.Metric)
	if err != nil {
		return fail(err)
	}

	decision := Decide(distance, p.Threshold)
	span.SetAttributes(
		attribute.Float64("face.distance", decision.Distance),
		attribute.Bool("face.verified", decision.Verified),
	)
	return tierOutcome{profile: p, decision: decision}
}

func (v *Verifier) extract(ctx context.Context, img Image, p ModelProfile) (Embedding, error) {
	emb, err := v.extractor.Extract(ctx, img, p)
	if err != nil {
		return nil, err
	}
	if err := emb.Validate(); err != nil {
		return nil, err
	}
	return emb, nil
}
