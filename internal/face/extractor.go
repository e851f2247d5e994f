package face

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Extractor turns a face image into an embedding using the model and detector
// named by the profile. Failures carry NoFaceDetected, ModelUnavailable or
// ExtractionError; only the first detected face is used.
type Extractor interface {
	Extract(ctx context.Context, img Image, profile ModelProfile) (Embedding, error)
}

type ExtractorFunc func(ctx context.Context, img Image, profile ModelProfile) (Embedding, error)

func (f ExtractorFunc) Extract(ctx context.Context, img Image, profile ModelProfile) (Embedding, error) {
	return f(ctx, img, profile)
}

// serialExtractor holds a one-slot semaphore; waiting for the slot honours ctx.
type serialExtractor struct {
	slot chan struct{}
	next Extractor
}

// NewSerialExtractor runs at most one extraction at a time, for runtimes that
// cannot serve concurrent inference.
func NewSerialExtractor(next Extractor) Extractor {
	return &serialExtractor{slot: make(chan struct{}, 1), next: next}
}

func (s *serialExtractor) Extract(ctx context.Context, img Image, profile ModelProfile) (Embedding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	select {
	case s.slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-s.slot }()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.next.Extract(ctx, img, profile)
}

// CachingExtractor memoises embeddings per (pixel digest, profile).
type CachingExtractor struct {
	next  Extractor
	cache *lru.Cache[string, Embedding]
}

func NewCachingExtractor(next Extractor, size int) (*CachingExtractor, error) {
	cache, err := lru.New[string, Embedding](size)
	if err != nil {
		return nil, err
	}
	return &CachingExtractor{next: next, cache: cache}, nil
}

func (c *CachingExtractor) Extract(ctx context.Context, img Image, profile ModelProfile) (Embedding, error) {
	key := profile.Name + ":" + img.Digest()
	if emb, ok := c.cache.Get(key); ok {
		extractorCacheHits.WithLabelValues(profile.Name).Inc()
		return emb.Clone(), nil
	}

	emb, err := c.next.Extract(ctx, img, profile)
	if err != nil {
		return nil, err
	}
	if emb.Validate() == nil {
		c.cache.Add(key, emb.Clone())
	}
	return emb, nil
}

func (c *CachingExtractor) Len() int {
	return c.cache.Len()
}

func (c *CachingExtractor) Purge() {
	c.cache.Purge()
}
