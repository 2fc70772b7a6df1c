package instagram

import (
	"context"
	"time"

	"reelproxy/pkg/config"
	errs "reelproxy/pkg/errors"
	"reelproxy/pkg/logger"
	"reelproxy/pkg/ratelimit"
	"reelproxy/pkg/retry"
)

// Resolver orchestrates extraction: bounded retries of the primary
// capability, then a single shot at the fallback technique, then a
// best-effort private-account probe to tell access denial apart from
// plain failure.
type Resolver struct {
	primary  Extractor
	fallback Extractor
	prober   Prober
	limiter  ratelimit.Limiter
	cfg      config.ResolverConfig
	logger   logger.Logger
}

// NewResolver creates a resolver. fallback and prober may be nil to
// disable those stages; limiter may be nil to disable outbound pacing.
func NewResolver(primary Extractor, fallback Extractor, prober Prober, limiter ratelimit.Limiter, cfg config.ResolverConfig, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Resolver{
		primary:  primary,
		fallback: fallback,
		prober:   prober,
		limiter:  limiter,
		cfg:      cfg,
		logger:   log,
	}
}

// Resolve turns a content page URL into an ExtractionResult or fails
// with a tagged error. Private content short-circuits: retrying cannot
// change an access-control outcome.
func (r *Resolver) Resolve(ctx context.Context, sourceURL string) (*ExtractionResult, error) {
	// Small randomized delay before the very first attempt so concurrent
	// callers don't hit the upstream in lockstep
	if err := retry.Wait(ctx, retry.Jitter(r.cfg.FirstAttemptJitter)); err != nil {
		return nil, err
	}

	result, err := retry.DoWithResult(func() (*ExtractionResult, error) {
		return r.attempt(ctx, sourceURL)
	}, &retry.Config{
		MaxAttempts: r.cfg.MaxAttempts,
		Backoff: &retry.StepBackoff{
			Step:     r.cfg.BackoffStep,
			MaxDelay: r.cfg.BackoffCap,
		},
		RetryIf: retry.DefaultRetryIf,
		ExtraDelay: func(err error) time.Duration {
			// Rate-limit signals get a fixed cooldown on top of backoff
			if errs.Is(err, errs.ErrorTypeRateLimit) {
				return r.cfg.RateLimitCooldown
			}
			return 0
		},
		Context: ctx,
		Logger:  r.logger,
	})
	if err == nil {
		return result, nil
	}

	classified := errs.Classify(err)
	if classified.Type == errs.ErrorTypePrivate {
		return nil, classified
	}

	if r.fallback != nil && r.cfg.FallbackEnabled {
		r.logger.InfoWithFields("primary extraction failed, trying fallback", map[string]interface{}{
			"url":   sourceURL,
			"error": classified.Error(),
		})
		fbResult, fbErr := r.fallback.Extract(ctx, sourceURL)
		if fbErr == nil && len(fbResult.MediaURLs) > 0 {
			return fbResult, nil
		}
		if fbErr != nil {
			r.logger.WarnWithFields("fallback extraction failed", map[string]interface{}{
				"url":   sourceURL,
				"error": fbErr.Error(),
			})
		}

		if r.prober != nil && r.cfg.PrivateProbeEnabled && r.prober.IsPrivate(ctx, sourceURL) {
			return nil, errs.New(errs.ErrorTypePrivate, "owning account appears to be private")
		}
	}

	return nil, classified
}

// attempt performs a single paced invocation of the primary extractor
func (r *Resolver) attempt(ctx context.Context, sourceURL string) (*ExtractionResult, error) {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	result, err := r.primary.Extract(ctx, sourceURL)
	if err != nil {
		return nil, errs.Classify(err)
	}
	if result.CanonicalURL() == "" {
		return nil, errs.New(errs.ErrorTypeNotFound, "extraction produced no media urls")
	}
	return result, nil
}
