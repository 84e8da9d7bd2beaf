// Package middleware applies per-user rate limits to authenticated routes.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"bloodlink/internal/ratelimit/metrics"
	"bloodlink/internal/ratelimit/models"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/requestcontext"
)

// BucketStore is satisfied by the memory and Redis bucket stores.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.Result, error)
}

// Classifier maps a request onto its rate limit class.
type Classifier func(r *http.Request) models.Class

type Middleware struct {
	store    BucketStore
	limits   map[models.Class]models.Limit
	classify Classifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

// WithDisabled turns every check into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) {
		m.disabled = disabled
	}
}

func WithClassifier(c Classifier) Option {
	return func(m *Middleware) {
		m.classify = c
	}
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Middleware) {
		m.metrics = mt
	}
}

func New(store BucketStore, limits map[models.Class]models.Limit, logger *slog.Logger, opts ...Option) *Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Middleware{
		store:    store,
		limits:   limits,
		classify: DefaultClassifier,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

// DefaultClassifier treats donor searches as the most expensive call, other
// writes next, and everything else as reads.
func DefaultClassifier(r *http.Request) models.Class {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(strings.TrimSuffix(r.URL.Path, "/"), "/matches"):
		return models.ClassMatchSearch
	case r.Method == http.MethodGet || r.Method == http.MethodHead:
		return models.ClassRead
	default:
		return models.ClassWrite
	}
}

// PerUser limits each authenticated user per class. It runs after the auth
// middleware; anonymous requests and store failures pass through.
func (m *Middleware) PerUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		userID := requestcontext.UserID(ctx)
		class := m.classify(r)
		limit, ok := m.limits[class]
		if userID.IsNil() || !ok || limit.Requests <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		result, err := m.store.Allow(ctx, models.UserKey(userID.String(), class), limit)
		if err != nil {
			m.metrics.IncrementStoreError()
			m.logger.ErrorContext(ctx, "failed to check user rate limit",
				"error", err,
				"user_id", userID.String(),
				"class", string(class),
				"request_id", requestcontext.RequestID(ctx),
			)
			next.ServeHTTP(w, r)
			return
		}

		addRateLimitHeaders(w, result)
		if !result.Allowed {
			m.metrics.IncrementRejection(string(class))
			m.logger.WarnContext(ctx, "user rate limit exceeded",
				"user_id", userID.String(),
				"class", string(class),
				"request_id", requestcontext.RequestID(ctx),
			)
			writeRateLimitExceeded(w, result)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.Result) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.ExceededResponse{
		Error:          "rate_limit_exceeded",
		Message:        "You have exceeded your request quota for this operation.",
		QuotaLimit:     result.Limit,
		QuotaRemaining: result.Remaining,
		QuotaReset:     result.ResetAt,
		RetryAfter:     result.RetryAfter,
	})
}
