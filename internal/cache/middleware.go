package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/woeplanet/woeplanet-www-spelunker/internal/metrics"
)

// responses is the consumer interface the middleware needs from the store.
type responses interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// cachedResponse is the serialized form of a captured response.
type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

// recorder captures a handler's response so it can be both replayed to the
// client and written through to the cache.
type recorder struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (r *recorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *recorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b) //nolint:wrapcheck // delegating to underlying ResponseWriter
}

// Middleware serves successful GET responses from the cache, keyed by path
// and query string. Cache errors are logged and the request proceeds
// uncached; only 200s are written through.
func Middleware(store responses, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if store == nil || r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}

			key := "response:" + r.URL.Path
			if r.URL.RawQuery != "" {
				key += "?" + r.URL.RawQuery
			}

			if data, err := store.Get(r.Context(), key); err == nil {
				var cached cachedResponse
				if err := json.Unmarshal(data, &cached); err == nil {
					metrics.ResponseCacheTotal.WithLabelValues("hit").Inc()
					if cached.ContentType != "" {
						w.Header().Set("Content-Type", cached.ContentType)
					}
					w.Header().Set("X-Cache", "hit")
					w.WriteHeader(cached.Status)
					w.Write(cached.Body) //nolint:errcheck // client gone is not our problem
					return
				}
				logger.Warn("undecodable cache entry", zap.String("key", key))
			} else if !errors.Is(err, ErrMiss) {
				logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
			}

			metrics.ResponseCacheTotal.WithLabelValues("miss").Inc()
			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status != http.StatusOK {
				return
			}
			data, err := json.Marshal(cachedResponse{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			})
			if err != nil {
				return
			}
			if err := store.Set(r.Context(), key, data); err != nil {
				logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
			}
		})
	}
}
