package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	domrepo "SentiTrade/internal/domain/repository"
	icache "SentiTrade/internal/service/cache"
	pkgcache "SentiTrade/pkg/cache"
	"SentiTrade/internal/service/metrics"
	"SentiTrade/internal/service/ratelimit"
	"SentiTrade/internal/usecase"
	applogger "SentiTrade/pkg/logger"
)

// SignalsHandler is the plain net/http surface for read-side signal queries.
// It fronts the generator with a cache-aside layer and per-client rate limits
// so dashboards can poll without touching the engine on every request.
type SignalsHandler struct {
	gen   *usecase.SignalGenerator
	store domrepo.SignalStore
	cache icache.BytesCache
	rl    *ratelimit.Limiter
	l     *applogger.Logger
}

func NewSignalsHandler(gen *usecase.SignalGenerator, store domrepo.SignalStore) *SignalsHandler {
	metrics.Register()
	return &SignalsHandler{gen: gen, store: store, rl: ratelimit.New()}
}

func (h *SignalsHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetLogger injects a structured logger.
func (h *SignalsHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *SignalsHandler) Latest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "latest"
		defer func() { metrics.EvaluationLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		asset := r.URL.Query().Get("asset")
		if asset == "" {
			if h.l != nil {
				h.l.Warn("signals.latest missing asset")
			}
			http.Error(w, "asset required", http.StatusBadRequest)
			return
		}
		if !h.rl.Allow(r.RemoteAddr+":latest", 5, 2) {
			if h.l != nil {
				h.l.Warn("signals.latest rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := pkgcache.GenerateKey("signal:latest", asset)
		if b, ok := h.cacheGet(endpoint, cacheKey); ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(b)
			return
		}
		sig, err := h.gen.GetLatest(r.Context(), asset)
		if err != nil {
			if errors.Is(err, usecase.ErrSignalNotFound) {
				http.Error(w, "no signal for asset", http.StatusNotFound)
				return
			}
			metrics.EvaluationErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("signals.latest error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, endpoint, cacheKey, sig, 5*time.Second)
	}
}

func (h *SignalsHandler) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "history"
		defer func() { metrics.EvaluationLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		asset := r.URL.Query().Get("asset")
		if asset == "" {
			if h.l != nil {
				h.l.Warn("signals.history missing asset")
			}
			http.Error(w, "asset required", http.StatusBadRequest)
			return
		}
		limit := parseInt(r.URL.Query().Get("limit"), 50)
		if !h.rl.Allow(r.RemoteAddr+":history", 3, 1) {
			if h.l != nil {
				h.l.Warn("signals.history rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := pkgcache.GenerateKeyWithParams("signal:history", asset, limit)
		if b, ok := h.cacheGet(endpoint, cacheKey); ok {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write(b)
			return
		}
		rows, err := h.store.History(r.Context(), asset, limit)
		if err != nil {
			metrics.EvaluationErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("signals.history error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		h.writeJSON(w, endpoint, cacheKey, rows, 30*time.Second)
	}
}

func (h *SignalsHandler) cacheGet(endpoint, key string) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	b, ok, err := h.cache.GetBytes(key)
	if err != nil {
		if h.l != nil {
			h.l.Warn("signals."+endpoint+" cache_get_error", applogger.Error(err))
		}
		return nil, false
	}
	if ok && h.l != nil {
		h.l.Debug("signals."+endpoint+" cache_hit", applogger.String("key", key))
	}
	return b, ok
}

func (h *SignalsHandler) writeJSON(w http.ResponseWriter, endpoint, cacheKey string, v interface{}, ttl time.Duration) {
	w.Header().Set("Content-Type", "application/json")
	b, err := json.Marshal(v)
	if err != nil {
		if h.l != nil {
			h.l.Error("signals."+endpoint+" marshal_error", applogger.Error(err))
		}
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	if h.cache != nil {
		if err := h.cache.SetBytes(cacheKey, b, ttl); err != nil && h.l != nil {
			h.l.Warn("signals."+endpoint+" cache_set_error", applogger.Error(err))
		}
	}
	if _, err := w.Write(b); err != nil && h.l != nil {
		h.l.Warn("signals."+endpoint+" write_error", applogger.Error(err))
	}
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
