package engine

import (
	"sync"
	"time"

	"SentiTrade/internal/domain/models"
)

// SeriesWindow keeps a bounded, aligned rolling window of price and sentiment
// points for one asset. Price ticks arrive faster than sentiment samples, so
// alignment is sample-and-hold: each sentiment sample is paired with the most
// recent price to form one aligned point.
type SeriesWindow struct {
	mu       sync.RWMutex
	capacity int

	lastPrice   float64
	lastPriceAt time.Time
	havePrice   bool

	prices    []models.PricePoint
	sentiment []models.SentimentPoint
}

func NewSeriesWindow(capacity int) *SeriesWindow {
	if capacity <= 0 {
		capacity = 50
	}
	return &SeriesWindow{capacity: capacity}
}

// ObservePrice records the latest price tick.
func (w *SeriesWindow) ObservePrice(at time.Time, price float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastPrice = price
	w.lastPriceAt = at
	w.havePrice = true
}

// ObserveSentiment records a sentiment sample and, if a price has been seen,
// appends one aligned point to the window.
func (w *SeriesWindow) ObserveSentiment(at time.Time, score float64, trustedSources int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.havePrice {
		return
	}
	w.prices = append(w.prices, models.PricePoint{Timestamp: at, Value: w.lastPrice})
	w.sentiment = append(w.sentiment, models.SentimentPoint{Timestamp: at, Score: score, TrustedSources: trustedSources})
	if len(w.prices) > w.capacity {
		w.prices = w.prices[len(w.prices)-w.capacity:]
		w.sentiment = w.sentiment[len(w.sentiment)-w.capacity:]
	}
}

// Snapshot returns copies of the aligned series.
func (w *SeriesWindow) Snapshot() ([]models.PricePoint, []models.SentimentPoint) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	p := make([]models.PricePoint, len(w.prices))
	s := make([]models.SentimentPoint, len(w.sentiment))
	copy(p, w.prices)
	copy(s, w.sentiment)
	return p, s
}

// Len returns the number of aligned points.
func (w *SeriesWindow) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.prices)
}

// LastUpdate returns the newest timestamp seen on either input.
func (w *SeriesWindow) LastUpdate() time.Time {
	w.mu.RLock()
	defer w.mu.RUnlock()
	last := w.lastPriceAt
	if n := len(w.sentiment); n > 0 && w.sentiment[n-1].Timestamp.After(last) {
		last = w.sentiment[n-1].Timestamp
	}
	return last
}

// LastPrice returns the most recent price tick, if any.
func (w *SeriesWindow) LastPrice() (float64, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lastPrice, w.havePrice
}

// LastSentiment returns the most recent aligned sentiment point, if any.
func (w *SeriesWindow) LastSentiment() (models.SentimentPoint, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if len(w.sentiment) == 0 {
		return models.SentimentPoint{}, false
	}
	return w.sentiment[len(w.sentiment)-1], true
}
