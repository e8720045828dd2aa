package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesWindowSampleAndHold(t *testing.T) {
	w := NewSeriesWindow(10)
	base := time.Now()

	// Sentiment before any price is dropped.
	w.ObserveSentiment(base, 60, 2)
	assert.Equal(t, 0, w.Len())

	w.ObservePrice(base.Add(time.Second), 100)
	w.ObserveSentiment(base.Add(2*time.Second), 62, 3)
	w.ObserveSentiment(base.Add(3*time.Second), 65, 3)

	prices, sentiment := w.Snapshot()
	require.Len(t, prices, 2)
	require.Len(t, sentiment, 2)
	// Both aligned points carry the held price.
	assert.Equal(t, 100.0, prices[0].Value)
	assert.Equal(t, 100.0, prices[1].Value)
	assert.Equal(t, 62.0, sentiment[0].Score)
	assert.Equal(t, 65.0, sentiment[1].Score)

	// New tick updates the held price for subsequent samples only.
	w.ObservePrice(base.Add(4*time.Second), 97)
	w.ObserveSentiment(base.Add(5*time.Second), 70, 4)
	prices, _ = w.Snapshot()
	require.Len(t, prices, 3)
	assert.Equal(t, 100.0, prices[1].Value)
	assert.Equal(t, 97.0, prices[2].Value)
}

func TestSeriesWindowCapacityEviction(t *testing.T) {
	w := NewSeriesWindow(3)
	base := time.Now()
	w.ObservePrice(base, 100)
	for i := 0; i < 5; i++ {
		w.ObserveSentiment(base.Add(time.Duration(i)*time.Second), float64(50+i), 1)
	}
	_, sentiment := w.Snapshot()
	require.Len(t, sentiment, 3)
	assert.Equal(t, 52.0, sentiment[0].Score)
	assert.Equal(t, 54.0, sentiment[2].Score)
}

func TestSeriesWindowLastUpdate(t *testing.T) {
	w := NewSeriesWindow(10)
	base := time.Now()

	_, ok := w.LastPrice()
	assert.False(t, ok)

	w.ObservePrice(base, 100)
	assert.Equal(t, base, w.LastUpdate())

	w.ObserveSentiment(base.Add(time.Minute), 55, 1)
	assert.Equal(t, base.Add(time.Minute), w.LastUpdate())

	last, ok := w.LastSentiment()
	require.True(t, ok)
	assert.Equal(t, 55.0, last.Score)

	price, ok := w.LastPrice()
	require.True(t, ok)
	assert.Equal(t, 100.0, price)
}
