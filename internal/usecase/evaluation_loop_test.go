package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SentiTrade/internal/domain/models"
)

func TestEvaluationLoopEmitsSignalOnTick(t *testing.T) {
	g := newTestGenerator(testConfig())
	seedDivergence(g, "BTC", time.Now())

	loop := NewEvaluationLoop(g, nil, []string{"BTC"}, 10*time.Millisecond)
	loop.Start(context.Background())
	defer loop.Stop()

	// The loop, not an API call, drives the state machine to ACTIVE.
	assert.Eventually(t, func() bool {
		s, err := g.GetLatest(context.Background(), "BTC")
		return err == nil && s.Status == models.StatusActive
	}, time.Second, 5*time.Millisecond)
}

func TestEvaluationLoopStopHalts(t *testing.T) {
	g := newTestGenerator(testConfig())
	loop := NewEvaluationLoop(g, nil, []string{"BTC"}, 5*time.Millisecond)
	loop.Start(context.Background())

	finished := make(chan struct{})
	go func() {
		loop.Stop()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(time.Second):
		require.Fail(t, "loop did not stop")
	}
}
