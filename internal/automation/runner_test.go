package automation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/logger"
	"lookout/pkg/models"
)

type recordingProcessor struct {
	mu      sync.Mutex
	events  []string
	block   chan struct{}
	panicOn string
}

func (p *recordingProcessor) Process(_ context.Context, event models.EventMessage) (Summary, error) {
	if p.block != nil {
		<-p.block
	}
	if event.ID == p.panicOn {
		panic("boom")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event.ID)
	return Summary{}, nil
}

func (p *recordingProcessor) processed() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func TestRunner_ProcessesHandedOffEvents(t *testing.T) {
	processor := &recordingProcessor{panicOn: "evt-panic"}
	runner := NewRunner(processor, 2, 10, logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.NoError(t, runner.Handoff(context.Background(), testEvent("evt-panic", nil)))
	require.NoError(t, runner.Handoff(context.Background(), testEvent("evt-1", nil)))
	require.NoError(t, runner.Handoff(context.Background(), testEvent("evt-2", nil)))

	assert.Eventually(t, func() bool {
		return len(processor.processed()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.ErrorIs(t, runner.Handoff(context.Background(), testEvent("evt-3", nil)), ErrRunnerStopped)
}

func TestRunner_QueueFullDropsEvent(t *testing.T) {
	processor := &recordingProcessor{}
	runner := NewRunner(processor, 1, 1, logger.NopLogger())

	require.NoError(t, runner.Handoff(context.Background(), testEvent("evt-1", nil)))
	assert.ErrorIs(t, runner.Handoff(context.Background(), testEvent("evt-2", nil)), ErrQueueFull)
}

func TestRunner_DrainsQueueOnShutdown(t *testing.T) {
	processor := &recordingProcessor{block: make(chan struct{})}
	runner := NewRunner(processor, 1, 5, logger.NopLogger())

	for _, id := range []string{"evt-1", "evt-2", "evt-3"} {
		require.NoError(t, runner.Handoff(context.Background(), testEvent(id, nil)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	cancel()
	close(processor.block)

	require.NoError(t, <-done)
	assert.ElementsMatch(t, []string{"evt-1", "evt-2", "evt-3"}, processor.processed())
}

func TestRunner_AcceptedEventsSurviveConcurrentShutdown(t *testing.T) {
	processor := &recordingProcessor{}
	runner := NewRunner(processor, 2, 4096, logger.NopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	var (
		mu       sync.Mutex
		accepted []string
		wg       sync.WaitGroup
	)
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(producer int) {
			defer wg.Done()
			for i := 0; i < 400; i++ {
				id := fmt.Sprintf("evt-%d-%d", producer, i)
				err := runner.Handoff(context.Background(), testEvent(id, nil))
				if errors.Is(err, ErrRunnerStopped) {
					return
				}
				if err == nil {
					mu.Lock()
					accepted = append(accepted, id)
					mu.Unlock()
				}
			}
		}(p)
	}

	time.Sleep(2 * time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	wg.Wait()

	assert.ElementsMatch(t, accepted, processor.processed())
	assert.ErrorIs(t, runner.Handoff(context.Background(), testEvent("late", nil)), ErrRunnerStopped)
}
