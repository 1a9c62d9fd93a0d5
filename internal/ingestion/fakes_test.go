package ingestion

import (
	"context"
	"errors"
	"sync"
	"time"

	"lookout/internal/entitlement"
	"lookout/pkg/models"
)

type fakeEdges map[string]*EdgeServer

func (f fakeEdges) FindByKey(_ context.Context, edgeKey string) (*EdgeServer, error) {
	if edge, ok := f[edgeKey]; ok {
		return edge, nil
	}
	return nil, ErrEdgeNotFound
}

type fakeChecker struct {
	mu       sync.Mutex
	decision entitlement.Decision
	calls    []string
}

func (f *fakeChecker) Check(_ context.Context, _ int64, module string) entitlement.Decision {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, module)
	return f.decision
}

func allow() *fakeChecker {
	return &fakeChecker{decision: entitlement.Decision{Enabled: true, Reason: entitlement.ReasonEnabled}}
}

func deny(reason entitlement.Reason) *fakeChecker {
	return &fakeChecker{decision: entitlement.Decision{Enabled: false, Reason: reason}}
}

type memoryEvents struct {
	mu     sync.Mutex
	events []*Event
	err    error
}

func (m *memoryEvents) Insert(_ context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

type recordingHandoff struct {
	mu     sync.Mutex
	events []models.EventMessage
	err    error
}

func (r *recordingHandoff) Handoff(_ context.Context, event models.EventMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.events = append(r.events, event)
	return nil
}

var errDBDown = errors.New("connection refused")

const (
	testEdgeKey    = "edge-7-key"
	testEdgeSecret = "s3cret"
)

func testEdge() *EdgeServer {
	return &EdgeServer{ID: 7, OrganizationID: 42, Name: "edge-7", EdgeKey: testEdgeKey, EdgeSecret: testEdgeSecret, IsActive: true}
}

func strPtr(s string) *string { return &s }

// stallingHandoff holds every call for delay regardless of ctx, like a broker
// client stuck in its own write retries.
type stallingHandoff struct {
	delay   time.Duration
	sawDone chan struct{}
}

func (s *stallingHandoff) Handoff(ctx context.Context, _ models.EventMessage) error {
	go func() {
		<-ctx.Done()
		close(s.sawDone)
	}()
	time.Sleep(s.delay)
	return nil
}
