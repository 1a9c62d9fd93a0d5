package ingestion

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"lookout/internal/constants"
	"lookout/internal/entitlement"
	"lookout/internal/logger"
	apperrors "lookout/pkg/errors"
	"lookout/pkg/logging"
	"lookout/pkg/metrics"
	"lookout/pkg/tracing"
)

// Checker is the fail-closed entitlement gate.
type Checker interface {
	Check(ctx context.Context, organizationID int64, module string) entitlement.Decision
}

type Service struct {
	checker        Checker
	events         EventRepository
	handoff        Handoff
	handoffTimeout time.Duration
	mode           string
	logger         logger.Logger
	now            func() time.Time
	newID          func() string
}

// NewService builds the ingestor. handoff may be nil when automation is disabled.
func NewService(checker Checker, events EventRepository, handoff Handoff, mode string, log logger.Logger) *Service {
	return &Service{
		checker:        checker,
		events:         events,
		handoff:        handoff,
		handoffTimeout: constants.DefaultHandoffTimeout,
		mode:           mode,
		logger:         log,
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
	}
}

// WithHandoffTimeout caps how long Ingest waits for the hand-off before responding.
// Non-positive values keep the default.
func (s *Service) WithHandoffTimeout(timeout time.Duration) *Service {
	if timeout > 0 {
		s.handoffTimeout = timeout
	}
	return s
}

// Ingest validates env, gates it on the organization's module entitlement and persists it.
// A disabled module is reported in the Result, not as an error.
func (s *Service) Ingest(ctx context.Context, edge EdgeIdentity, env Envelope) (Result, error) {
	start := time.Now()
	env.EventType = strings.TrimSpace(env.EventType)
	ctx = logging.WithOrganizationID(ctx, strconv.FormatInt(edge.OrganizationID, 10))
	ctx = logging.WithEdgeServerID(ctx, strconv.FormatInt(edge.EdgeServerID, 10))

	ctx, span := tracing.GetTracer("ingestion").Start(ctx, "ingestion.ingest")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("organization_id", edge.OrganizationID),
		attribute.Int64("edge_server_id", edge.EdgeServerID),
		attribute.String("event_type", env.EventType),
	)

	occurredAt, err := Validate(env)
	if err != nil {
		metrics.ObserveIngest(time.Since(start), "invalid")
		return Result{}, err
	}

	module := ModuleOf(env)
	if module != "" {
		decision := s.checker.Check(ctx, edge.OrganizationID, module)
		if !decision.Enabled {
			if decision.Reason == entitlement.ReasonDisabled {
				s.logger.InfowCtx(ctx, "Event rejected, module disabled",
					"module", module,
					"event_type", env.EventType,
				)
			}
			metrics.ObserveIngest(time.Since(start), ReasonModuleDisabled)
			return Result{Accepted: false, Reason: ReasonModuleDisabled}, nil
		}
	}

	meta := make(map[string]interface{}, len(env.Meta)+1)
	for k, v := range env.Meta {
		meta[k] = v
	}
	if env.CameraID != nil && *env.CameraID != "" {
		meta[MetaCameraID] = *env.CameraID
	}

	event := &Event{
		ID:             s.newID(),
		OrganizationID: edge.OrganizationID,
		EdgeServerID:   edge.EdgeServerID,
		Module:         module,
		EventType:      env.EventType,
		Severity:       env.Severity,
		OccurredAt:     occurredAt,
		Meta:           meta,
		CreatedAt:      s.now().UTC(),
	}

	if err := s.events.Insert(ctx, event); err != nil {
		span.RecordError(err)
		s.logger.ErrorwCtx(ctx, "Failed to persist event", "event_type", env.EventType, "error", err)
		metrics.ObserveIngest(time.Since(start), "error")
		return Result{}, apperrors.ErrInternal.WithCause(err)
	}

	ctx = logging.WithEventID(ctx, event.ID)
	span.SetAttributes(attribute.String("event_id", event.ID))
	s.handOff(ctx, event)

	metrics.ObserveIngest(time.Since(start), "accepted")
	return Result{Accepted: true, EventID: event.ID}, nil
}

// handOff never holds the response longer than handoffTimeout. The stored event
// outlives the request, so the hand-off is detached from its cancellation.
func (s *Service) handOff(ctx context.Context, event *Event) {
	if s.handoff == nil {
		return
	}

	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.handoffTimeout)
	done := make(chan error, 1)
	go func() {
		defer cancel()
		done <- s.handoff.Handoff(hctx, event.Message())
	}()

	var err error
	select {
	case err = <-done:
	case <-hctx.Done():
		select {
		case err = <-done:
		default:
			err = fmt.Errorf("hand-off of event %s timed out after %s: %w", event.ID, s.handoffTimeout, hctx.Err())
		}
	}

	if err != nil {
		metrics.IncAutomationHandoff(s.mode, "error")
		s.logger.WarnwCtx(ctx, "Event not handed off to automation", "mode", s.mode, "error", err)
		return
	}
	metrics.IncAutomationHandoff(s.mode, "ok")
}
