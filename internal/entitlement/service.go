package entitlement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"lookout/internal/constants"
	"lookout/internal/logger"
	"lookout/pkg/metrics"
	"lookout/pkg/tracing"
)

type Service struct {
	repo    Repository
	timeout time.Duration
	logger  logger.Logger
}

func NewService(repo Repository, timeout time.Duration, log logger.Logger) *Service {
	if timeout <= 0 {
		timeout = constants.DefaultEntitlementTimeout
	}
	return &Service{repo: repo, timeout: timeout, logger: log}
}

// IsModuleEnabled resolves the entitlement: override first, then the plan, then disabled.
func (s *Service) IsModuleEnabled(ctx context.Context, organizationID int64, module string) (bool, error) {
	res, err := s.Resolve(ctx, organizationID, module)
	if err != nil {
		return false, err
	}
	return res.Enabled, nil
}

func (s *Service) Resolve(ctx context.Context, organizationID int64, module string) (Resolution, error) {
	ctx, span := tracing.GetTracer("entitlement").Start(ctx, "entitlement.resolve")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("organization_id", organizationID),
		attribute.String("module", module),
	)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.repo.Resolve(ctx, organizationID, normalizeModule(module))
	if err != nil {
		span.RecordError(err)
		return Resolution{}, fmt.Errorf("entitlement lookup for organization %d module %q: %w", organizationID, module, err)
	}
	return res, nil
}

// Check never returns an error: an unavailable store yields a disabled decision.
func (s *Service) Check(ctx context.Context, organizationID int64, module string) Decision {
	enabled, err := s.IsModuleEnabled(ctx, organizationID, module)
	if err != nil {
		metrics.IncEntitlementCheck(module, string(ReasonStoreUnavailable))
		metrics.IncFallbackUsage("entitlement", "deny_on_error", "store_unavailable")
		s.logger.WarnwCtx(ctx, "Entitlement store unavailable, rejecting event",
			"organization_id", organizationID,
			"module", module,
			"error", err,
		)
		return Decision{Enabled: false, Reason: ReasonStoreUnavailable}
	}

	if !enabled {
		metrics.IncEntitlementCheck(module, string(ReasonDisabled))
		return Decision{Enabled: false, Reason: ReasonDisabled}
	}

	metrics.IncEntitlementCheck(module, string(ReasonEnabled))
	return Decision{Enabled: true, Reason: ReasonEnabled}
}

func (s *Service) SetOverride(ctx context.Context, organizationID int64, module string, enabled bool) error {
	return s.repo.SetOverride(ctx, organizationID, normalizeModule(module), enabled)
}

func (s *Service) ClearOverride(ctx context.Context, organizationID int64, module string) (bool, error) {
	return s.repo.DeleteOverride(ctx, organizationID, normalizeModule(module))
}

func normalizeModule(module string) string {
	return strings.ToLower(strings.TrimSpace(module))
}
