package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"lookout/internal/automation"
	"lookout/internal/constants"
	"lookout/internal/logger"
	apperrors "lookout/pkg/errors"
	"lookout/pkg/metrics"
	"lookout/pkg/models"
	"lookout/pkg/tracing"
)

// Executor performs one action type. It returns the payload actually sent.
type Executor interface {
	Execute(ctx context.Context, rule automation.Rule, event models.EventMessage, command interface{}) (json.RawMessage, error)
}

type Dispatcher struct {
	executors map[automation.ActionType]Executor
	timeout   time.Duration
	logger    logger.Logger
}

func NewDispatcher(timeout time.Duration, log logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = constants.DefaultActionTimeout
	}
	return &Dispatcher{
		executors: make(map[automation.ActionType]Executor),
		timeout:   timeout,
		logger:    log,
	}
}

func (d *Dispatcher) Register(actionType automation.ActionType, executor Executor) *Dispatcher {
	d.executors[actionType] = executor
	return d
}

type executeResult struct {
	executed json.RawMessage
	err      error
}

// Dispatch runs the rule's action once, bounded by the dispatcher timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, rule automation.Rule, event models.EventMessage) automation.Outcome {
	ctx, span := tracing.GetTracer("automation").Start(ctx, "automation.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("rule_id", rule.ID),
		attribute.String("action_type", string(rule.ActionType)),
	)

	start := time.Now()
	outcome := d.dispatch(ctx, rule, event)
	outcome.Duration = time.Since(start)

	if outcome.Status != automation.StatusSucceeded {
		span.SetAttributes(attribute.String("error", outcome.ErrorDetail))
	}
	metrics.ObserveActionDispatch(string(rule.ActionType), string(outcome.Status), outcome.Duration)
	return outcome
}

func (d *Dispatcher) dispatch(ctx context.Context, rule automation.Rule, event models.EventMessage) automation.Outcome {
	executor, ok := d.executors[rule.ActionType]
	if !ok {
		return failed(rule.ActionCommand, fmt.Errorf("unsupported action type: %s", rule.ActionType))
	}

	command, err := DecodeCommand(rule.ActionType, rule.ActionCommand)
	if err != nil {
		return failed(rule.ActionCommand, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan executeResult, 1)
	go func() {
		var res executeResult
		defer func() {
			if r := recover(); r != nil {
				res.err = apperrors.RecoverPanic(r)
				d.logger.ErrorwCtx(ctx, "Action executor panicked",
					"rule_id", rule.ID,
					"action_type", rule.ActionType,
					"error", res.err,
				)
			}
			done <- res
		}()
		res.executed, res.err = executor.Execute(ctx, rule, event, command)
	}()

	select {
	case res := <-done:
		executed := res.executed
		if len(executed) == 0 {
			executed = rule.ActionCommand
		}
		if res.err != nil {
			return failed(executed, res.err)
		}
		return automation.Outcome{Status: automation.StatusSucceeded, Executed: executed}
	case <-ctx.Done():
		return failed(rule.ActionCommand, fmt.Errorf("action timed out after %s: %w", d.timeout, ctx.Err()))
	}
}

func failed(executed json.RawMessage, err error) automation.Outcome {
	detail := err.Error()
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Cause != nil {
		detail = appErr.Cause.Error()
	}
	return automation.Outcome{Status: automation.StatusFailed, ErrorDetail: detail, Executed: executed}
}
