package cel

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
)

// Variables exposed to condition expressions.
const (
	VarEvent = "event"
	VarMeta  = "meta"
)

type Evaluator struct {
	env *cel.Env
}

func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable(VarEvent, cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable(VarMeta, cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Evaluator{env: env}, nil
}

// ValidateConditionExpression checks that expression compiles and yields a bool.
func (e *Evaluator) ValidateConditionExpression(expression string) error {
	ast, err := e.compile(expression)
	if err != nil {
		return err
	}
	if ast.OutputType() != cel.BoolType && ast.OutputType() != cel.DynType {
		return fmt.Errorf("condition expression must return bool, got %v", ast.OutputType())
	}
	return nil
}

// EvaluateCondition runs expression against an event's core fields and meta.
// Runtime errors come from the event data (a missing key, a string where a number
// was expected) and are reported as (false, nil): such an event does not match.
// Only compile failures, cancellation and non-bool results are errors.
func (e *Evaluator) EvaluateCondition(ctx context.Context, expression string, event, meta map[string]interface{}) (bool, error) {
	program, err := e.CompileExpression(expression)
	if err != nil {
		return false, err
	}

	if meta == nil {
		meta = map[string]interface{}{}
	}

	result, _, err := program.ContextEval(ctx, map[string]interface{}{
		VarEvent: event,
		VarMeta:  meta,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, fmt.Errorf("failed to evaluate CEL expression: %w", ctxErr)
		}
		return false, nil
	}

	boolVal, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("CEL expression did not return bool, got %T", result.Value())
	}

	return boolVal, nil
}

func (e *Evaluator) CompileExpression(expression string) (cel.Program, error) {
	ast, err := e.compile(expression)
	if err != nil {
		return nil, err
	}

	program, err := e.env.Program(ast, cel.InterruptCheckFrequency(100))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return program, nil
}

func (e *Evaluator) compile(expression string) (*cel.Ast, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("CEL expression validation failed: %w", issues.Err())
	}
	return ast, nil
}
