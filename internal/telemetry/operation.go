// Package telemetry reports multi-step operations as OpenTelemetry spans.
//
// An operation opens a root span carrying its step plan as a JSON attribute
// and emits one child span per executed step. Span processors (the CLI
// progress output is one) reconstruct the plan from the root span and track
// step state from the child spans' lifecycle and status.
package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	PlanEventName  = "dockmon.plan"
	PlanVersion    = "1"
	PlanVersionKey = "dockmon.plan.version"
	PlanJSONKey    = "dockmon.plan.json"

	defaultOperationName = "operation"
)

// PlannedStep announces one step before any step runs. Children reference
// their parent by ID; IDs may also encode nesting as "parent/child".
type PlannedStep struct {
	ID       string `json:"id"`
	ParentID string `json:"parent_id,omitempty"`
	Title    string `json:"title"`
}

// Plan is the ordered list of steps an operation intends to run.
type Plan struct {
	Steps []PlannedStep `json:"steps"`
}

// Operation is a running root span with its announced plan.
type Operation struct {
	ctx    context.Context
	tracer trace.Tracer
	span   trace.Span
}

// EmitPlan validates the plan, opens the operation's root span, and attaches
// the plan to it as both span attributes and a span event.
func EmitPlan(ctx context.Context, tracer trace.Tracer, operation string, plan Plan) (*Operation, error) {
	if tracer == nil {
		return nil, fmt.Errorf("emit telemetry plan: tracer is required")
	}
	if err := validatePlan(plan); err != nil {
		return nil, fmt.Errorf("emit telemetry plan: %w", err)
	}

	operation = strings.TrimSpace(operation)
	if operation == "" {
		operation = defaultOperationName
	}

	planJSON, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("emit telemetry plan: marshal plan: %w", err)
	}

	attrs := planAttributes(string(planJSON))
	spanCtx, span := tracer.Start(ctx, operation, trace.WithAttributes(attrs...))
	span.AddEvent(PlanEventName, trace.WithAttributes(attrs...))

	return &Operation{ctx: spanCtx, tracer: tracer, span: span}, nil
}

// Context returns the context carrying the root span.
func (o *Operation) Context() context.Context {
	if o == nil {
		return context.Background()
	}
	return o.ctx
}

// RunStep runs fn inside a child span named after the step id. A step error
// is recorded on the span, sets its status to Error, and is returned as-is.
func (o *Operation) RunStep(ctx context.Context, id string, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}

	stepID := strings.TrimSpace(id)
	if stepID == "" {
		return fmt.Errorf("run telemetry step: step id is required")
	}
	if o == nil || o.tracer == nil {
		return fn(ctx)
	}

	if ctx == nil {
		ctx = o.ctx
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stepCtx, span := o.tracer.Start(ctx, stepID)
	defer span.End()

	err := fn(stepCtx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
		return err
	}
	return nil
}

// End closes the root span, recording err when non-nil.
func (o *Operation) End(err error) {
	if o == nil || o.span == nil {
		return
	}
	if err != nil {
		o.span.RecordError(err)
		o.span.SetStatus(codes.Error, strings.TrimSpace(err.Error()))
	}
	o.span.End()
}

func planAttributes(planJSON string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PlanVersionKey, PlanVersion),
		attribute.String(PlanJSONKey, planJSON),
	}
}

func validatePlan(plan Plan) error {
	indexByID := make(map[string]struct{}, len(plan.Steps))
	for i, step := range plan.Steps {
		stepID := strings.TrimSpace(step.ID)
		if stepID == "" {
			return fmt.Errorf("step %d has empty id", i)
		}
		if _, exists := indexByID[stepID]; exists {
			return fmt.Errorf("duplicate step id %q", stepID)
		}
		indexByID[stepID] = struct{}{}
	}
	for i, step := range plan.Steps {
		parentID := strings.TrimSpace(step.ParentID)
		if parentID == "" {
			continue
		}
		if _, exists := indexByID[parentID]; !exists {
			return fmt.Errorf("step %d parent %q not found in plan", i, parentID)
		}
	}
	return nil
}
