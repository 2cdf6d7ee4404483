// Package coordinator runs short local sagas: ordered steps where every
// completed step is compensated, newest first, when a later one fails.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
)

// Step represents a single unit of work in the Saga.
// Each step must have a compensating action to undo its effects.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Orchestrator manages the execution of a collection of Steps.
type Orchestrator struct {
	name  string
	steps []Step
}

func NewOrchestrator(name string, steps ...Step) *Orchestrator {
	return &Orchestrator{name: name, steps: steps}
}

// Start runs the saga steps sequentially.
// If a step fails, it triggers the compensation of all previously successful
// steps and returns the step's error.
func (o *Orchestrator) Start(ctx context.Context) error {
	var successfulSteps []Step

	for _, step := range o.steps {
		if err := step.Execute(ctx); err != nil {
			slog.WarnContext(ctx, "saga step failed, rolling back",
				"saga", o.name,
				"step", step.Name(),
				"completed", len(successfulSteps),
				"error", err,
			)
			o.rollback(ctx, successfulSteps, err)
			return fmt.Errorf("%s: %w", step.Name(), err)
		}
		successfulSteps = append(successfulSteps, step)
	}
	return nil
}

// rollback compensates in LIFO order. It ignores ctx cancellation so a
// cancelled request still undoes what it already did.
func (o *Orchestrator) rollback(ctx context.Context, steps []Step, cause error) {
	ctx = context.WithoutCancel(ctx)
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		if err := step.Compensate(ctx); err != nil {
			slog.ErrorContext(ctx, "CRITICAL: failed to compensate saga step",
				"saga", o.name,
				"step", step.Name(),
				"cause", cause,
				"error", err,
			)
		}
	}
}

type funcStep struct {
	name       string
	execute    func(context.Context) error
	compensate func(context.Context) error
}

// NewStep builds a Step from closures. compensate may be nil for a step that
// has nothing to undo, typically the last one.
func NewStep(name string, execute, compensate func(context.Context) error) Step {
	return &funcStep{name: name, execute: execute, compensate: compensate}
}

func (s *funcStep) Name() string { return s.name }

func (s *funcStep) Execute(ctx context.Context) error { return s.execute(ctx) }

func (s *funcStep) Compensate(ctx context.Context) error {
	if s.compensate == nil {
		return nil
	}
	return s.compensate(ctx)
}
