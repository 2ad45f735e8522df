package processor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tphakala/facewatch/internal/errors"
	"github.com/tphakala/facewatch/internal/logger"
)

// CompositeAction executes actions in sequence, each under its own timeout.
type CompositeAction struct {
	Actions     []Action
	Description string
	Timeout     time.Duration // per action, zero means CompositeActionTimeout

	// ContinueOnError runs the remaining actions after a failure and returns
	// the joined errors. Otherwise execution stops at the first failure.
	ContinueOnError bool

	// OnActionError is called for every failed action.
	OnActionError func(action Action, err error)

	mu sync.Mutex
}

// GetDescription returns a human-readable description of the CompositeAction
func (a *CompositeAction) GetDescription() string {
	if a.Description != "" {
		return a.Description
	}
	return "Composite action (sequential execution)"
}

// Execute runs all actions in order.
func (a *CompositeAction) Execute(ctx context.Context, data any) error {
	if a == nil {
		return nil
	}

	a.mu.Lock()
	actions := make([]Action, 0, len(a.Actions))
	for _, action := range a.Actions {
		if action != nil {
			actions = append(actions, action)
		}
	}
	a.mu.Unlock()

	var errs []error
	for i, action := range actions {
		err := a.executeActionWithRecovery(ctx, action, data, i+1, len(actions))
		if err == nil {
			continue
		}
		GetLogger().Warn("action failed",
			logger.String("action", action.GetDescription()),
			logger.Int("step", i+1),
			logger.Int("total_steps", len(actions)),
			logger.Error(err))
		if a.OnActionError != nil {
			a.OnActionError(action, err)
		}
		if !a.ContinueOnError {
			return err
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

type actionResult struct {
	err error
}

// executeActionWithRecovery runs one action in its own goroutine so that a
// timeout returns control even when the action ignores its context.
func (a *CompositeAction) executeActionWithRecovery(parentCtx context.Context, action Action, data any, step, total int) error {
	timeout := a.Timeout
	if timeout <= 0 {
		timeout = CompositeActionTimeout
	}
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()

	resultChan := make(chan actionResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultChan <- actionResult{err: errors.Newf("action panicked: %v", r).
					Component("processor").
					Category(errors.CategoryProcessing).
					Context("action_type", fmt.Sprintf("%T", action)).
					Context("action_description", action.GetDescription()).
					Context("step", step).
					Context("total_steps", total).
					Build()}
			}
		}()
		resultChan <- actionResult{err: action.Execute(ctx, data)}
	}()

	select {
	case res := <-resultChan:
		return res.err
	case <-ctx.Done():
		if parentCtx.Err() != nil {
			return parentCtx.Err()
		}
		return errors.Newf("action timed out after %v", timeout).
			Component("processor").
			Category(errors.CategoryTimeout).
			Context("action_type", fmt.Sprintf("%T", action)).
			Context("action_description", action.GetDescription()).
			Context("step", step).
			Context("total_steps", total).
			Build()
	}
}
