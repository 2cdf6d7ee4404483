package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recorder(log *[]string, name string, fail bool) Step {
	return NewStep(name,
		func(context.Context) error {
			*log = append(*log, "do:"+name)
			if fail {
				return errors.New(name + " failed")
			}
			return nil
		},
		func(context.Context) error {
			*log = append(*log, "undo:"+name)
			return nil
		},
	)
}

func TestOrchestrator_RunsAllSteps(t *testing.T) {
	var log []string
	err := NewOrchestrator("test", recorder(&log, "a", false), recorder(&log, "b", false)).Start(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"do:a", "do:b"}, log)
}

func TestOrchestrator_CompensatesInReverseOrder(t *testing.T) {
	var log []string
	err := NewOrchestrator("test",
		recorder(&log, "a", false),
		recorder(&log, "b", false),
		recorder(&log, "c", true),
	).Start(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "c:")
	assert.Equal(t, []string{"do:a", "do:b", "do:c", "undo:b", "undo:a"}, log)
}

func TestOrchestrator_CompensatesAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var compensatedWithLiveCtx bool

	first := NewStep("first",
		func(context.Context) error { return nil },
		func(ctx context.Context) error {
			compensatedWithLiveCtx = ctx.Err() == nil
			return nil
		},
	)
	second := NewStep("second", func(context.Context) error {
		cancel()
		return context.Canceled
	}, nil)

	err := NewOrchestrator("test", first, second).Start(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, compensatedWithLiveCtx)
}
