package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/vinayprograms/agentcore/tasks"
)

// Kinds of the built-in strategies.
const (
	KindEcho  = "echo"
	KindSleep = "sleep"
)

// Echo returns a strategy that echoes the task payload back as its
// result. Useful for wiring checks and round-trip tests.
func Echo() Strategy {
	return StrategyFunc(func(ctx context.Context, t *tasks.Task) (map[string]any, error) {
		result := make(map[string]any, len(t.Payload))
		for k, v := range t.Payload {
			result[k] = v
		}
		return result, nil
	})
}

// Sleep returns a strategy that sleeps for the duration given in the
// payload's "duration_ms" field, then reports how long it slept. It
// honors context cancellation, so a pool stop with an expired grace
// period interrupts it.
func Sleep() Strategy {
	return StrategyFunc(func(ctx context.Context, t *tasks.Task) (map[string]any, error) {
		ms, err := durationMS(t.Payload)
		if err != nil {
			return nil, err
		}

		d := time.Duration(ms) * time.Millisecond
		select {
		case <-time.After(d):
			return map[string]any{"slept_ms": ms}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
}

// RegisterBuiltins registers the built-in strategies on a registry.
func RegisterBuiltins(r *Registry) {
	r.Register(KindEcho, Echo())
	r.Register(KindSleep, Sleep())
}

// durationMS reads the sleep duration from a payload.
func durationMS(payload map[string]any) (int, error) {
	raw, ok := payload["duration_ms"]
	if !ok {
		return 0, fmt.Errorf("payload missing duration_ms")
	}
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("duration_ms has unsupported type %T", raw)
	}
}
