package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/llms"
	"github.com/CuriosityOS/advanced-whatsapp-llm/pkg/observability"
)

// DefaultToolTimeout bounds a single tool invocation.
const DefaultToolTimeout = 30 * time.Second

// Executor runs batches of model-requested tool calls concurrently.
type Executor struct {
	registry *Registry
	timeout  time.Duration
	logger   *slog.Logger
}

func NewExecutor(registry *Registry) *Executor {
	return &Executor{
		registry: registry,
		timeout:  DefaultToolTimeout,
		logger:   slog.Default().With("component", "tools"),
	}
}

// WithTimeout overrides the per-call timeout. Zero or negative keeps the
// default.
func (e *Executor) WithTimeout(d time.Duration) *Executor {
	if d > 0 {
		e.timeout = d
	}
	return e
}

// ExecuteAll runs every call in parallel and returns results in the same
// order as the input. Unknown, disabled, and rate-limited calls fail fast
// without dispatching; dispatched calls that outlive the timeout are
// reported as timed out and abandoned. The batch takes roughly as long
// as its slowest dispatched call.
func (e *Executor) ExecuteAll(ctx context.Context, calls []llms.ToolCall, caller string) []ToolResult {
	ctx, span := observability.Tracer("tools").Start(ctx, observability.SpanToolExecution,
		trace.WithAttributes(
			attribute.Int("tool.count", len(calls)),
			attribute.String(observability.AttrToolCaller, caller),
		))
	defer span.End()

	results := make([]ToolResult, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		entry, ok := e.registry.Lookup(call.Name)
		if !ok {
			results[i] = failure(call, 0, fmt.Errorf("%w: %s", ErrToolNotFound, call.Name))
			continue
		}
		if !entry.Enabled() {
			results[i] = failure(call, 0, fmt.Errorf("%w: %s", ErrToolDisabled, call.Name))
			continue
		}
		if check := e.registry.checkRateLimit(entry, call.Name, caller); !check.Allowed {
			e.logger.Warn("tool call rate limited",
				"tool", call.Name, "caller", caller,
				"current", check.Current, "limit", check.Limit,
				"retry_after", check.RetryAfter.Round(time.Second))
			results[i] = failure(call, 0, fmt.Errorf("%w: %s, retry in %s",
				ErrRateLimited, call.Name, check.RetryAfter.Round(time.Second)))
			continue
		}

		wg.Add(1)
		go func(idx int, call llms.ToolCall, entry *Entry) {
			defer wg.Done()
			results[idx] = e.dispatch(ctx, call, entry, caller)
		}(i, call, entry)
	}

	wg.Wait()
	return results
}

// dispatch runs one tool call and races it against the timeout. On
// timeout the per-call context is cancelled so context-honoring tools
// stop; a tool that ignores it is left to finish on its own and its
// result is discarded.
func (e *Executor) dispatch(ctx context.Context, call llms.ToolCall, entry *Entry, caller string) ToolResult {
	ctx, span := observability.Tracer("tools").Start(ctx, observability.SpanToolDispatch,
		trace.WithAttributes(attribute.String(observability.AttrToolName, call.Name)))
	defer span.End()

	start := time.Now()
	entry.calls.Add(1)
	e.logger.Debug("tool call started", "tool", call.Name, "caller", caller)

	type outcome struct {
		content string
		err     error
	}
	resultCh := make(chan outcome, 1)

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- outcome{err: fmt.Errorf("tool panicked: %v", r)}
			}
		}()
		content, err := entry.Tool.Execute(callCtx, call.Parameters)
		resultCh <- outcome{content: content, err: err}
	}()

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case out := <-resultCh:
		elapsed := time.Since(start)
		if out.err != nil {
			entry.errors.Add(1)
			e.logger.Warn("tool call failed",
				"tool", call.Name, "caller", caller, "elapsed", elapsed.Round(time.Millisecond), "error", out.err)
			return failure(call, elapsed, out.err)
		}
		e.logger.Debug("tool call finished",
			"tool", call.Name, "caller", caller, "elapsed", elapsed.Round(time.Millisecond))
		return ToolResult{
			ToolCallID:    call.ID,
			ToolName:      call.Name,
			Success:       true,
			Content:       out.content,
			ExecutionTime: elapsed,
		}
	case <-timer.C:
		elapsed := time.Since(start)
		entry.errors.Add(1)
		e.logger.Warn("tool call timed out",
			"tool", call.Name, "caller", caller, "timeout", e.timeout)
		return failure(call, elapsed, fmt.Errorf("%w after %s: %s", ErrToolTimeout, e.timeout, call.Name))
	case <-ctx.Done():
		elapsed := time.Since(start)
		entry.errors.Add(1)
		return failure(call, elapsed, ctx.Err())
	}
}

func failure(call llms.ToolCall, elapsed time.Duration, err error) ToolResult {
	return ToolResult{
		ToolCallID:    call.ID,
		ToolName:      call.Name,
		Success:       false,
		Error:         err.Error(),
		ExecutionTime: elapsed,
	}
}
