// Package tracing starts OpenTelemetry spans for job runs, task executions,
// agent turns and tool calls. Spans go to the global tracer provider, which is
// a no-op until the host application installs one.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hupe1980/taskmesh"

const (
	attrRunID    = "taskmesh.run_id"
	attrJobKind  = "taskmesh.job.kind"
	attrTasks    = "taskmesh.job.tasks"
	attrTask     = "taskmesh.task.name"
	attrAgent    = "taskmesh.agent.name"
	attrTurn     = "taskmesh.agent.turn"
	attrToolName = "taskmesh.tool.name"
	attrCallID   = "taskmesh.tool.call_id"
	attrStatus   = "taskmesh.status"
)

// StartJobSpan starts a span for a job run.
func StartJobSpan(ctx context.Context, runID, kind string, tasks int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "job.run",
		trace.WithAttributes(
			attribute.String(attrRunID, runID),
			attribute.String(attrJobKind, kind),
			attribute.Int(attrTasks, tasks),
		),
	)
}

// StartTaskSpan starts a span for one task execution within a job run.
func StartTaskSpan(ctx context.Context, runID, task string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "task.execute",
		trace.WithAttributes(
			attribute.String(attrRunID, runID),
			attribute.String(attrTask, task),
		),
	)
}

// StartTurnSpan starts a span for a single agent turn (one model call).
func StartTurnSpan(ctx context.Context, agent string, turn int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "agent.turn",
		trace.WithAttributes(
			attribute.String(attrAgent, agent),
			attribute.Int(attrTurn, turn),
		),
	)
}

// StartToolCallSpan starts a span for a tool call dispatched by an agent.
func StartToolCallSpan(ctx context.Context, callID, tool string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "tool.call",
		trace.WithAttributes(
			attribute.String(attrCallID, callID),
			attribute.String(attrToolName, tool),
		),
	)
}

// End records err on span (if any), sets the status and ends the span.
func End(span trace.Span, err error) {
	if span == nil {
		return
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String(attrStatus, "error"))
	} else {
		span.SetStatus(codes.Ok, "")
		span.SetAttributes(attribute.String(attrStatus, "success"))
	}

	span.End()
}
