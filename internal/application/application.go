package application

import (
	"context"
	"time"

	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const spanPrefix = "UC."

// Probe carries the prebound logger and RED metrics shared by the use cases of one service.
type Probe struct {
	log    observability.Logger
	tracer observability.Tracer

	reqCounter   observability.Counter   // usecase_requests_total{use_case,outcome}
	durHistogram observability.Histogram // usecase_duration_seconds{use_case}
}

func NewProbe(tel observability.Observability, service string) Probe {
	log, tracer, metrics := observability.Parts(tel)
	return Probe{
		log:          log.With(observability.F("service", service)),
		tracer:       tracer,
		reqCounter:   metrics.Counter(observability.MUsecaseRequests),
		durHistogram: metrics.Histogram(observability.MUsecaseDuration),
	}
}

// Logger returns the service logger, preferring a request-scoped one from ctx.
func (p Probe) Logger(ctx context.Context) observability.Logger {
	return logctx.FromOr(ctx, p.log)
}

// Run tracks one use case execution until End is called.
type Run struct {
	ctx     context.Context
	span    trace.Span
	log     observability.Logger
	probe   Probe
	useCase string
	start   time.Time
	outcome string
	status  string
	fields  []observability.Field
}

// Begin starts the span "UC.<spanName>" and returns the derived context.
func (p Probe) Begin(ctx context.Context, useCase, spanName string, attrs ...attribute.KeyValue) (context.Context, *Run) {
	attrs = append([]attribute.KeyValue{attribute.String("use_case", useCase)}, attrs...)
	ctx, span := p.tracer.Start(ctx, spanPrefix+spanName, attrs...)
	return ctx, &Run{
		ctx:     ctx,
		span:    span,
		log:     logctx.FromOr(ctx, p.log).With(observability.F("use_case", useCase)),
		probe:   p,
		useCase: useCase,
		start:   time.Now(),
		outcome: "success",
		status:  "OK",
	}
}

func (r *Run) Logger() observability.Logger { return r.log }

func (r *Run) Span() trace.Span { return r.span }

// Fail marks the run as failed with a machine-readable status.
func (r *Run) Fail(status string) {
	r.outcome, r.status = "error", status
}

// Degrade marks a run that succeeded with reduced output.
func (r *Run) Degrade(status string) {
	r.outcome, r.status = "degraded", status
}

// Status overrides the status text without changing the outcome.
func (r *Run) Status(status string) { r.status = status }

// Note adds fields to the use_case_done record.
func (r *Run) Note(fields ...observability.Field) {
	r.fields = append(r.fields, fields...)
}

// End closes the span, records RED metrics and logs use_case_done.
func (r *Run) End(err error) {
	if err != nil && r.outcome == "success" {
		r.Fail("ERROR")
	}
	lat := time.Since(r.start).Seconds()

	if r.span != nil {
		if err != nil {
			r.span.RecordError(err)
			r.span.SetStatus(codes.Error, r.status)
		} else {
			r.span.SetStatus(codes.Ok, r.status)
		}
		r.span.End()
	}

	r.probe.reqCounter.Add(1,
		observability.L("use_case", r.useCase),
		observability.L("outcome", r.outcome),
	)
	r.probe.durHistogram.Observe(lat,
		observability.L("use_case", r.useCase),
	)

	fields := []observability.Field{
		observability.F("outcome", r.outcome),
		observability.F("status", r.status),
		observability.F("latency_seconds", lat),
	}
	if sc := trace.SpanContextFromContext(r.ctx); sc.IsValid() {
		fields = append(fields,
			observability.F("trace_id", sc.TraceID().String()),
			observability.F("span_id", sc.SpanID().String()),
		)
	}
	fields = append(fields, r.fields...)
	if err != nil {
		fields = append(fields, observability.F("error", err.Error()))
	}

	r.log.Info("use_case_done", fields...)
}
