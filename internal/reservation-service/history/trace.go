package history

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// TraceInfo holds the OTel identifiers extracted from a context.
type TraceInfo struct {
	TraceID string
	SpanID  string
}

// ExtractTraceInfo reads the active span from ctx. Both fields are empty when
// ctx carries no valid span (e.g. in unit tests).
func ExtractTraceInfo(ctx context.Context) TraceInfo {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return TraceInfo{}
	}
	return TraceInfo{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

// NewEntry builds an Entry stamped with the trace info found in ctx.
//
//	entry := history.NewEntry(ctx, r.ID, "PENDING", "EXPIRED", "payment deadline passed", now)
//	_ = repo.Append(ctx, entry)
func NewEntry(ctx context.Context, reservationID, from, to, reason string, at time.Time) *Entry {
	ti := ExtractTraceInfo(ctx)
	return &Entry{
		ReservationID: reservationID,
		FromStatus:    from,
		ToStatus:      to,
		Reason:        reason,
		TraceID:       ti.TraceID,
		SpanID:        ti.SpanID,
		RecordedAt:    at.UTC(),
	}
}
