package logging

import (
	"context"
	"log/slog"

	"ncanimate/internal/services"
)

const (
	// FieldComponent names the emitting component.
	FieldComponent = "component"
	// FieldRunID identifies one generation run.
	FieldRunID = "run_id"
	// FieldProductID is the product definition being generated.
	FieldProductID = "product_id"
	// FieldRegion is the region filter or output region.
	FieldRegion = "region"
	// FieldOutputID identifies a single output product (map or video).
	FieldOutputID = "output_id"
	// FieldDateRange renders a date range as text.
	FieldDateRange = "date_range"

	FieldEventType    = "event_type"
	FieldErrorHint    = "error_hint"
	FieldImpact       = "impact"
	FieldDecisionType = "decision_type"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if id, ok := services.ProductIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldProductID, id))
	}
	if region, ok := services.RegionFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRegion, region))
	}
	return fields
}

// WithContext returns a logger augmented with fields derived from ctx.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
