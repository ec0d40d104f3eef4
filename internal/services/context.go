package services

import "context"

type contextKey string

const (
	runIDKey     contextKey = "run_id"
	productIDKey contextKey = "product_id"
	regionKey    contextKey = "region"
)

// WithRunID annotates context with the generation run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithProductID annotates context with the product definition being generated.
func WithProductID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, productIDKey, id)
}

// ProductIDFromContext returns the product definition ID if present.
func ProductIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(productIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRegion annotates context with the region filter of the run.
func WithRegion(ctx context.Context, region string) context.Context {
	if region == "" {
		return ctx
	}
	return context.WithValue(ctx, regionKey, region)
}

// RegionFromContext returns the region filter if present.
func RegionFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(regionKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
