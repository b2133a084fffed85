package common

import (
	"context"
	"time"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID    contextKey = "run_id"
	ContextKeyDocID    contextKey = "doc_id"
	ContextKeyHelperID contextKey = "helper_id"
)

// WithRunID tags the context with the id of the current pipeline run
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithDocID adds the document being processed to the context
func WithDocID(ctx context.Context, docID string) context.Context {
	return context.WithValue(ctx, ContextKeyDocID, docID)
}

// DocIDFromContext extracts the document ID from context
func DocIDFromContext(ctx context.Context) string {
	if docID, ok := ctx.Value(ContextKeyDocID).(string); ok {
		return docID
	}
	return ""
}

// WithHelperID adds the impersonated helper to the context
func WithHelperID(ctx context.Context, helperID string) context.Context {
	return context.WithValue(ctx, ContextKeyHelperID, helperID)
}

func HelperIDFromContext(ctx context.Context) string {
	if helperID, ok := ctx.Value(ContextKeyHelperID).(string); ok {
		return helperID
	}
	return ""
}

// WithTimeout creates a context with the specified timeout; zero means no deadline.
func WithTimeout(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, timeout)
}
