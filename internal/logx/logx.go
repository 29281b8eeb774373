package logx

import (
	"context"

	"pkt.systems/pslog"
	"pkt.systems/tabcounter/schema"
)

type contextKey int

const (
	providerKey contextKey = iota
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithTab annotates the logger with a tab identifier when present.
func WithTab(log pslog.Logger, tabID schema.TabID) pslog.Logger {
	if tabID != "" {
		log = log.With("tab", tabID)
	}
	return log
}

// WithRefresh annotates the logger with the refresh sequence number.
func WithRefresh(log pslog.Logger, seq uint64) pslog.Logger {
	if seq > 0 {
		log = log.With("refresh", seq)
	}
	return log
}

// WithProvider annotates the logger with the provider name unless the
// context already carries it.
func WithProvider(ctx context.Context, provider string) pslog.Logger {
	log := pslog.Ctx(ctx)
	if provider == "" {
		return log
	}
	if current, ok := ctx.Value(providerKey).(string); ok && current == provider {
		return log
	}
	return log.With("provider", provider)
}

// ContextWithProviderLogger attaches a provider-annotated logger and the
// provider marker to the context.
func ContextWithProviderLogger(ctx context.Context, provider string) context.Context {
	if ctx == nil || provider == "" {
		return ctx
	}
	log := WithProvider(ctx, provider)
	ctx = pslog.ContextWithLogger(ctx, log)
	return context.WithValue(ctx, providerKey, provider)
}
