package domain

import (
	"context"
	"time"
)

// ReportCache keeps the last known good report per price model so that API
// callers and other instances can read it without triggering a scan.
type ReportCache interface {
	SetReport(ctx context.Context, report Report) error
	GetReport(ctx context.Context, kind PriceModel) (Report, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// SignalBus provides pub/sub between the scanner and the WebSocket hub.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Bus channels.
const (
	ChannelArb    = "ch:arb"
	ChannelStatus = "ch:status"
)
