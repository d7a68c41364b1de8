package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alanyoungcy/crossarb/internal/domain"
	"github.com/redis/go-redis/v9"
)

// DefaultReportTTL bounds how long a report survives without a fresh scan.
const DefaultReportTTL = 10 * time.Minute

// ReportCache implements domain.ReportCache using Redis hashes with a
// JSON-serialized Report.
//
// Key schema:
//
//	report:{kind} - hash with field "data" containing JSON
type ReportCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewReportCache creates a ReportCache. A non-positive ttl uses
// DefaultReportTTL.
func NewReportCache(c *Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = DefaultReportTTL
	}
	return &ReportCache{rdb: c.rdb, ttl: ttl}
}

func reportKey(kind domain.PriceModel) string { return "report:" + string(kind) }

// SetReport replaces the cached report for report.Kind and refreshes its TTL.
func (rc *ReportCache) SetReport(ctx context.Context, report domain.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("redis: marshal report %s: %w", report.Kind, err)
	}

	key := reportKey(report.Kind)
	pipe := rc.rdb.TxPipeline()
	pipe.HSet(ctx, key, "data", data)
	pipe.Expire(ctx, key, rc.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set report %s: %w", report.Kind, err)
	}
	return nil
}

// GetReport returns the cached report for kind, or domain.ErrNotFound.
func (rc *ReportCache) GetReport(ctx context.Context, kind domain.PriceModel) (domain.Report, error) {
	data, err := rc.rdb.HGet(ctx, reportKey(kind), "data").Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Report{}, domain.ErrNotFound
		}
		return domain.Report{}, fmt.Errorf("redis: get report %s: %w", kind, err)
	}

	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return domain.Report{}, fmt.Errorf("redis: unmarshal report %s: %w", kind, err)
	}
	return report, nil
}

// Compile-time interface check.
var _ domain.ReportCache = (*ReportCache)(nil)
