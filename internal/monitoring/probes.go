package monitoring

import (
	"context"
	"time"

	"gorm.io/gorm"
)

const defaultProbeTimeout = 2 * time.Second

// Pinger is satisfied by cache backends that can verify their connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// DatabaseCheck pings the SQL connection behind db.
func DatabaseCheck(db *gorm.DB, timeout time.Duration) Check {
	return NewCheck("database", func(ctx context.Context) ProbeResult {
		start := time.Now()
		if db == nil {
			return ProbeResult{Status: StatusDown, Details: "database not configured"}
		}

		sqlDB, err := db.DB()
		if err != nil {
			return ResultFromError("database", err, time.Since(start))
		}

		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout(timeout))
		defer cancel()

		return ResultFromError("database", sqlDB.PingContext(probeCtx), time.Since(start))
	})
}

// CacheCheck pings the rate limit cache. A nil client reports degraded since requests
// are still served without rate limiting.
func CacheCheck(name string, client Pinger, timeout time.Duration) Check {
	return NewCheck(name, func(ctx context.Context) ProbeResult {
		start := time.Now()
		if client == nil {
			return ProbeResult{Status: StatusDegraded, Details: name + " unavailable"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, probeTimeout(timeout))
		defer cancel()

		return ResultFromError(name, client.Ping(probeCtx), time.Since(start))
	})
}

func probeTimeout(provided time.Duration) time.Duration {
	if provided <= 0 {
		return defaultProbeTimeout
	}
	return provided
}
