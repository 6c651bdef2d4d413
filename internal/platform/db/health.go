package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

const serviceName = "records-api"

// PoolStats is a snapshot of the connection pool backing the ledgers.
type PoolStats struct {
	TotalConns      int32  `json:"total_conns"`
	IdleConns       int32  `json:"idle_conns"`
	AcquiredConns   int32  `json:"acquired_conns"`
	MaxConns        int32  `json:"max_conns"`
	AcquireCount    int64  `json:"acquire_count"`
	AcquireDuration string `json:"acquire_duration"`
	Healthy         bool   `json:"healthy"`
}

// Health is the /healthz payload.
type Health struct {
	Service string     `json:"service"`
	Status  string     `json:"status"`
	Error   string     `json:"error,omitempty"`
	Pool    *PoolStats `json:"pool"`
}

// GetPoolStats returns connection pool statistics.
func GetPoolStats(pool *pgxpool.Pool) *PoolStats {
	stat := pool.Stat()
	return &PoolStats{
		TotalConns:      stat.TotalConns(),
		IdleConns:       stat.IdleConns(),
		AcquiredConns:   stat.AcquiredConns(),
		MaxConns:        stat.MaxConns(),
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration().String(),
		Healthy:         stat.TotalConns() > 0,
	}
}

func healthFor(stats *PoolStats, pingErr error) (int, Health) {
	if pingErr != nil {
		stats.Healthy = false
		return http.StatusServiceUnavailable, Health{
			Service: serviceName,
			Status:  "unhealthy",
			Error:   pingErr.Error(),
			Pool:    stats,
		}
	}
	return http.StatusOK, Health{Service: serviceName, Status: "healthy", Pool: stats}
}

// HealthHandler reports whether the database behind the ledgers is reachable,
// with pool statistics for operators.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		code, body := healthFor(GetPoolStats(pool), pool.Ping(ctx))
		return c.JSON(code, body)
	}
}
