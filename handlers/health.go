package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hkbharti77/AI-Counsellor/database"
	"github.com/hkbharti77/AI-Counsellor/utils/response"
)

const healthTimeout = 2 * time.Second

// Pinger is an optional dependency checked by the health endpoint
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthDeps are the backends reported by /ping. Cache is nil when the
// service runs without Redis.
type HealthDeps struct {
	Store database.Storage
	Cache Pinger
}

// HandleCheckHealth reports whether the database (and the cache, when configured) is reachable
func HandleCheckHealth(c *fiber.Ctx, deps HealthDeps) error {
	if err := deps.Store.HealthCheck(); err != nil {
		return response.ServiceUnavailable(c, "Database unavailable")
	}

	status := fiber.Map{"status": "ok", "database": "up", "cache": "disabled"}
	if deps.Cache != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()
		if err := deps.Cache.Ping(ctx); err != nil {
			// The catalog falls back to the database, so a cache outage only degrades.
			status["status"] = "degraded"
			status["cache"] = "down"
		} else {
			status["cache"] = "up"
		}
	}
	return response.Success(c, status)
}
