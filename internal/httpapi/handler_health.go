package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

// RedisPinger adapts a redis client to Pinger.
type RedisPinger struct {
	Client *redis.Client
}

func (p RedisPinger) Ping(ctx context.Context) error {
	return p.Client.Ping(ctx).Err()
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthHandler pings every dependency; any failure answers 503.
func HealthHandler(checks map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		res := healthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
		status := http.StatusOK
		for _, name := range names {
			if err := checks[name].Ping(ctx); err != nil {
				slog.Warn("health check failed", "check", name, "error", err)
				res.Checks[name] = "error"
				res.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			res.Checks[name] = "ok"
		}
		writeJSON(w, status, res)
	}
}
