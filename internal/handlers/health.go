package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"github.com/AnshRaj112/flowmotion-backend/internal/logger"
	"github.com/AnshRaj112/flowmotion-backend/pkg/response"
	"go.uber.org/zap"
)

// Pinger reports whether a backing service is reachable.
type Pinger func(ctx context.Context) error

// Health answers 200 when every dependency responds, 503 otherwise.
func Health(deps map[string]Pinger, log *zap.Logger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := make(map[string]string, len(deps))
		healthy := true
		for _, name := range names {
			if err := deps[name](ctx); err != nil {
				logger.WithContext(r.Context(), log).Warn("health check failed", zap.String("dependency", name), zap.Error(err))
				status[name] = "down"
				healthy = false
				continue
			}
			status[name] = "up"
		}

		if !healthy {
			response.Error(w, nil, apperror.New(apperror.Unavailable, "One or more dependencies are unavailable"))
			return
		}
		response.JSON(w, http.StatusOK, status, "OK")
	}
}
