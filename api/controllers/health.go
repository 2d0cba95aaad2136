package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/prestalink/prestalink-backend/api/responses"
	"github.com/prestalink/prestalink-backend/pkg/config"
	"github.com/prestalink/prestalink-backend/pkg/db"
	pkgerrors "github.com/prestalink/prestalink-backend/pkg/errors"
	"github.com/prestalink/prestalink-backend/pkg/logger"
	"github.com/prestalink/prestalink-backend/pkg/redis"
)

const readyCheckTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PrestaLink-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when both stores answer within the timeout.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PrestaLink-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
