package controllers

import (
	"net/http"

	"github.com/JEMsword1976/netflix-skipper/api/responses"
	"github.com/JEMsword1976/netflix-skipper/pkg/config"
	pkgerrors "github.com/JEMsword1976/netflix-skipper/pkg/errors"
	"github.com/JEMsword1976/netflix-skipper/pkg/logger"
	"github.com/JEMsword1976/netflix-skipper/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Skipper-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, pinger redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Skipper-Env", cfg.App.Env)
		if pinger != nil {
			if err := pinger.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
