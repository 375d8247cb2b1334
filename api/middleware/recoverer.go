package middleware

import (
	"fmt"
	"net/http"

	"github.com/JEMsword1976/netflix-skipper/api/responses"
	pkgerrors "github.com/JEMsword1976/netflix-skipper/pkg/errors"
	"github.com/JEMsword1976/netflix-skipper/pkg/logger"
)

// Recoverer converts a handler panic into a logged 500. It sits outermost
// so a panic in any later middleware still produces a JSON error envelope
// instead of a dropped connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					err := fmt.Errorf("panic: %v", rec)
					ctx := r.Context()
					if logg != nil {
						ctx = logg.WithFields(ctx, map[string]any{"panic": rec})
						logg.Error(ctx, "panic.recovered", err)
					}
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "panic"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
