package middleware

import (
	"fmt"
	"net/http"

	"github.com/AnshRaj112/flowmotion-backend/internal/apperror"
	"github.com/AnshRaj112/flowmotion-backend/internal/logger"
	"github.com/AnshRaj112/flowmotion-backend/pkg/response"
	"go.uber.org/zap"
)

// Recoverer turns a handler panic into a 500 envelope.
func Recoverer(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				reqLog := logger.WithContext(r.Context(), log)
				reqLog.Error("panic recovered", zap.Any("panic", rec), zap.Stack("stack"))
				response.Error(w, reqLog, apperror.Wrap(fmt.Errorf("panic: %v", rec), apperror.Internal, "Something went wrong"))
			}()
			next.ServeHTTP(w, r)
		})
	}
}
