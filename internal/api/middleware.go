package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/IlyasAtabaev731/inventory-service/internal/lib/jwt"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-Id"

type ctxKey int

const (
	ctxKeyUserID ctxKey = iota
	ctxKeyRequestID
)

// UserIDFromContext returns the id of the user whose token passed the
// authenticate middleware.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKeyUserID).(int64)
	return id, ok
}

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

// authenticate wraps a handler that requires a valid bearer token. Any valid
// token is enough; handlers do not check ownership.
func (s *APIServer) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenHeader := r.Header.Get("Authorization")
		if tokenHeader == "" {
			writeMessage(w, http.StatusUnauthorized, "Missing Authorization Header")
			return
		}

		parts := strings.Split(tokenHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			writeMessage(w, http.StatusUnauthorized, "Bad Authorization header. Expected 'Authorization: Bearer <JWT>'")
			return
		}

		claims, err := jwt.ParseToken(parts[1], s.jwtSecret)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				writeMessage(w, http.StatusUnauthorized, "Token has expired")
				return
			}
			s.logger.Debug("Rejected token", slog.String("reason", err.Error()))
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		userID, err := claims.UserID()
		if err != nil {
			writeMessage(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), ctxKeyUserID, userID)))
	}
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKeyRequestID, reqID)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	size   int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.size += n
	return n, err
}

func (s *APIServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Int("size", rec.size),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", RequestIDFromContext(r.Context())),
		)
	})
}
