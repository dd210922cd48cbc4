package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kambaexpress/backoffice/internal/metrics"
	"github.com/kambaexpress/backoffice/internal/order"
)

type contextKey int

const customerEmailKey contextKey = iota

// CustomerClaims is the bearer token payload. Tokens are issued by the
// storefront's identity provider; only the email claim is used here.
type CustomerClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

var errMissingEmail = errors.New("token has no email claim")

func (s *Server) parseCustomerToken(raw string) (string, error) {
	claims := &CustomerClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.config.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	email := order.NormalizeEmail(claims.Email)
	if email == "" {
		return "", errMissingEmail
	}
	return email, nil
}

func (s *Server) customerAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			w.Header().Set("WWW-Authenticate", `Bearer`)
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		email, err := s.parseCustomerToken(strings.TrimSpace(raw))
		if err != nil {
			s.logger.Debug("Rejected customer token", zap.Error(err))
			w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), customerEmailKey, email)))
	})
}

func customerEmail(ctx context.Context) string {
	email, _ := ctx.Value(customerEmailKey).(string)
	return email
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "unknown"
		if cur := mux.CurrentRoute(r); cur != nil && cur.GetName() != "" {
			route = cur.GetName()
		}

		start := time.Now()
		wrw := newResponseWriterWrapper(w, false)
		next.ServeHTTP(wrw, r)

		metrics.HTTPRequestDuration.
			WithLabelValues(route, strconv.Itoa(wrw.GetStatusCode())).
			Observe(time.Since(start).Seconds())
	})
}
