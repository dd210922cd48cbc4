//go:generate mockgen -source ./server.go -destination=./mocks/server.go -package=mock_server
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kambaexpress/backoffice/internal/order"
)

type Storage interface {
	CreateOrder(ctx context.Context, draft order.Draft) (*order.Order, error)
	GetOrder(ctx context.Context, id string) (*order.Order, error)
	GetCustomerOrder(ctx context.Context, id, email string) (*order.Order, error)
	ListOrders(ctx context.Context, email string) ([]order.Order, error)
	UpdateOrder(ctx context.Context, id string, u order.Update) (*order.Order, error)
	GetOrderHistory(ctx context.Context, orderID string) ([]order.HistoryEntry, error)
	ListRecentHistory(ctx context.Context, limit int) ([]order.HistoryEntry, error)
	SubmitReview(ctx context.Context, orderID, email string, rating int, comment string) (*order.Review, error)
	GetReview(ctx context.Context, orderID string) (*order.Review, error)
	ListReviews(ctx context.Context) ([]order.ReviewDetail, error)
}

type UserRepo interface {
	ValidateUser(ctx context.Context, username, password string) (bool, error)
}

// OrderSource serves the full order list for reports.
type OrderSource interface {
	Orders(ctx context.Context) ([]order.Order, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Port            string
	ShutdownTimeout time.Duration
	JWTSecret       []byte
	Estimator       order.EstimatorConfig
	Location        *time.Location
}

type Server struct {
	storage      Storage
	userRepo     UserRepo
	orders       OrderSource
	pinger       Pinger
	config       Config
	logger       *zap.Logger
	server       *http.Server
	AuditManager *AuditManager
	timeNow      func() time.Time
}

func New(storage Storage, userRepo UserRepo, orders OrderSource, pinger Pinger, config Config, logger *zap.Logger) *Server {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 5 * time.Second
	}
	return &Server{
		storage:      storage,
		userRepo:     userRepo,
		orders:       orders,
		pinger:       pinger,
		config:       config,
		logger:       logger,
		AuditManager: NewAuditManager(2, 5, 500*time.Millisecond, logger),
		timeNow:      time.Now,
	}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.AuditManager.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("port", s.config.Port))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("HTTP server shutdown completed")

	s.AuditManager.Shutdown(ctx)
	return nil
}

func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(s.metricsMiddleware)

	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet).Name("health")
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet).Name("metrics")
	router.HandleFunc("/estimate", s.handleEstimate).Methods(http.MethodPost).Name("estimate")

	customer := router.PathPrefix("/customer").Subrouter()
	customer.Use(s.customerAuthMiddleware)
	customer.HandleFunc("/orders", s.handleCustomerOrders).Methods(http.MethodGet).Name("customer_orders")
	customer.HandleFunc("/orders/{id}", s.handleCustomerOrder).Methods(http.MethodGet).Name("customer_order")
	customer.HandleFunc("/orders/{id}/timeline", s.handleCustomerTimeline).Methods(http.MethodGet).Name("customer_timeline")
	customer.HandleFunc("/orders/{id}/review", s.handleCustomerGetReview).Methods(http.MethodGet).Name("customer_get_review")
	customer.HandleFunc("/orders/{id}/review", s.handleCustomerSubmitReview).Methods(http.MethodPost).Name("customer_submit_review")

	staff := router.NewRoute().Subrouter()
	staff.Use(s.basicAuthMiddleware, s.auditLogMiddleware)
	staff.HandleFunc("/orders", s.handleCreateOrder).Methods(http.MethodPost).Name("create_order")
	staff.HandleFunc("/orders", s.handleListOrders).Methods(http.MethodGet).Name("list_orders")
	staff.HandleFunc("/orders/{id}", s.handleGetOrder).Methods(http.MethodGet).Name("get_order")
	staff.HandleFunc("/orders/{id}", s.handleUpdateOrder).Methods(http.MethodPatch).Name("update_order")
	staff.HandleFunc("/orders/{id}/history", s.handleOrderHistory).Methods(http.MethodGet).Name("order_history")
	staff.HandleFunc("/orders/{id}/timeline", s.handleOrderTimeline).Methods(http.MethodGet).Name("order_timeline")
	staff.HandleFunc("/history/recent", s.handleRecentHistory).Methods(http.MethodGet).Name("recent_history")
	staff.HandleFunc("/reviews", s.handleListReviews).Methods(http.MethodGet).Name("list_reviews")
	staff.HandleFunc("/reports/summary", s.handleReportSummary).Methods(http.MethodGet).Name("report_summary")
	staff.HandleFunc("/reports/buckets", s.handleReportBuckets).Methods(http.MethodGet).Name("report_buckets")
	staff.HandleFunc("/reports/statuses", s.handleReportStatuses).Methods(http.MethodGet).Name("report_statuses")
	staff.HandleFunc("/reports/trend", s.handleReportTrend).Methods(http.MethodGet).Name("report_trend")
	staff.HandleFunc("/reports/customers", s.handleReportCustomers).Methods(http.MethodGet).Name("report_customers")
	staff.HandleFunc("/reports/attention", s.handleReportAttention).Methods(http.MethodGet).Name("report_attention")
	staff.HandleFunc("/reports/recent", s.handleReportRecent).Methods(http.MethodGet).Name("report_recent")
	staff.HandleFunc("/reports/reviews", s.handleReportReviews).Methods(http.MethodGet).Name("report_reviews")

	return router
}

func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		username, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		valid, err := s.userRepo.ValidateUser(r.Context(), username, password)
		if err != nil {
			s.logger.Error("Failed to validate staff user", zap.String("username", username), zap.Error(err))
		}
		if err != nil || !valid {
			w.Header().Set("WWW-Authenticate", `Basic realm="Restricted"`)
			respondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

type validationResponse struct {
	Error  string `json:"error"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// respondDomainError maps order errors to status codes. Anything unknown is
// logged and reported as a generic failure.
func (s *Server) respondDomainError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var ve *order.ValidationError
	switch {
	case errors.As(err, &ve):
		respondJSON(w, http.StatusBadRequest, validationResponse{Error: ve.Error(), Field: ve.Field, Reason: ve.Reason})
	case errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, order.ErrReviewNotFound):
		respondError(w, http.StatusNotFound, "Review not found")
	case errors.Is(err, order.ErrDuplicateReview):
		respondError(w, http.StatusConflict, "This order has already been reviewed")
	case errors.Is(err, order.ErrNotDelivered):
		respondError(w, http.StatusConflict, "Only delivered orders can be reviewed")
	default:
		s.logger.Error(fallback,
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, fallback)
	}
}

// intQuery reads a positive integer query parameter, returning def when absent.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, &order.ValidationError{Field: name, Reason: "must be a positive integer"}
	}
	return v, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if s.pinger != nil {
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.Warn("Health check failed", zap.Error(err))
			respondError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PriceUSD float64 `json:"price_usd"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	quote, err := order.EstimateTotal(req.PriceUSD, s.config.Estimator)
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to estimate price")
		return
	}

	respondJSON(w, http.StatusOK, struct {
		order.Quote
		ExchangeRate   float64 `json:"exchange_rate"`
		FeePercentage  float64 `json:"fee_percentage"`
		TotalFormatted string  `json:"total_formatted"`
	}{
		Quote:          quote,
		ExchangeRate:   s.config.Estimator.ExchangeRate,
		FeePercentage:  s.config.Estimator.FeePercentage,
		TotalFormatted: order.FormatKwanza(quote.Total),
	})
}
