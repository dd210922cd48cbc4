package server

import (
	"net/http"

	"github.com/kambaexpress/backoffice/internal/order"
	"github.com/kambaexpress/backoffice/internal/report"
)

const (
	defaultTrendDays   = 7
	maxTrendDays       = 90
	defaultRecentLimit = 5
)

// withOrders loads the order snapshot and passes it to fn.
func (s *Server) withOrders(w http.ResponseWriter, r *http.Request, fn func([]order.Order) interface{}) {
	orders, err := s.orders.Orders(r.Context())
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to load orders")
		return
	}
	respondJSON(w, http.StatusOK, fn(orders))
}

func (s *Server) handleReportSummary(w http.ResponseWriter, r *http.Request) {
	s.withOrders(w, r, func(orders []order.Order) interface{} {
		return report.Summarize(orders, s.timeNow(), s.config.Location)
	})
}

func (s *Server) handleReportBuckets(w http.ResponseWriter, r *http.Request) {
	s.withOrders(w, r, func(orders []order.Order) interface{} {
		return report.CountByBucket(orders)
	})
}

func (s *Server) handleReportStatuses(w http.ResponseWriter, r *http.Request) {
	s.withOrders(w, r, func(orders []order.Order) interface{} {
		return report.CountByStatus(orders)
	})
}

func (s *Server) handleReportTrend(w http.ResponseWriter, r *http.Request) {
	days, err := intQuery(r, "days", defaultTrendDays)
	if err == nil && days > maxTrendDays {
		err = &order.ValidationError{Field: "days", Reason: "must be at most 90"}
	}
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to build trend")
		return
	}

	s.withOrders(w, r, func(orders []order.Order) interface{} {
		return report.DailyTrend(orders, s.timeNow(), days, s.config.Location)
	})
}

func (s *Server) handleReportCustomers(w http.ResponseWriter, r *http.Request) {
	s.withOrders(w, r, func(orders []order.Order) interface{} {
		return report.CustomerRollups(orders)
	})
}

func (s *Server) handleReportAttention(w http.ResponseWriter, r *http.Request) {
	s.withOrders(w, r, func(orders []order.Order) interface{} {
		return report.NeedsAttention(orders)
	})
}

func (s *Server) handleReportRecent(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", defaultRecentLimit)
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to list recent orders")
		return
	}

	s.withOrders(w, r, func(orders []order.Order) interface{} {
		return report.Recent(orders, limit)
	})
}

func (s *Server) handleReportReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.storage.ListReviews(r.Context())
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to load reviews")
		return
	}
	respondJSON(w, http.StatusOK, report.SummarizeReviews(reviews))
}
