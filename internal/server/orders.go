package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kambaexpress/backoffice/internal/order"
)

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var draft order.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	o, err := s.storage.CreateOrder(r.Context(), draft)
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to create order")
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := order.Filter{Query: query.Get("q")}
	if v := query.Get("status"); v != "" {
		st, err := order.ParseStatus(v)
		if err != nil {
			s.respondDomainError(w, r, err, "Failed to list orders")
			return
		}
		filter.Status = st
	}

	orders, err := s.storage.ListOrders(r.Context(), query.Get("email"))
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to list orders")
		return
	}
	respondJSON(w, http.StatusOK, filter.Apply(orders))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.storage.GetOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to get order")
		return
	}
	respondJSON(w, http.StatusOK, o)
}

type updateOrderRequest struct {
	Status         *string `json:"status"`
	TrackingNumber *string `json:"tracking_number"`
	Notes          *string `json:"notes"`
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u := order.Update{TrackingNumber: req.TrackingNumber, Notes: req.Notes}
	if req.Status != nil {
		st, err := order.ParseStatus(*req.Status)
		if err != nil {
			s.respondDomainError(w, r, err, "Failed to update order")
			return
		}
		u.Status = &st
	}
	if u.Status == nil && u.TrackingNumber == nil && u.Notes == nil {
		respondError(w, http.StatusBadRequest, "Nothing to update")
		return
	}

	o, err := s.storage.UpdateOrder(r.Context(), mux.Vars(r)["id"], u)
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to update order")
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.storage.GetOrderHistory(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to get order history")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleOrderTimeline(w http.ResponseWriter, r *http.Request) {
	o, err := s.storage.GetOrder(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to get order")
		return
	}
	respondJSON(w, http.StatusOK, order.ProjectTimeline(o.Status))
}

func (s *Server) handleRecentHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 0)
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to list recent history")
		return
	}
	entries, err := s.storage.ListRecentHistory(r.Context(), limit)
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to list recent history")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	rating, err := intQuery(r, "rating", 0)
	filter := order.ReviewFilter{Rating: rating, Query: r.URL.Query().Get("q")}
	if err == nil {
		err = filter.Validate()
	}
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to list reviews")
		return
	}

	reviews, err := s.storage.ListReviews(r.Context())
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to list reviews")
		return
	}
	respondJSON(w, http.StatusOK, filter.Apply(reviews))
}
