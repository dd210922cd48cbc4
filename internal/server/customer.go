package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kambaexpress/backoffice/internal/order"
)

func (s *Server) handleCustomerOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.storage.ListOrders(r.Context(), customerEmail(r.Context()))
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to list orders")
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (s *Server) customerOrder(w http.ResponseWriter, r *http.Request) (*order.Order, bool) {
	o, err := s.storage.GetCustomerOrder(r.Context(), mux.Vars(r)["id"], customerEmail(r.Context()))
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to get order")
		return nil, false
	}
	return o, true
}

func (s *Server) handleCustomerOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := s.customerOrder(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (s *Server) handleCustomerTimeline(w http.ResponseWriter, r *http.Request) {
	o, ok := s.customerOrder(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, order.ProjectTimeline(o.Status))
}

func (s *Server) handleCustomerGetReview(w http.ResponseWriter, r *http.Request) {
	o, ok := s.customerOrder(w, r)
	if !ok {
		return
	}
	review, err := s.storage.GetReview(r.Context(), o.ID)
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to get review")
		return
	}
	respondJSON(w, http.StatusOK, review)
}

func (s *Server) handleCustomerSubmitReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	review, err := s.storage.SubmitReview(r.Context(), mux.Vars(r)["id"], customerEmail(r.Context()), req.Rating, req.Comment)
	if err != nil {
		s.respondDomainError(w, r, err, "Failed to submit review")
		return
	}
	respondJSON(w, http.StatusCreated, review)
}
