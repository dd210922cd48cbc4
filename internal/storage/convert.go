package storage

import (
	"github.com/kambaexpress/backoffice/internal/order"
	"github.com/kambaexpress/backoffice/internal/repository"
)

func toRepoOrder(o *order.Order) *repository.Order {
	return &repository.Order{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		CustomerName:         o.CustomerName,
		CustomerEmail:        o.CustomerEmail,
		CustomerPhone:        o.CustomerPhone,
		ProductName:          o.ProductName,
		ProductURL:           o.ProductURL,
		PriceUSD:             o.PriceUSD,
		ExchangeRate:         o.ExchangeRate,
		ServiceFeePercentage: o.ServiceFeePercentage,
		TotalKwanza:          o.TotalKwanza,
		Status:               string(o.Status),
		TrackingNumber:       o.TrackingNumber,
		Notes:                o.Notes,
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
}

func fromRepoOrder(r *repository.Order) *order.Order {
	return &order.Order{
		ID:                   r.ID,
		OrderNumber:          r.OrderNumber,
		CustomerName:         r.CustomerName,
		CustomerEmail:        r.CustomerEmail,
		CustomerPhone:        r.CustomerPhone,
		ProductName:          r.ProductName,
		ProductURL:           r.ProductURL,
		PriceUSD:             r.PriceUSD,
		ExchangeRate:         r.ExchangeRate,
		ServiceFeePercentage: r.ServiceFeePercentage,
		TotalKwanza:          r.TotalKwanza,
		Status:               order.Status(r.Status),
		TrackingNumber:       r.TrackingNumber,
		Notes:                r.Notes,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

func toRepoHistory(e *order.HistoryEntry) *repository.HistoryEntry {
	var old *string
	if e.OldStatus != nil {
		s := string(*e.OldStatus)
		old = &s
	}
	return &repository.HistoryEntry{
		ID:        e.ID,
		OrderID:   e.OrderID,
		OldStatus: old,
		NewStatus: string(e.NewStatus),
		ChangedAt: e.ChangedAt,
	}
}

func fromRepoHistory(r *repository.HistoryEntry) order.HistoryEntry {
	var old *order.Status
	if r.OldStatus != nil {
		s := order.Status(*r.OldStatus)
		old = &s
	}
	return order.HistoryEntry{
		ID:        r.ID,
		OrderID:   r.OrderID,
		OldStatus: old,
		NewStatus: order.Status(r.NewStatus),
		ChangedAt: r.ChangedAt,
	}
}

func toRepoReview(r *order.Review) *repository.Review {
	return &repository.Review{
		ID:        r.ID,
		OrderID:   r.OrderID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func fromRepoReview(r *repository.Review) *order.Review {
	return &order.Review{
		ID:        r.ID,
		OrderID:   r.OrderID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func fromRepoReviewDetail(r *repository.ReviewDetail) order.ReviewDetail {
	return order.ReviewDetail{
		Review: order.Review{
			ID:        r.ID,
			OrderID:   r.OrderID,
			Rating:    r.Rating,
			Comment:   r.Comment,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		Order: order.ReviewedOrder{
			OrderNumber:   r.OrderNumber,
			CustomerName:  r.CustomerName,
			CustomerEmail: r.CustomerEmail,
			ProductName:   r.ProductName,
		},
	}
}
