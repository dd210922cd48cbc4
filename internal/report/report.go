// Package report derives dashboard figures from an in-memory order list.
// Nothing here touches storage; callers load the orders and pass them in.
package report

import (
	"sort"
	"time"

	"github.com/kambaexpress/backoffice/internal/order"
)

type Bucket string

const (
	BucketPending    Bucket = "pending"
	BucketInProgress Bucket = "in_progress"
	BucketDelivered  Bucket = "delivered"
	BucketCancelled  Bucket = "cancelled"
)

func BucketOf(s order.Status) Bucket {
	switch s {
	case order.StatusPendingPayment:
		return BucketPending
	case order.StatusDelivered:
		return BucketDelivered
	case order.StatusCancelled:
		return BucketCancelled
	default:
		return BucketInProgress
	}
}

type BucketCounts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Delivered  int `json:"delivered"`
	Cancelled  int `json:"cancelled"`
}

func CountByBucket(orders []order.Order) BucketCounts {
	var c BucketCounts
	for _, o := range orders {
		switch BucketOf(o.Status) {
		case BucketPending:
			c.Pending++
		case BucketInProgress:
			c.InProgress++
		case BucketDelivered:
			c.Delivered++
		case BucketCancelled:
			c.Cancelled++
		}
	}
	return c
}

type StatusCount struct {
	Status order.Status `json:"status"`
	Label  string       `json:"label"`
	Count  int          `json:"count"`
}

// CountByStatus lists only statuses that occur, in lifecycle order.
func CountByStatus(orders []order.Order) []StatusCount {
	counts := make(map[order.Status]int)
	for _, o := range orders {
		counts[o.Status]++
	}

	var out []StatusCount
	for _, st := range order.AllStatuses() {
		if n := counts[st]; n > 0 {
			out = append(out, StatusCount{Status: st, Label: st.Label(), Count: n})
		}
	}
	return out
}

// Revenue sums order totals, leaving cancelled orders out.
func Revenue(orders []order.Order) float64 {
	var sum float64
	for _, o := range orders {
		if o.Status != order.StatusCancelled {
			sum += o.TotalKwanza
		}
	}
	return sum
}

type Summary struct {
	TotalOrders       int     `json:"total_orders"`
	Revenue           float64 `json:"revenue"`
	AverageOrderValue float64 `json:"average_order_value"`
	TodayOrders       int     `json:"today_orders"`
	DeliveredRate     float64 `json:"delivered_rate"`
}

func Summarize(orders []order.Order, now time.Time, loc *time.Location) Summary {
	s := Summary{TotalOrders: len(orders), Revenue: Revenue(orders)}
	today := startOfDay(now, loc)

	active, delivered := 0, 0
	for _, o := range orders {
		if o.Status != order.StatusCancelled {
			active++
		}
		if o.Status == order.StatusDelivered {
			delivered++
		}
		if startOfDay(o.CreatedAt, loc).Equal(today) {
			s.TodayOrders++
		}
	}

	if active > 0 {
		s.AverageOrderValue = s.Revenue / float64(active)
	}
	if len(orders) > 0 {
		s.DeliveredRate = float64(delivered) / float64(len(orders)) * 100
	}
	return s
}

type DayBucket struct {
	Day     time.Time `json:"day"`
	Label   string    `json:"label"`
	Orders  int       `json:"orders"`
	Revenue float64   `json:"revenue"`
}

// DailyTrend buckets orders by calendar day of creation over the trailing
// window of days ending on now's day, oldest first. Days without orders are
// present with zero values.
func DailyTrend(orders []order.Order, now time.Time, days int, loc *time.Location) []DayBucket {
	if days <= 0 {
		return nil
	}

	today := startOfDay(now, loc)
	first := today.AddDate(0, 0, -(days - 1))

	buckets := make([]DayBucket, days)
	index := make(map[string]int, days)
	for i := range buckets {
		d := first.AddDate(0, 0, i)
		buckets[i] = DayBucket{Day: d, Label: d.Format("02/01")}
		index[d.Format(time.DateOnly)] = i
	}

	for _, o := range orders {
		i, ok := index[startOfDay(o.CreatedAt, loc).Format(time.DateOnly)]
		if !ok {
			continue
		}
		buckets[i].Orders++
		if o.Status != order.StatusCancelled {
			buckets[i].Revenue += o.TotalKwanza
		}
	}
	return buckets
}

type CustomerRollup struct {
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Phone         *string   `json:"phone,omitempty"`
	TotalOrders   int       `json:"total_orders"`
	TotalSpent    float64   `json:"total_spent"`
	LastOrderDate time.Time `json:"last_order_date"`
}

// CustomerRollups groups orders by customer email. Name and phone come from
// the customer's most recently created order; ties keep the first seen.
// Total spent counts every order, cancelled included.
func CustomerRollups(orders []order.Order) []CustomerRollup {
	byEmail := make(map[string]CustomerRollup)
	var emails []string

	for _, o := range orders {
		email := order.NormalizeEmail(o.CustomerEmail)
		cur, seen := byEmail[email]
		if !seen {
			emails = append(emails, email)
		}
		byEmail[email] = mergeCustomer(cur, seen, email, o)
	}

	out := make([]CustomerRollup, 0, len(emails))
	for _, e := range emails {
		out = append(out, byEmail[e])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalSpent > out[j].TotalSpent
	})
	return out
}

func mergeCustomer(cur CustomerRollup, seen bool, email string, o order.Order) CustomerRollup {
	if !seen {
		return CustomerRollup{
			Email:         email,
			Name:          o.CustomerName,
			Phone:         o.CustomerPhone,
			TotalOrders:   1,
			TotalSpent:    o.TotalKwanza,
			LastOrderDate: o.CreatedAt,
		}
	}

	next := cur
	next.TotalOrders++
	next.TotalSpent += o.TotalKwanza
	if o.CreatedAt.After(cur.LastOrderDate) {
		next.LastOrderDate = o.CreatedAt
		next.Name = o.CustomerName
		next.Phone = o.CustomerPhone
	}
	return next
}

// NeedsAttention returns orders waiting on payment or stuck in customs.
func NeedsAttention(orders []order.Order) []order.Order {
	var out []order.Order
	for _, o := range orders {
		if o.Status == order.StatusPendingPayment || o.Status == order.StatusInCustoms {
			out = append(out, o)
		}
	}
	return out
}

// Recent returns up to n orders, newest first.
func Recent(orders []order.Order, n int) []order.Order {
	out := make([]order.Order, len(orders))
	copy(out, orders)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// ReviewStats summarizes customer satisfaction. Distribution always holds
// every rating from 1 to 5.
type ReviewStats struct {
	TotalReviews  int         `json:"total_reviews"`
	AverageRating float64     `json:"average_rating"`
	Distribution  map[int]int `json:"distribution"`
	// PositiveRate is the percentage of reviews rated 4 or 5.
	PositiveRate float64 `json:"positive_rate"`
}

func SummarizeReviews(reviews []order.ReviewDetail) ReviewStats {
	stats := ReviewStats{Distribution: make(map[int]int, order.MaxRating)}
	for r := order.MinRating; r <= order.MaxRating; r++ {
		stats.Distribution[r] = 0
	}

	sum := 0
	for _, r := range reviews {
		stats.Distribution[r.Rating]++
		sum += r.Rating
	}
	stats.TotalReviews = len(reviews)
	if stats.TotalReviews > 0 {
		stats.AverageRating = float64(sum) / float64(stats.TotalReviews)
		positive := stats.Distribution[4] + stats.Distribution[5]
		stats.PositiveRate = float64(positive*100) / float64(stats.TotalReviews)
	}
	return stats
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
