package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/kambaexpress/backoffice/internal/order"
	"github.com/kambaexpress/backoffice/internal/report"
)

// rows collects a table so it can be built fluently and rendered in one go.
type rows struct {
	headers []any
	data    [][]string
}

func newTable(headers ...any) *rows {
	return &rows{headers: headers}
}

func (r *rows) Row(cells ...string) *rows {
	r.data = append(r.data, cells)
	return r
}

func write(w io.Writer, r *rows) error {
	t := tablewriter.NewWriter(w)
	t.Header(r.headers...)
	for _, row := range r.data {
		if err := t.Append(row); err != nil {
			return fmt.Errorf("failed to add row: %w", err)
		}
	}
	return t.Render()
}

func renderSummary(w io.Writer, orders []order.Order, now time.Time, loc *time.Location) error {
	s := report.Summarize(orders, now, loc)
	b := report.CountByBucket(orders)

	t := newTable("Metric", "Value").
		Row("Total orders", strconv.Itoa(s.TotalOrders)).
		Row("Today", strconv.Itoa(s.TodayOrders)).
		Row("Revenue", order.FormatKwanza(s.Revenue)).
		Row("Average order", order.FormatKwanza(s.AverageOrderValue)).
		Row("Delivered", fmt.Sprintf("%.1f%%", s.DeliveredRate)).
		Row("Pending", strconv.Itoa(b.Pending)).
		Row("In progress", strconv.Itoa(b.InProgress)).
		Row("Cancelled", strconv.Itoa(b.Cancelled))
	if err := write(w, t); err != nil {
		return err
	}

	statuses := newTable("Status", "Orders")
	for _, c := range report.CountByStatus(orders) {
		statuses.Row(c.Label, strconv.Itoa(c.Count))
	}
	return write(w, statuses)
}

func renderCustomers(w io.Writer, orders []order.Order, limit int) error {
	rollups := report.CustomerRollups(orders)
	if limit > 0 && len(rollups) > limit {
		rollups = rollups[:limit]
	}

	t := newTable("Customer", "Email", "Phone", "Orders", "Spent", "Last order")
	for _, c := range rollups {
		phone := "-"
		if c.Phone != nil {
			phone = *c.Phone
		}
		t.Row(c.Name, c.Email, phone, strconv.Itoa(c.TotalOrders),
			order.FormatKwanza(c.TotalSpent), c.LastOrderDate.Format(time.DateOnly))
	}
	return write(w, t)
}

func renderTrend(w io.Writer, orders []order.Order, now time.Time, days int, loc *time.Location) error {
	t := newTable("Day", "Orders", "Revenue")
	for _, d := range report.DailyTrend(orders, now, days, loc) {
		t.Row(d.Label, strconv.Itoa(d.Orders), order.FormatKwanza(d.Revenue))
	}
	return write(w, t)
}

func renderAttention(w io.Writer, orders []order.Order) error {
	t := newTable("#", "Customer", "Product", "Status", "Price", "Total", "Created")
	for _, o := range report.NeedsAttention(orders) {
		t.Row(strconv.FormatInt(o.OrderNumber, 10), o.CustomerName, o.ProductName, o.Status.Label(),
			order.FormatUSD(o.PriceUSD), order.FormatKwanza(o.TotalKwanza), o.CreatedAt.Format(time.DateOnly))
	}
	return write(w, t)
}

func renderReviews(w io.Writer, reviews []order.ReviewDetail, filter order.ReviewFilter) error {
	stats := report.SummarizeReviews(reviews)
	summary := newTable("Rating", "Reviews").
		Row("Average", fmt.Sprintf("%.1f", stats.AverageRating)).
		Row("4-5 stars", fmt.Sprintf("%.0f%%", stats.PositiveRate))
	for r := order.MaxRating; r >= order.MinRating; r-- {
		summary.Row(fmt.Sprintf("%d %s", r, order.RatingLabel(r)), strconv.Itoa(stats.Distribution[r]))
	}
	summary.Row("Total", strconv.Itoa(stats.TotalReviews))
	if err := write(w, summary); err != nil {
		return err
	}

	t := newTable("#", "Customer", "Product", "Rating", "Comment", "Date")
	for _, r := range filter.Apply(reviews) {
		comment := "-"
		if r.Comment != nil {
			comment = *r.Comment
		}
		t.Row(strconv.FormatInt(r.Order.OrderNumber, 10), r.Order.CustomerName, r.Order.ProductName,
			order.RatingLabel(r.Rating), comment, r.CreatedAt.Format(time.DateOnly))
	}
	return write(w, t)
}
