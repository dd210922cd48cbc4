package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"

	"github.com/kambaexpress/backoffice/internal/order"
	mock_server "github.com/kambaexpress/backoffice/internal/server/mocks"
)

const testSecret = "test-secret"

var fixedNow = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

type testServer struct {
	*Server
	storage *mock_server.MockStorage
	users   *mock_server.MockUserRepo
	orders  *mock_server.MockOrderSource
	pinger  *mock_server.MockPinger
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	ctrl := gomock.NewController(t)

	ts := &testServer{
		storage: mock_server.NewMockStorage(ctrl),
		users:   mock_server.NewMockUserRepo(ctrl),
		orders:  mock_server.NewMockOrderSource(ctrl),
		pinger:  mock_server.NewMockPinger(ctrl),
	}
	ts.Server = New(ts.storage, ts.users, ts.orders, ts.pinger, Config{
		Port:      "0",
		JWTSecret: []byte(testSecret),
		Estimator: order.DefaultEstimatorConfig(),
		Location:  time.UTC,
	}, zap.NewNop())
	ts.timeNow = func() time.Time { return fixedNow }
	ts.handler = ts.Handler()

	ctx, cancel := context.WithCancel(context.Background())
	ts.AuditManager.Start(ctx)
	t.Cleanup(func() {
		cancel()
		ts.AuditManager.Shutdown(context.Background())
	})

	ts.users.EXPECT().ValidateUser(gomock.Any(), "admin", "secret").Return(true, nil).AnyTimes()
	return ts
}

func (ts *testServer) staff(method, path string, body interface{}) *httptest.ResponseRecorder {
	req := newRequest(method, path, body)
	req.SetBasicAuth("admin", "secret")
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func (ts *testServer) customer(t *testing.T, method, path, email string, body interface{}) *httptest.ResponseRecorder {
	req := newRequest(method, path, body)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, email, time.Now().Add(time.Hour)))
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func newRequest(method, path string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func signToken(t *testing.T, secret, email string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, CustomerClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func sampleOrder(id string, status order.Status) *order.Order {
	return &order.Order{
		ID:                   id,
		OrderNumber:          12,
		CustomerName:         "Ana Silva",
		CustomerEmail:        "ana@example.com",
		ProductName:          "Headphones",
		ProductURL:           "https://shop.example.com/p/1",
		PriceUSD:             100,
		ExchangeRate:         850,
		ServiceFeePercentage: 10,
		TotalKwanza:          93500,
		Status:               status,
		CreatedAt:            fixedNow,
		UpdatedAt:            fixedNow,
	}
}

func TestHandleCreateOrder(t *testing.T) {
	tests := []struct {
		name           string
		body           interface{}
		setupMocks     func(ts *testServer)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "created",
			body: map[string]interface{}{
				"customer_name":  "Ana Silva",
				"customer_email": "ana@example.com",
				"product_name":   "Headphones",
				"product_url":    "https://shop.example.com/p/1",
				"price_usd":      100,
			},
			setupMocks: func(ts *testServer) {
				ts.storage.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, d order.Draft) (*order.Order, error) {
						assert.Equal(t, "Ana Silva", d.CustomerName)
						assert.Equal(t, 100.0, d.PriceUSD)
						return sampleOrder("o1", order.StatusPendingPayment), nil
					})
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "invalid body",
			body:           "{",
			setupMocks:     func(ts *testServer) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Invalid request body"}`,
		},
		{
			name: "validation error",
			body: map[string]interface{}{"customer_name": ""},
			setupMocks: func(ts *testServer) {
				ts.storage.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).
					Return(nil, &order.ValidationError{Field: "customer_name", Reason: "is required"})
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"invalid customer_name: is required","field":"customer_name","reason":"is required"}`,
		},
		{
			name: "storage error",
			body: map[string]interface{}{"customer_name": "Ana"},
			setupMocks: func(ts *testServer) {
				ts.storage.EXPECT().CreateOrder(gomock.Any(), gomock.Any()).Return(nil, errors.New("database error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"error":"Failed to create order"}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			tc.setupMocks(ts)

			rr := ts.staff(http.MethodPost, "/orders", tc.body)

			assert.Equal(t, tc.expectedStatus, rr.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, rr.Body.String())
			}
		})
	}
}

func TestStaffAuth(t *testing.T) {
	ts := newTestServer(t)
	ts.users.EXPECT().ValidateUser(gomock.Any(), "admin", "wrong").Return(false, nil)

	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, newRequest(http.MethodGet, "/orders", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))

	req := newRequest(http.MethodGet, "/orders", nil)
	req.SetBasicAuth("admin", "wrong")
	rr = httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandleGetOrder(t *testing.T) {
	tests := []struct {
		name           string
		orderID        string
		setupMocks     func(ts *testServer)
		expectedStatus int
	}{
		{
			name:    "found",
			orderID: "o1",
			setupMocks: func(ts *testServer) {
				ts.storage.EXPECT().GetOrder(gomock.Any(), "o1").Return(sampleOrder("o1", order.StatusPurchasing), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:    "not found",
			orderID: "missing",
			setupMocks: func(ts *testServer) {
				ts.storage.EXPECT().GetOrder(gomock.Any(), "missing").Return(nil, order.ErrNotFound)
			},
			expectedStatus: http.StatusNotFound,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			tc.setupMocks(ts)

			req := httptest.NewRequest(http.MethodGet, "/orders/"+tc.orderID, nil)
			req = mux.SetURLVars(req, map[string]string{"id": tc.orderID})
			rr := httptest.NewRecorder()

			ts.handleGetOrder(rr, req)

			assert.Equal(t, tc.expectedStatus, rr.Code)
		})
	}
}

func TestHandleUpdateOrder(t *testing.T) {
	t.Run("status and tracking", func(t *testing.T) {
		ts := newTestServer(t)
		// The audit middleware looks up the old status first.
		ts.storage.EXPECT().GetOrder(gomock.Any(), "o1").Return(sampleOrder("o1", order.StatusInCustoms), nil)
		ts.storage.EXPECT().UpdateOrder(gomock.Any(), "o1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, u order.Update) (*order.Order, error) {
				require.NotNil(t, u.Status)
				assert.Equal(t, order.StatusShippedLocal, *u.Status)
				assert.Equal(t, "TRK-9", *u.TrackingNumber)
				assert.Nil(t, u.Notes)
				return sampleOrder("o1", order.StatusShippedLocal), nil
			})

		rr := ts.staff(http.MethodPatch, "/orders/o1", map[string]string{
			"status":          "shipped_local",
			"tracking_number": "TRK-9",
		})
		require.Equal(t, http.StatusOK, rr.Code)

		var got order.Order
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, order.StatusShippedLocal, got.Status)
	})

	t.Run("unknown status", func(t *testing.T) {
		ts := newTestServer(t)
		ts.storage.EXPECT().GetOrder(gomock.Any(), "o1").Return(sampleOrder("o1", order.StatusInCustoms), nil)

		rr := ts.staff(http.MethodPatch, "/orders/o1", map[string]string{"status": "lost"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), `"field":"status"`)
	})

	t.Run("empty update", func(t *testing.T) {
		ts := newTestServer(t)

		rr := ts.staff(http.MethodPatch, "/orders/o1", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("missing order", func(t *testing.T) {
		ts := newTestServer(t)
		ts.storage.EXPECT().UpdateOrder(gomock.Any(), "nope", gomock.Any()).Return(nil, order.ErrNotFound)

		rr := ts.staff(http.MethodPatch, "/orders/nope", map[string]string{"notes": "x"})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestHandleOrderHistoryAndTimeline(t *testing.T) {
	ts := newTestServer(t)
	old := order.StatusPendingPayment
	ts.storage.EXPECT().GetOrderHistory(gomock.Any(), "o1").Return([]order.HistoryEntry{
		{ID: 1, OrderID: "o1", NewStatus: order.StatusPendingPayment, ChangedAt: fixedNow.Add(-time.Hour)},
		{ID: 2, OrderID: "o1", OldStatus: &old, NewStatus: order.StatusPaymentConfirmed, ChangedAt: fixedNow},
	}, nil)
	ts.storage.EXPECT().GetOrder(gomock.Any(), "o1").Return(sampleOrder("o1", order.StatusPaymentConfirmed), nil)

	rr := ts.staff(http.MethodGet, "/orders/o1/history", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var entries []order.HistoryEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Nil(t, entries[0].OldStatus)

	rr = ts.staff(http.MethodGet, "/orders/o1/timeline", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var tl order.Timeline
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &tl))
	require.Len(t, tl.Steps, 7)
	assert.Equal(t, order.StepCompleted, tl.Steps[0].State)
	assert.Equal(t, order.StepCurrent, tl.Steps[1].State)
}

func TestHandleRecentHistory(t *testing.T) {
	ts := newTestServer(t)
	ts.storage.EXPECT().ListRecentHistory(gomock.Any(), 5).Return(nil, nil)

	assert.Equal(t, http.StatusOK, ts.staff(http.MethodGet, "/history/recent?limit=5", nil).Code)
	assert.Equal(t, http.StatusBadRequest, ts.staff(http.MethodGet, "/history/recent?limit=-1", nil).Code)
}

func TestReports(t *testing.T) {
	orders := []order.Order{
		*sampleOrder("o1", order.StatusPendingPayment),
		*sampleOrder("o2", order.StatusDelivered),
		*sampleOrder("o3", order.StatusCancelled),
		*sampleOrder("o4", order.StatusInCustoms),
	}

	t.Run("summary", func(t *testing.T) {
		ts := newTestServer(t)
		ts.orders.EXPECT().Orders(gomock.Any()).Return(orders, nil)

		rr := ts.staff(http.MethodGet, "/reports/summary", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{
			"total_orders": 4,
			"revenue": 280500,
			"average_order_value": 93500,
			"today_orders": 4,
			"delivered_rate": 25
		}`, rr.Body.String())
	})

	t.Run("buckets", func(t *testing.T) {
		ts := newTestServer(t)
		ts.orders.EXPECT().Orders(gomock.Any()).Return(orders, nil)

		rr := ts.staff(http.MethodGet, "/reports/buckets", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"pending":1,"in_progress":1,"delivered":1,"cancelled":1}`, rr.Body.String())
	})

	t.Run("attention", func(t *testing.T) {
		ts := newTestServer(t)
		ts.orders.EXPECT().Orders(gomock.Any()).Return(orders, nil)

		rr := ts.staff(http.MethodGet, "/reports/attention", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var got []order.Order
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "o1", got[0].ID)
		assert.Equal(t, "o4", got[1].ID)
	})

	t.Run("recent", func(t *testing.T) {
		ts := newTestServer(t)
		ts.orders.EXPECT().Orders(gomock.Any()).Return(orders, nil)

		rr := ts.staff(http.MethodGet, "/reports/recent?limit=2", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var got []order.Order
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Len(t, got, 2)
	})

	t.Run("trend days bounds", func(t *testing.T) {
		ts := newTestServer(t)
		ts.orders.EXPECT().Orders(gomock.Any()).Return(orders, nil)

		rr := ts.staff(http.MethodGet, "/reports/trend?days=3", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		var days []map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &days))
		assert.Len(t, days, 3)

		assert.Equal(t, http.StatusBadRequest, ts.staff(http.MethodGet, "/reports/trend?days=365", nil).Code)
	})

	t.Run("load failure", func(t *testing.T) {
		ts := newTestServer(t)
		ts.orders.EXPECT().Orders(gomock.Any()).Return(nil, errors.New("db down"))

		rr := ts.staff(http.MethodGet, "/reports/customers", nil)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestCustomerRoutes(t *testing.T) {
	t.Run("missing token", func(t *testing.T) {
		ts := newTestServer(t)
		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, newRequest(http.MethodGet, "/customer/orders", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		ts := newTestServer(t)
		req := newRequest(http.MethodGet, "/customer/orders", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "ana@example.com", time.Now().Add(-time.Minute)))
		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("token without expiry", func(t *testing.T) {
		ts := newTestServer(t)
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, CustomerClaims{Email: "ana@example.com"})
		signed, err := token.SignedString([]byte(testSecret))
		require.NoError(t, err)

		req := newRequest(http.MethodGet, "/customer/orders", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("wrong key", func(t *testing.T) {
		ts := newTestServer(t)
		req := newRequest(http.MethodGet, "/customer/orders", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, "other", "ana@example.com", time.Now().Add(time.Hour)))
		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("own orders by token email", func(t *testing.T) {
		ts := newTestServer(t)
		ts.storage.EXPECT().ListOrders(gomock.Any(), "ana@example.com").
			Return([]order.Order{*sampleOrder("o1", order.StatusPurchasing)}, nil)

		rr := ts.customer(t, http.MethodGet, "/customer/orders", "Ana@Example.com", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("other customer's order", func(t *testing.T) {
		ts := newTestServer(t)
		ts.storage.EXPECT().GetCustomerOrder(gomock.Any(), "o1", "bruno@example.com").Return(nil, order.ErrNotFound)

		rr := ts.customer(t, http.MethodGet, "/customer/orders/o1/timeline", "bruno@example.com", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("malformed order id", func(t *testing.T) {
		ts := newTestServer(t)
		ts.storage.EXPECT().GetCustomerOrder(gomock.Any(), "abc", "ana@example.com").Return(nil, order.ErrNotFound)

		rr := ts.customer(t, http.MethodGet, "/customer/orders/abc", "ana@example.com", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("cancelled timeline", func(t *testing.T) {
		ts := newTestServer(t)
		ts.storage.EXPECT().GetCustomerOrder(gomock.Any(), "o1", "ana@example.com").
			Return(sampleOrder("o1", order.StatusCancelled), nil)

		rr := ts.customer(t, http.MethodGet, "/customer/orders/o1/timeline", "ana@example.com", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"current":"cancelled","cancelled":true}`, rr.Body.String())
	})
}

func TestCustomerReview(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedBody   string
	}{
		{"created", nil, http.StatusCreated, ""},
		{"duplicate", order.ErrDuplicateReview, http.StatusConflict, `{"error":"This order has already been reviewed"}`},
		{"not delivered", order.ErrNotDelivered, http.StatusConflict, `{"error":"Only delivered orders can be reviewed"}`},
		{"bad rating", &order.ValidationError{Field: "rating", Reason: "must be between 1 and 5"}, http.StatusBadRequest, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			call := ts.storage.EXPECT().SubmitReview(gomock.Any(), "o1", "ana@example.com", 5, "Excelente")
			if tc.err != nil {
				call.Return(nil, tc.err)
			} else {
				call.Return(&order.Review{ID: "r1", OrderID: "o1", Rating: 5}, nil)
			}

			rr := ts.customer(t, http.MethodPost, "/customer/orders/o1/review", "ana@example.com",
				map[string]interface{}{"rating": 5, "comment": "Excelente"})

			assert.Equal(t, tc.expectedStatus, rr.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, rr.Body.String())
			}
		})
	}

	t.Run("get missing review", func(t *testing.T) {
		ts := newTestServer(t)
		ts.storage.EXPECT().GetCustomerOrder(gomock.Any(), "o1", "ana@example.com").
			Return(sampleOrder("o1", order.StatusDelivered), nil)
		ts.storage.EXPECT().GetReview(gomock.Any(), "o1").Return(nil, order.ErrReviewNotFound)

		rr := ts.customer(t, http.MethodGet, "/customer/orders/o1/review", "ana@example.com", nil)
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestPublicRoutes(t *testing.T) {
	t.Run("estimate", func(t *testing.T) {
		ts := newTestServer(t)
		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, newRequest(http.MethodPost, "/estimate", map[string]float64{"price_usd": 100}))

		require.Equal(t, http.StatusOK, rr.Code)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, 106800.0, got["total"])
		assert.True(t, strings.HasSuffix(got["total_formatted"].(string), "Kz"))
	})

	t.Run("estimate rejects zero price", func(t *testing.T) {
		ts := newTestServer(t)
		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, newRequest(http.MethodPost, "/estimate", map[string]float64{"price_usd": 0}))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("health", func(t *testing.T) {
		ts := newTestServer(t)
		ts.pinger.EXPECT().Ping(gomock.Any()).Return(nil)
		ts.pinger.EXPECT().Ping(gomock.Any()).Return(errors.New("down"))

		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, newRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rr.Code)

		rr = httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, newRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		ts := newTestServer(t)
		rr := httptest.NewRecorder()
		ts.handler.ServeHTTP(rr, newRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "backoffice_http_request_duration_seconds")
	})
}

func TestHandleListOrders(t *testing.T) {
	listed := func() []order.Order {
		a := sampleOrder("o1", order.StatusPurchasing)
		b := sampleOrder("o2", order.StatusDelivered)
		b.OrderNumber = 13
		b.CustomerName = "Bruno Costa"
		b.ProductName = "Kindle"
		return []order.Order{*a, *b}
	}

	tests := []struct {
		name           string
		query          string
		expectList     bool
		expectedStatus int
		expectedIDs    []string
	}{
		{name: "all", query: "", expectList: true, expectedStatus: http.StatusOK, expectedIDs: []string{"o1", "o2"}},
		{name: "by status", query: "?status=delivered", expectList: true, expectedStatus: http.StatusOK, expectedIDs: []string{"o2"}},
		{name: "by search text", query: "?q=headph", expectList: true, expectedStatus: http.StatusOK, expectedIDs: []string{"o1"}},
		{name: "by order number", query: "?q=%2313", expectList: true, expectedStatus: http.StatusOK, expectedIDs: []string{"o2"}},
		{name: "unknown status", query: "?status=lost", expectedStatus: http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			if tc.expectList {
				ts.storage.EXPECT().ListOrders(gomock.Any(), "").Return(listed(), nil)
			}

			rr := ts.staff(http.MethodGet, "/orders"+tc.query, nil)
			require.Equal(t, tc.expectedStatus, rr.Code)
			if tc.expectedStatus != http.StatusOK {
				return
			}

			var got []order.Order
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
			ids := make([]string, 0, len(got))
			for _, o := range got {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tc.expectedIDs, ids)
		})
	}
}

func sampleReviews() []order.ReviewDetail {
	comment := "Excelente serviço"
	return []order.ReviewDetail{
		{
			Review: order.Review{ID: "r1", OrderID: "o1", Rating: 5, Comment: &comment, CreatedAt: fixedNow},
			Order:  order.ReviewedOrder{OrderNumber: 12, CustomerName: "Ana Silva", CustomerEmail: "ana@example.com", ProductName: "Headphones"},
		},
		{
			Review: order.Review{ID: "r2", OrderID: "o2", Rating: 2, CreatedAt: fixedNow},
			Order:  order.ReviewedOrder{OrderNumber: 13, CustomerName: "Bruno Costa", CustomerEmail: "bruno@example.com", ProductName: "Kindle"},
		},
	}
}

func TestHandleListReviews(t *testing.T) {
	t.Run("with order details", func(t *testing.T) {
		ts := newTestServer(t)
		ts.storage.EXPECT().ListReviews(gomock.Any()).Return(sampleReviews(), nil)

		rr := ts.staff(http.MethodGet, "/reviews", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var got []map[string]interface{}
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, "Ana Silva", got[0]["order"].(map[string]interface{})["customer_name"])
		assert.Equal(t, 12.0, got[0]["order"].(map[string]interface{})["order_number"])
	})

	t.Run("rating filter", func(t *testing.T) {
		ts := newTestServer(t)
		ts.storage.EXPECT().ListReviews(gomock.Any()).Return(sampleReviews(), nil)

		rr := ts.staff(http.MethodGet, "/reviews?rating=2", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var got []order.ReviewDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "r2", got[0].ID)
	})

	t.Run("search text", func(t *testing.T) {
		ts := newTestServer(t)
		ts.storage.EXPECT().ListReviews(gomock.Any()).Return(sampleReviews(), nil)

		rr := ts.staff(http.MethodGet, "/reviews?q=servi", nil)
		require.Equal(t, http.StatusOK, rr.Code)

		var got []order.ReviewDetail
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		require.Len(t, got, 1)
		assert.Equal(t, "r1", got[0].ID)
	})

	t.Run("rating out of range", func(t *testing.T) {
		ts := newTestServer(t)

		rr := ts.staff(http.MethodGet, "/reviews?rating=9", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestHandleReportReviews(t *testing.T) {
	t.Run("stats", func(t *testing.T) {
		ts := newTestServer(t)
		ts.storage.EXPECT().ListReviews(gomock.Any()).Return(sampleReviews(), nil)

		rr := ts.staff(http.MethodGet, "/reports/reviews", nil)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{
			"total_reviews": 2,
			"average_rating": 3.5,
			"distribution": {"1": 0, "2": 1, "3": 0, "4": 0, "5": 1},
			"positive_rate": 50
		}`, rr.Body.String())
	})

	t.Run("load failure", func(t *testing.T) {
		ts := newTestServer(t)
		ts.storage.EXPECT().ListReviews(gomock.Any()).Return(nil, errors.New("database error"))

		rr := ts.staff(http.MethodGet, "/reports/reviews", nil)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}
