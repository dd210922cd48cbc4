package server

import (
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AuditLogEntry records one staff request.
type AuditLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Handler    string    `json:"handler"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	StatusCode int       `json:"status_code"`
	UserID     string    `json:"user_id,omitempty"`
	OrderID    string    `json:"order_id,omitempty"`
	OldStatus  string    `json:"old_status,omitempty"`
	NewStatus  string    `json:"new_status,omitempty"`
	Request    string    `json:"request,omitempty"`
	Response   string    `json:"response,omitempty"`
}

func (e AuditLogEntry) fields() []zapcore.Field {
	fields := []zapcore.Field{
		zap.Time("timestamp", e.Timestamp),
		zap.String("handler", e.Handler),
		zap.String("method", e.Method),
		zap.String("path", e.Path),
		zap.Int("status_code", e.StatusCode),
		zap.String("user", e.UserID),
	}
	if e.OrderID != "" {
		fields = append(fields, zap.String("order_id", e.OrderID))
	}
	if e.NewStatus != "" {
		fields = append(fields, zap.String("old_status", e.OldStatus), zap.String("new_status", e.NewStatus))
	}
	if e.Request != "" {
		fields = append(fields, zap.String("request", e.Request))
	}
	if e.Response != "" {
		fields = append(fields, zap.String("response", e.Response))
	}
	return fields
}
