package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// LogStatus is the lifecycle state of an order log entry. Every entry starts
// as initiated and moves exactly once to a terminal status within the same
// order-handling call.
type LogStatus string

const (
	LogStatusInitiated       LogStatus = "initiated"
	LogStatusSuccess         LogStatus = "success"
	LogStatusAPIError        LogStatus = "api_error"
	LogStatusInputError      LogStatus = "input_error"
	LogStatusProcessingError LogStatus = "processing_error"
)

// LogEntry records one order attempt and its outcome.
type LogEntry struct {
	Timestamp    time.Time       `json:"timestamp"`
	UUID         string          `json:"uuid"`
	OrderType    OrderType       `json:"order_type"`
	Side         Side            `json:"side"`
	Price        string          `json:"price,omitempty"`
	Quantity     string          `json:"quantity"`
	Status       LogStatus       `json:"status"`
	OrderID      string          `json:"order_id,omitempty"`
	Response     json.RawMessage `json:"response,omitempty"`
	ErrorMessage string          `json:"error_message,omitempty"`
}

// NewLogEntry creates an initiated entry for an order attempt.
func NewLogEntry(orderType OrderType, side Side, price, quantity string) LogEntry {
	return LogEntry{
		Timestamp: time.Now().UTC(),
		UUID:      uuid.New().String(),
		OrderType: orderType,
		Side:      side,
		Price:     price,
		Quantity:  quantity,
		Status:    LogStatusInitiated,
	}
}
