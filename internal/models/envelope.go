package models

import (
	"encoding/json"
	"time"
)

// API error codes used across the inventory service
const (
	CodeInventoryNotFound  = "INVENTORY_NOT_FOUND"
	CodeContainerNotFound  = "CONTAINER_NOT_FOUND"
	CodeReviewConflict     = "REVIEW_CONFLICT"
	CodeReviewInvalid      = "REVIEW_INVALID"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// Envelope is the wire envelope every inventory endpoint speaks
type Envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     *ErrorBody      `json:"error,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
}

// ErrorBody is the error half of the envelope
type ErrorBody struct {
	Code              string `json:"code"`
	Message           string `json:"message"`
	RetryAfterSeconds int    `json:"retry_after_seconds,omitempty"`
}
