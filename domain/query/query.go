// Package query provides request/response value types for the bazaar query endpoints.
package query

import (
	"fmt"

	"github.com/artpar/bazaargate/domain/quota"
)

// Endpoint identifies one of the query endpoint kinds.
type Endpoint string

const (
	EndpointSnapshot Endpoint = "snapshot" // latest full snapshot
	EndpointField    Endpoint = "field"    // latest single field
	EndpointHistory  Endpoint = "history"  // bounded field history
)

// Policy controls how an endpoint is gated (value type).
type Policy struct {
	RequireKey bool // consume quota before answering
}

// Policies holds the gating policy of every endpoint (value type).
type Policies struct {
	Snapshot Policy
	Field    Policy
	History  Policy
}

// DefaultPolicies gates the field endpoints and leaves the snapshot endpoint open.
func DefaultPolicies() Policies {
	return Policies{
		Snapshot: Policy{RequireKey: false},
		Field:    Policy{RequireKey: true},
		History:  Policy{RequireKey: true},
	}
}

// For returns the policy for an endpoint.
func (p Policies) For(e Endpoint) Policy {
	switch e {
	case EndpointSnapshot:
		return p.Snapshot
	case EndpointField:
		return p.Field
	case EndpointHistory:
		return p.History
	}
	return Policy{RequireKey: true}
}

// ErrorResponse represents an error to return to the client (value type).
type ErrorResponse struct {
	Status  int
	Code    string
	Message string
}

// Error implements error so responses can be logged directly.
func (e *ErrorResponse) Error() string {
	return e.Code + ": " + e.Message
}

// Common error responses
var (
	ErrInvalidItem = ErrorResponse{
		Status:  400,
		Code:    "invalid_item",
		Message: "invalid item",
	}
	ErrInvalidField = ErrorResponse{
		Status:  400,
		Code:    "invalid_field",
		Message: "invalid field",
	}
	ErrInvalidLimit = ErrorResponse{
		Status:  400,
		Code:    "invalid_limit",
		Message: "invalid limit",
	}
	ErrKeyNotFound = ErrorResponse{
		Status:  404,
		Code:    "key_not_found",
		Message: "Key Not Found",
	}
	ErrKeyDisabled = ErrorResponse{
		Status:  404,
		Code:    "key_disabled",
		Message: "Key Disabled",
	}
	ErrLimitExceeded = ErrorResponse{
		Status:  429,
		Code:    "limit_exceeded",
		Message: "API Limit Exceeded",
	}
	ErrItemNotFound = ErrorResponse{
		Status:  404,
		Code:    "item_not_found",
		Message: "Item data not found",
	}
	ErrPageNotFound = ErrorResponse{
		Status:  404,
		Code:    "page_not_found",
		Message: "Page not found",
	}
	ErrInternal = ErrorResponse{
		Status:  500,
		Code:    "internal_error",
		Message: "Internal Server Error",
	}
)

// ErrFieldNotFound builds the not-found response for a field endpoint.
func ErrFieldNotFound(field string) *ErrorResponse {
	return &ErrorResponse{
		Status:  404,
		Code:    "field_not_found",
		Message: fmt.Sprintf("No data found for field '%s'", field),
	}
}

// ForOutcome maps a refused quota outcome to its client response.
// Returns nil for Allowed.
// This is a PURE function.
func ForOutcome(o quota.Outcome) *ErrorResponse {
	switch o {
	case quota.Allowed:
		return nil
	case quota.Denied:
		return &ErrLimitExceeded
	case quota.KeyNotFound:
		return &ErrKeyNotFound
	case quota.KeyDisabled:
		return &ErrKeyDisabled
	}
	return &ErrInternal
}
