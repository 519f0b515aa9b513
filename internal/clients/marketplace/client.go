package marketplace

import (
	"fmt"

	"github.com/aristath/crosslister/internal/domain"
)

// ApiError is a classified marketplace API failure.
// Type decides whether the attempt is retried.
type ApiError struct {
	Type    domain.ErrorType `json:"type"`
	Code    string           `json:"code"`
	Message string           `json:"message"`
}

// Error implements the error interface
func (e *ApiError) Error() string {
	return fmt.Sprintf("%s [%s]: %s", e.Type, e.Code, e.Message)
}

// Temporary reports whether the error is expected to resolve with time
func (e *ApiError) Temporary() bool {
	return e.Type == domain.ErrorTemporary
}

// NewTemporary builds a temporary (retryable) API error
func NewTemporary(code, message string) *ApiError {
	return &ApiError{Type: domain.ErrorTemporary, Code: code, Message: message}
}

// NewFatal builds a fatal (non-retryable) API error
func NewFatal(code, message string) *ApiError {
	return &ApiError{Type: domain.ErrorFatal, Code: code, Message: message}
}

// Client is the capability interface every marketplace implements
type Client interface {
	// Platform returns the marketplace this client serves
	Platform() domain.Platform

	// RequiresVerification reports whether listings must be verified
	// before submission
	RequiresVerification() bool

	// Verify performs a pre-submission check without creating a listing
	Verify(payload domain.ListingPayload) *ApiError

	// Submit creates the listing and returns the marketplace listing ID
	Submit(payload domain.ListingPayload) (string, *ApiError)
}

// Registry resolves marketplace clients by platform
type Registry struct {
	clients map[domain.Platform]Client
}

// NewRegistry creates an empty client registry
func NewRegistry() *Registry {
	return &Registry{clients: make(map[domain.Platform]Client)}
}

// Register adds a client; the last registration for a platform wins
func (r *Registry) Register(c Client) {
	r.clients[c.Platform()] = c
}

// Get resolves the client for a platform, or nil if unsupported
func (r *Registry) Get(platform domain.Platform) Client {
	return r.clients[platform]
}

// Platforms lists the registered platforms
func (r *Registry) Platforms() []domain.Platform {
	platforms := make([]domain.Platform, 0, len(r.clients))
	for p := range r.clients {
		platforms = append(platforms, p)
	}
	return platforms
}
