package marketplace

import (
	"github.com/aristath/crosslister/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// StubClient accepts every listing without calling any external API.
// Registered instead of real clients in dev mode.
type StubClient struct {
	platform domain.Platform
	log      zerolog.Logger
}

// NewStubClient creates a stub client for a platform
func NewStubClient(platform domain.Platform, log zerolog.Logger) *StubClient {
	return &StubClient{
		platform: platform,
		log:      log.With().Str("client", "stub").Str("platform", string(platform)).Logger(),
	}
}

// Platform returns the marketplace this client pretends to serve
func (c *StubClient) Platform() domain.Platform {
	return c.platform
}

// RequiresVerification mirrors the real client behavior for eBay
func (c *StubClient) RequiresVerification() bool {
	return c.platform == domain.PlatformEbay
}

// Verify always passes
func (c *StubClient) Verify(payload domain.ListingPayload) *ApiError {
	return nil
}

// Submit returns a generated listing ID
func (c *StubClient) Submit(payload domain.ListingPayload) (string, *ApiError) {
	id := "stub-" + uuid.NewString()
	c.log.Info().Str("sku", payload.SKU).Str("listing_id", id).Msg("Stub listing accepted")
	return id, nil
}
