package marketplace

import (
	"encoding/json"

	"github.com/aristath/crosslister/internal/config"
	"github.com/aristath/crosslister/internal/domain"
	"github.com/rs/zerolog"
)

// AmazonClient lists items via the SP-API gateway service.
// One credential set serves all Amazon regions; a separate client instance
// is registered per platform (amazon_us, amazon_jp, amazon_au).
type AmazonClient struct {
	transport     *transport
	platform      domain.Platform
	sellerID      string
	marketplaceID string
}

// NewAmazonClient creates an Amazon client for one regional platform
func NewAmazonClient(baseURL string, platform domain.Platform, creds config.AmazonCredentials, log zerolog.Logger) *AmazonClient {
	headers := map[string]string{
		"x-amz-access-token": creds.RefreshToken,
	}
	return &AmazonClient{
		transport: newTransport(baseURL, headers,
			log.With().Str("client", string(platform)).Logger()),
		platform:      platform,
		sellerID:      creds.SellerID,
		marketplaceID: creds.MarketplaceID,
	}
}

// Platform returns the regional Amazon marketplace this client serves
func (c *AmazonClient) Platform() domain.Platform {
	return c.platform
}

// RequiresVerification reports that SP-API has no verify step
func (c *AmazonClient) RequiresVerification() bool {
	return false
}

// Verify is a no-op for Amazon
func (c *AmazonClient) Verify(payload domain.ListingPayload) *ApiError {
	return nil
}

type amazonListingRequest struct {
	SellerID      string                `json:"seller_id"`
	MarketplaceID string                `json:"marketplace_id"`
	Payload       domain.ListingPayload `json:"payload"`
}

type amazonListingResult struct {
	SubmissionID string `json:"submission_id"`
}

// Submit puts the listing via the SP-API listings endpoint
func (c *AmazonClient) Submit(payload domain.ListingPayload) (string, *ApiError) {
	c.transport.log.Info().Str("sku", payload.SKU).Msg("Submitting listing")

	req := amazonListingRequest{
		SellerID:      c.sellerID,
		MarketplaceID: c.marketplaceID,
		Payload:       payload,
	}
	resp, apiErr := c.transport.postJSON("/api/listings/put", req)
	if apiErr != nil {
		return "", apiErr
	}

	var result amazonListingResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return "", NewFatal("MALFORMED_RESPONSE", "listing created but response unreadable: "+err.Error())
	}
	if result.SubmissionID == "" {
		return "", NewFatal("MISSING_LISTING_ID", "marketplace response carried no submission id")
	}

	return result.SubmissionID, nil
}
