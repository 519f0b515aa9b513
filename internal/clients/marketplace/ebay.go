package marketplace

import (
	"encoding/json"

	"github.com/aristath/crosslister/internal/config"
	"github.com/aristath/crosslister/internal/domain"
	"github.com/rs/zerolog"
)

// EbayClient lists items via the eBay gateway service.
// eBay supports VerifyAddItem, so listings are verified before submission.
type EbayClient struct {
	transport *transport
	siteID    string
}

// NewEbayClient creates an eBay client with injected credentials
func NewEbayClient(baseURL string, creds config.EbayCredentials, log zerolog.Logger) *EbayClient {
	headers := map[string]string{
		"X-EBAY-API-APP-NAME":  creds.AppID,
		"X-EBAY-API-DEV-NAME":  creds.DevID,
		"X-EBAY-API-CERT-NAME": creds.CertID,
		"Authorization":        "Bearer " + creds.OAuthToken,
	}
	return &EbayClient{
		transport: newTransport(baseURL, headers, log.With().Str("client", "ebay").Logger()),
		siteID:    creds.SiteID,
	}
}

// Platform returns the marketplace this client serves
func (c *EbayClient) Platform() domain.Platform {
	return domain.PlatformEbay
}

// RequiresVerification reports that eBay listings are verified first
func (c *EbayClient) RequiresVerification() bool {
	return true
}

type ebayListingRequest struct {
	SiteID  string                `json:"site_id"`
	Payload domain.ListingPayload `json:"payload"`
}

// Verify runs VerifyAddItem without creating a listing
func (c *EbayClient) Verify(payload domain.ListingPayload) *ApiError {
	c.transport.log.Debug().Str("sku", payload.SKU).Msg("Verifying listing")

	req := ebayListingRequest{SiteID: c.siteID, Payload: payload}
	if _, apiErr := c.transport.postJSON("/api/listing/verify", req); apiErr != nil {
		return apiErr
	}
	return nil
}

type ebayListingResult struct {
	ListingID string `json:"listing_id"`
}

// Submit creates the listing via AddItem
func (c *EbayClient) Submit(payload domain.ListingPayload) (string, *ApiError) {
	c.transport.log.Info().Str("sku", payload.SKU).Msg("Submitting listing")

	req := ebayListingRequest{SiteID: c.siteID, Payload: payload}
	resp, apiErr := c.transport.postJSON("/api/listing/add", req)
	if apiErr != nil {
		return "", apiErr
	}

	var result ebayListingResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return "", NewFatal("MALFORMED_RESPONSE", "listing created but response unreadable: "+err.Error())
	}
	if result.ListingID == "" {
		return "", NewFatal("MISSING_LISTING_ID", "marketplace response carried no listing id")
	}

	return result.ListingID, nil
}
