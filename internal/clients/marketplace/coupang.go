package marketplace

import (
	"encoding/json"

	"github.com/aristath/crosslister/internal/config"
	"github.com/aristath/crosslister/internal/domain"
	"github.com/rs/zerolog"
)

// CoupangClient lists items via the Coupang WING gateway service
type CoupangClient struct {
	transport *transport
	vendorID  string
}

// NewCoupangClient creates a Coupang client with injected credentials
func NewCoupangClient(baseURL string, creds config.CoupangCredentials, log zerolog.Logger) *CoupangClient {
	headers := map[string]string{
		"X-Coupang-Access-Key": creds.AccessKey,
		"X-Coupang-Secret-Key": creds.SecretKey,
	}
	return &CoupangClient{
		transport: newTransport(baseURL, headers, log.With().Str("client", "coupang").Logger()),
		vendorID:  creds.VendorID,
	}
}

// Platform returns the marketplace this client serves
func (c *CoupangClient) Platform() domain.Platform {
	return domain.PlatformCoupang
}

// RequiresVerification reports that Coupang has no verify step
func (c *CoupangClient) RequiresVerification() bool {
	return false
}

// Verify is a no-op for Coupang
func (c *CoupangClient) Verify(payload domain.ListingPayload) *ApiError {
	return nil
}

type coupangListingRequest struct {
	VendorID string                `json:"vendor_id"`
	Payload  domain.ListingPayload `json:"payload"`
}

type coupangListingResult struct {
	ProductID string `json:"seller_product_id"`
}

// Submit creates the seller product
func (c *CoupangClient) Submit(payload domain.ListingPayload) (string, *ApiError) {
	c.transport.log.Info().Str("sku", payload.SKU).Msg("Submitting listing")

	req := coupangListingRequest{VendorID: c.vendorID, Payload: payload}
	resp, apiErr := c.transport.postJSON("/api/seller-products", req)
	if apiErr != nil {
		return "", apiErr
	}

	var result coupangListingResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return "", NewFatal("MALFORMED_RESPONSE", "listing created but response unreadable: "+err.Error())
	}
	if result.ProductID == "" {
		return "", NewFatal("MISSING_LISTING_ID", "marketplace response carried no product id")
	}

	return result.ProductID, nil
}
