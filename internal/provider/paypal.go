package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/ninjapay/payments-reconciler/internal/data"
	"github.com/ninjapay/payments-reconciler/internal/serve/httpclient"
	"github.com/ninjapay/payments-reconciler/internal/utils"
)

const (
	paypalOAuthTokenPath     = "/v1/oauth2/token" //nolint:gosec // URL path, not a credential
	paypalCheckoutOrdersPath = "/v2/checkout/orders"

	paypalAccessTokenCacheKey = "paypal:access_token"
	// paypalTokenTTLSafety is shaved off the token lifetime PayPal reports so
	// a cached token is never used right at its expiry edge.
	paypalTokenTTLSafety = time.Minute
)

// paypalOrderStatuses maps Orders-v2 statuses to the canonical set.
// https://developer.paypal.com/docs/api/orders/v2/#orders_get
var paypalOrderStatuses = map[string]data.PaymentStatus{
	"COMPLETED":             data.AuthorizedPaymentStatus,
	"APPROVED":              data.ToConfirmPaymentStatus,
	"CREATED":               data.PendingPaymentStatus,
	"VOIDED":                data.CanceledPaymentStatus,
	"PAYER_ACTION_REQUIRED": data.ToConfirmPaymentStatus,
}

// PayPalClient polls PayPal Checkout orders. Each status call rides on an
// OAuth client-credentials token, fetched lazily and cached until shortly
// before PayPal expires it.
type PayPalClient struct {
	ClientID     string
	ClientSecret string
	BaseURL      string
	httpClient   httpclient.HttpClientInterface
	tokenCache   *cache.Cache
}

func NewPayPalClient(clientID, clientSecret, baseURL string) *PayPalClient {
	return &PayPalClient{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		BaseURL:      baseURL,
		httpClient:   httpclient.DefaultClient(),
		tokenCache:   cache.New(5*time.Minute, 10*time.Minute),
	}
}

func (c *PayPalClient) Name() string {
	return PayPalProviderName
}

func (c *PayPalClient) Status(ctx context.Context, token string, _ data.JSONMap) (StatusResult, CallRecord) {
	requestURL, err := url.JoinPath(c.BaseURL, paypalCheckoutOrdersPath, token)
	if err != nil {
		requestURL = c.BaseURL + paypalCheckoutOrdersPath + "/" + token
	}

	headers := map[string]string{
		"Content-Type": "application/json",
	}

	start := time.Now()

	var errorMessage *string
	var responseStatus *int
	var responseHeaders map[string]string
	var responseBody data.JSONMap

	if c.ClientID == "" || c.ClientSecret == "" {
		errorMessage = utils.StringPtr("PayPal credentials are not configured")
	} else if accessToken, tokenErr := c.fetchAccessToken(ctx); tokenErr != nil {
		errorMessage = utils.StringPtr(fmt.Sprintf("token_error: %v", tokenErr))
	} else {
		headers["Authorization"] = "Bearer " + accessToken

		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if reqErr != nil {
			errorMessage = utils.StringPtr(reqErr.Error())
		} else {
			for name, value := range headers {
				req.Header.Set(name, value)
			}
			status, respHeaders, respBody, doErr := roundTrip(c.httpClient, req)
			if doErr != nil {
				errorMessage = utils.StringPtr(doErr.Error())
			} else {
				responseStatus = &status
				responseHeaders = respHeaders
				responseBody = respBody
			}
		}
	}

	latencyMS := time.Since(start).Milliseconds()

	providerStatus := stringField(responseBody, "status")
	var mappedStatus *data.PaymentStatus
	if providerStatus != nil {
		if mapped, ok := paypalOrderStatuses[strings.ToUpper(*providerStatus)]; ok {
			mappedStatus = &mapped
		}
	}
	if errorMessage == nil && providerStatus == nil {
		errorMessage = missingStatusError(responseStatus)
	}

	result := StatusResult{
		Success:        errorMessage == nil && providerStatus != nil,
		ProviderStatus: providerStatus,
		MappedStatus:   mappedStatus,
		ResponseCode:   responseStatus,
		RawPayload:     responseBody,
		ErrorMessage:   errorMessage,
	}
	callRecord := CallRecord{
		RequestURL:      requestURL,
		RequestHeaders:  headers,
		ResponseStatus:  responseStatus,
		ResponseHeaders: responseHeaders,
		ResponseBody:    responseBody,
		ErrorMessage:    errorMessage,
		LatencyMS:       latencyMS,
	}
	return result, callRecord
}

// fetchAccessToken returns a cached client-credentials token, or trades the
// configured credentials for a fresh one.
func (c *PayPalClient) fetchAccessToken(ctx context.Context) (string, error) {
	if cached, found := c.tokenCache.Get(paypalAccessTokenCacheKey); found {
		if accessToken, ok := cached.(string); ok {
			return accessToken, nil
		}
	}

	tokenURL, err := url.JoinPath(c.BaseURL, paypalOAuthTokenPath)
	if err != nil {
		return "", fmt.Errorf("building token path: %w", err)
	}

	form := url.Values{"grant_type": []string{"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	credentials := base64.StdEncoding.EncodeToString([]byte(c.ClientID + ":" + c.ClientSecret))
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting access token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d fetching access token", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", fmt.Errorf("decoding access token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("access token missing from response")
	}

	if ttl := time.Duration(tokenResp.ExpiresIn)*time.Second - paypalTokenTTLSafety; ttl > 0 {
		c.tokenCache.Set(paypalAccessTokenCacheKey, tokenResp.AccessToken, ttl)
	}

	return tokenResp.AccessToken, nil
}

var _ Client = (*PayPalClient)(nil)
