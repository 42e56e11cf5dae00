package provider

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ninjapay/payments-reconciler/internal/data"
	"github.com/ninjapay/payments-reconciler/internal/serve/httpclient"
	"github.com/ninjapay/payments-reconciler/internal/utils"
)

const (
	stripePaymentIntentsPath   = "/v1/payment_intents"
	stripeCheckoutSessionsPath = "/v1/checkout/sessions"
)

// stripeIntentStatuses maps PaymentIntent statuses to the canonical set.
// https://docs.stripe.com/api/payment_intents/object#payment_intent_object-status
var stripeIntentStatuses = map[string]data.PaymentStatus{
	"succeeded":               data.AuthorizedPaymentStatus,
	"processing":              data.ToConfirmPaymentStatus,
	"requires_payment_method": data.FailedPaymentStatus,
	"requires_action":         data.ToConfirmPaymentStatus,
	"requires_capture":        data.AuthorizedPaymentStatus,
	"canceled":                data.CanceledPaymentStatus,
}

// stripeSessionStatuses maps Checkout Session payment_status values.
// https://docs.stripe.com/api/checkout/sessions/object#checkout_session_object-payment_status
var stripeSessionStatuses = map[string]data.PaymentStatus{
	"paid":                data.AuthorizedPaymentStatus,
	"no_payment_required": data.AuthorizedPaymentStatus,
	"unpaid":              data.PendingPaymentStatus,
}

// StripeClient polls Stripe for payment state. Tokens may be PaymentIntent
// ids or Checkout Session ids (cs_…); the session shape reports its outcome
// under payment_status instead of status.
type StripeClient struct {
	APIKey     string
	BaseURL    string
	httpClient httpclient.HttpClientInterface
}

func NewStripeClient(apiKey, baseURL string) *StripeClient {
	return &StripeClient{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		httpClient: httpclient.DefaultClient(),
	}
}

func (c *StripeClient) Name() string {
	return StripeProviderName
}

func (c *StripeClient) Status(ctx context.Context, token string, _ data.JSONMap) (StatusResult, CallRecord) {
	path := stripePaymentIntentsPath
	statuses := stripeIntentStatuses
	statusKey := "status"
	if strings.HasPrefix(token, "cs_") {
		path = stripeCheckoutSessionsPath
		statuses = stripeSessionStatuses
		statusKey = "payment_status"
	}

	requestURL, err := url.JoinPath(c.BaseURL, path, token)
	if err != nil {
		requestURL = c.BaseURL + path + "/" + token
	}

	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}

	if c.APIKey == "" {
		errorMessage := utils.StringPtr("Stripe API key is not configured")
		return StatusResult{ErrorMessage: errorMessage},
			CallRecord{RequestURL: requestURL, RequestHeaders: headers, ErrorMessage: errorMessage}
	}
	headers["Authorization"] = "Basic " + base64.StdEncoding.EncodeToString([]byte(c.APIKey+":"))

	start := time.Now()

	var errorMessage *string
	var responseStatus *int
	var responseHeaders map[string]string
	var responseBody data.JSONMap

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		errorMessage = utils.StringPtr(err.Error())
	} else {
		for name, value := range headers {
			req.Header.Set(name, value)
		}
		status, respHeaders, respBody, reqErr := roundTrip(c.httpClient, req)
		if reqErr != nil {
			errorMessage = utils.StringPtr(reqErr.Error())
		} else {
			responseStatus = &status
			responseHeaders = respHeaders
			responseBody = respBody
		}
	}

	latencyMS := time.Since(start).Milliseconds()

	providerStatus := stringField(responseBody, statusKey)
	var mappedStatus *data.PaymentStatus
	if providerStatus != nil {
		if mapped, ok := statuses[strings.ToLower(*providerStatus)]; ok {
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

var _ Client = (*StripeClient)(nil)
