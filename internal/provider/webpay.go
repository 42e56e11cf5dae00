package provider

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ninjapay/payments-reconciler/internal/data"
	"github.com/ninjapay/payments-reconciler/internal/serve/httpclient"
	"github.com/ninjapay/payments-reconciler/internal/utils"
)

// webpayTransactionStatuses maps Transbank transaction statuses to the
// canonical set.
var webpayTransactionStatuses = map[string]data.PaymentStatus{
	"AUTHORIZED":  data.AuthorizedPaymentStatus,
	"FAILED":      data.FailedPaymentStatus,
	"REJECTED":    data.FailedPaymentStatus,
	"REVERSED":    data.CanceledPaymentStatus,
	"NULLIFIED":   data.CanceledPaymentStatus,
	"PENDING":     data.PendingPaymentStatus,
	"INITIALIZED": data.PendingPaymentStatus,
}

// WebpayClient polls Transbank's Webpay REST API. The status URL is a
// template with a {token} placeholder because Transbank hosts distinct
// integration and production endpoints with different path shapes.
type WebpayClient struct {
	StatusURLTemplate string
	APIKeyID          string
	APIKeySecret      string
	CommerceCode      string
	httpClient        httpclient.HttpClientInterface
}

func NewWebpayClient(statusURLTemplate, apiKeyID, apiKeySecret, commerceCode string) *WebpayClient {
	return &WebpayClient{
		StatusURLTemplate: statusURLTemplate,
		APIKeyID:          apiKeyID,
		APIKeySecret:      apiKeySecret,
		CommerceCode:      commerceCode,
		httpClient:        httpclient.DefaultClient(),
	}
}

func (c *WebpayClient) Name() string {
	return WebpayProviderName
}

func (c *WebpayClient) Status(ctx context.Context, token string, _ data.JSONMap) (StatusResult, CallRecord) {
	requestURL := strings.ReplaceAll(c.StatusURLTemplate, "{token}", token)

	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if c.APIKeyID != "" {
		headers["Tbk-Api-Key-Id"] = c.APIKeyID
	}
	if c.APIKeySecret != "" {
		headers["Tbk-Api-Key-Secret"] = c.APIKeySecret
	}
	if c.CommerceCode != "" {
		headers["Tbk-Commerce-Code"] = c.CommerceCode
	}

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

	providerStatus := stringField(responseBody, "status")
	var mappedStatus *data.PaymentStatus
	if providerStatus != nil {
		if mapped, ok := webpayTransactionStatuses[strings.ToUpper(*providerStatus)]; ok {
			mappedStatus = &mapped
		}
	}
	if errorMessage == nil && providerStatus == nil {
		errorMessage = missingStatusError(responseStatus)
	}

	result := StatusResult{
		Success:           errorMessage == nil && providerStatus != nil,
		ProviderStatus:    providerStatus,
		MappedStatus:      mappedStatus,
		ResponseCode:      responseStatus,
		RawPayload:        responseBody,
		ErrorMessage:      errorMessage,
		AuthorizationCode: stringField(responseBody, "authorization_code"),
		StatusReason:      stringField(responseBody, "vci"),
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

var _ Client = (*WebpayClient)(nil)
