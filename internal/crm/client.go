package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ninjapay/payments-reconciler/internal/data"
	"github.com/ninjapay/payments-reconciler/internal/serve/httpclient"
	"github.com/ninjapay/payments-reconciler/internal/utils"
)

// SendResult is the normalized outcome of one CRM push. StatusCode 0 means
// the request never completed. Headers are raw; the event-log writer masks.
type SendResult struct {
	StatusCode      int
	CRMID           *string
	ErrorMessage    *string
	LatencyMS       int64
	RequestHeaders  map[string]string
	RequestBody     data.JSONMap
	ResponseHeaders map[string]string
	ResponseBody    data.JSONMap
}

// Succeeded reports whether the CRM accepted the push. Any 2xx counts.
func (r SendResult) Succeeded() bool {
	return r.ErrorMessage == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

//go:generate mockery --name=ClientInterface --case=underscore --structname=MockClient --inpackage
type ClientInterface interface {
	Endpoint() string
	Send(ctx context.Context, payload data.JSONMap) SendResult
}

// Client pushes reconciled payment outcomes to the CRM over HTTP. Send never
// returns a Go error: the sender loop persists every outcome, successful or
// not, and schedules retries from the result alone.
type Client struct {
	BaseURL     string
	PagarPath   string
	BearerToken string
	httpClient  httpclient.HttpClientInterface
}

func NewClient(baseURL, pagarPath, bearerToken string, timeoutSeconds int) *Client {
	client := &Client{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		PagarPath:   pagarPath,
		BearerToken: bearerToken,
		httpClient:  httpclient.DefaultClient(),
	}
	if timeoutSeconds > 0 {
		client.httpClient = &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second}
	}
	return client
}

func (c *Client) Endpoint() string {
	return c.BaseURL + c.PagarPath
}

func (c *Client) Send(ctx context.Context, payload data.JSONMap) SendResult {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if c.BearerToken != "" {
		headers["Authorization"] = "Bearer " + c.BearerToken
	}

	result := SendResult{
		RequestHeaders: headers,
		RequestBody:    payload,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		result.ErrorMessage = utils.StringPtr(fmt.Sprintf("encoding payload: %v", err))
		return result
	}

	start := time.Now()
	defer func() {
		result.LatencyMS = time.Since(start).Milliseconds()
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		result.ErrorMessage = utils.StringPtr(err.Error())
		result.ResponseBody = data.JSONMap{"error": err.Error()}
		return result
	}
	for name, value := range headers {
		req.Header.Set(name, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		result.ErrorMessage = utils.StringPtr(err.Error())
		result.ResponseBody = data.JSONMap{"error": err.Error()}
		return result
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.ResponseHeaders = make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		result.ResponseHeaders[name] = strings.Join(values, ", ")
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		result.ErrorMessage = utils.StringPtr(err.Error())
		result.ResponseBody = data.JSONMap{"error": err.Error()}
		return result
	}

	result.ResponseBody = decodeResponseBody(resp.Header.Get("Content-Type"), raw)
	if result.ResponseBody == nil {
		// Bodyless responses still leave a trail in the event log.
		result.ResponseBody = data.JSONMap{"status_code": resp.StatusCode}
	}
	result.CRMID = crmIDFromBody(result.ResponseBody)

	return result
}

func decodeResponseBody(contentType string, raw []byte) data.JSONMap {
	if len(raw) == 0 {
		return nil
	}

	if strings.HasPrefix(strings.ToLower(contentType), "application/json") {
		var body data.JSONMap
		if err := json.Unmarshal(raw, &body); err == nil {
			return body
		}
	}

	return data.JSONMap{"raw": string(raw)}
}

// crmIDFromBody extracts the identifier the CRM echoes on success. Some CRM
// deployments return it numeric.
func crmIDFromBody(body data.JSONMap) *string {
	switch v := body["id"].(type) {
	case string:
		if v == "" {
			return nil
		}
		return &v
	case float64:
		s := strconv.FormatFloat(v, 'f', -1, 64)
		return &s
	}
	return nil
}

var _ ClientInterface = (*Client)(nil)
