package provider

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ninjapay/payments-reconciler/internal/data"
	"github.com/ninjapay/payments-reconciler/internal/serve/httpclient"
	"github.com/ninjapay/payments-reconciler/internal/utils"
)

// roundTrip executes one request and normalizes the response into the shapes
// the event log stores. The returned error covers transport-level failures
// only; HTTP error statuses come back as a regular response.
func roundTrip(httpClient httpclient.HttpClientInterface, req *http.Request) (int, map[string]string, data.JSONMap, error) {
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, err
	}

	return resp.StatusCode, flattenHeaders(resp.Header), decodeBody(resp.Header.Get("Content-Type"), raw), nil
}

func flattenHeaders(header http.Header) map[string]string {
	flat := make(map[string]string, len(header))
	for name, values := range header {
		flat[name] = strings.Join(values, ", ")
	}
	return flat
}

// decodeBody parses a JSON body into a map. Anything else, including JSON the
// provider mislabeled or broke, is preserved under a "raw" key so the event
// log still captures what came over the wire.
func decodeBody(contentType string, raw []byte) data.JSONMap {
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

// missingStatusError explains a response that completed but carried no status
// field, typically an HTTP error body, so the failed check never ends up with
// an empty error message.
func missingStatusError(responseStatus *int) *string {
	if responseStatus == nil {
		return utils.StringPtr("status missing from response")
	}
	return utils.StringPtr(fmt.Sprintf("unexpected status %d", *responseStatus))
}

// stringField reads a top-level JSON field as a string, tolerating the
// numeric identifiers some providers emit. Missing or empty fields are nil.
func stringField(body data.JSONMap, key string) *string {
	if body == nil {
		return nil
	}

	switch v := body[key].(type) {
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
