package provider

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ninjapay/payments-reconciler/internal/data"
	httpclientMocks "github.com/ninjapay/payments-reconciler/internal/serve/httpclient/mocks"
)

func newWebpayClientWithMock(t *testing.T) (*WebpayClient, *httpclientMocks.HttpClientMock) {
	httpClientMock := httpclientMocks.NewHttpClientMock(t)

	return &WebpayClient{
		StatusURLTemplate: "http://localhost:8080/rswebpaytransaction/api/webpay/v1.2/transactions/{token}",
		APIKeyID:          "597055555532",
		APIKeySecret:      "579B532A7440BB0C",
		CommerceCode:      "597055555532",
		httpClient:        httpClientMock,
	}, httpClientMock
}

func Test_WebpayClient_Status(t *testing.T) {
	ctx := context.Background()

	t.Run("substitutes the token and sends transbank headers", func(t *testing.T) {
		wc, httpClientMock := newWebpayClientWithMock(t)
		httpClientMock.
			On("Do", mock.Anything).
			Return(jsonResponse(http.StatusOK, `{
				"status": "AUTHORIZED",
				"authorization_code": "1213",
				"response_code": 0,
				"vci": "TSY",
				"amount": 149900
			}`), nil).
			Run(func(args mock.Arguments) {
				req, ok := args.Get(0).(*http.Request)
				require.True(t, ok)

				assert.Equal(t, "http://localhost:8080/rswebpaytransaction/api/webpay/v1.2/transactions/01abf2d5", req.URL.String())
				assert.Equal(t, "597055555532", req.Header.Get("Tbk-Api-Key-Id"))
				assert.Equal(t, "579B532A7440BB0C", req.Header.Get("Tbk-Api-Key-Secret"))
				assert.Equal(t, "597055555532", req.Header.Get("Tbk-Commerce-Code"))
			}).
			Once()

		result, callRecord := wc.Status(ctx, "01abf2d5", nil)

		assert.True(t, result.Success)
		require.NotNil(t, result.MappedStatus)
		assert.Equal(t, data.AuthorizedPaymentStatus, *result.MappedStatus)
		require.NotNil(t, result.AuthorizationCode)
		assert.Equal(t, "1213", *result.AuthorizationCode)
		require.NotNil(t, result.StatusReason)
		assert.Equal(t, "TSY", *result.StatusReason)

		// Raw secret stays on the record; the event-log writer masks it.
		assert.Equal(t, "579B532A7440BB0C", callRecord.RequestHeaders["Tbk-Api-Key-Secret"])
	})

	t.Run("maps statuses case-insensitively", func(t *testing.T) {
		wc, httpClientMock := newWebpayClientWithMock(t)
		httpClientMock.
			On("Do", mock.Anything).
			Return(jsonResponse(http.StatusOK, `{"status": "initialized"}`), nil).
			Once()

		result, _ := wc.Status(ctx, "01abf2d5", nil)

		assert.True(t, result.Success)
		require.NotNil(t, result.MappedStatus)
		assert.Equal(t, data.PendingPaymentStatus, *result.MappedStatus)
		assert.Nil(t, result.AuthorizationCode)
	})

	t.Run("missing credentials send only the content type", func(t *testing.T) {
		wc, httpClientMock := newWebpayClientWithMock(t)
		wc.APIKeyID = ""
		wc.APIKeySecret = ""
		wc.CommerceCode = ""

		httpClientMock.
			On("Do", mock.Anything).
			Return(jsonResponse(http.StatusUnauthorized, `{"error": "Not Authorized"}`), nil).
			Run(func(args mock.Arguments) {
				req, ok := args.Get(0).(*http.Request)
				require.True(t, ok)
				assert.Empty(t, req.Header.Get("Tbk-Api-Key-Secret"))
			}).
			Once()

		result, _ := wc.Status(ctx, "01abf2d5", nil)

		assert.False(t, result.Success)
		require.NotNil(t, result.ErrorMessage)
		assert.Equal(t, "unexpected status 401", *result.ErrorMessage)
		require.NotNil(t, result.ResponseCode)
		assert.Equal(t, http.StatusUnauthorized, *result.ResponseCode)
	})

	t.Run("transport error populates the error message", func(t *testing.T) {
		wc, httpClientMock := newWebpayClientWithMock(t)
		httpClientMock.
			On("Do", mock.Anything).
			Return(nil, errors.New("dial tcp: i/o timeout")).
			Once()

		result, _ := wc.Status(ctx, "01abf2d5", nil)

		assert.False(t, result.Success)
		require.NotNil(t, result.ErrorMessage)
		assert.Equal(t, "dial tcp: i/o timeout", *result.ErrorMessage)
	})
}
