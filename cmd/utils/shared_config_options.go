package utils

import (
	"go/types"
)

// ReconcileOptions carries the provider polling loop tunables, ingested from
// `RECONCILE_*` and `ABANDONED_*`.
type ReconcileOptions struct {
	Enabled                 bool
	IntervalSeconds         int
	AttemptOffsets          []int64
	BatchSize               int
	PollingProviders        []string
	AbandonedTimeoutMinutes int
}

// ReconcileConfigOptions returns the config options for the provider polling loop.
func ReconcileConfigOptions(opts *ReconcileOptions) []*ConfigOption {
	return []*ConfigOption{
		{
			Name:        "reconcile-enabled",
			Usage:       "Enables the provider polling loop. When disabled the service only serves HTTP and, if enabled, dispatches CRM work.",
			OptType:     types.Bool,
			ConfigKey:   &opts.Enabled,
			FlagDefault: true,
			Required:    false,
		},
		{
			Name:        "reconcile-interval-seconds",
			Usage:       "Seconds between two iterations of the polling and CRM dispatch loops.",
			OptType:     types.Int,
			ConfigKey:   &opts.IntervalSeconds,
			FlagDefault: 15,
			Required:    false,
		},
		{
			Name:           "reconcile-attempt-offsets",
			Usage:          "Comma-separated offsets in seconds since the payment was created, after which the k-th status check becomes due.",
			OptType:        types.String,
			ConfigKey:      &opts.AttemptOffsets,
			CustomSetValue: SetConfigOptionInt64List,
			FlagDefault:    "60,180,900,1800",
			Required:       false,
		},
		{
			Name:        "reconcile-batch-size",
			Usage:       "Maximum number of rows claimed per loop iteration. Shared by the polling and CRM dispatch loops.",
			OptType:     types.Int,
			ConfigKey:   &opts.BatchSize,
			FlagDefault: 100,
			Required:    false,
		},
		{
			Name:           "reconcile-polling-providers",
			Usage:          `Comma-separated provider names the poller reconciles. Options: "webpay", "stripe", "paypal".`,
			OptType:        types.String,
			ConfigKey:      &opts.PollingProviders,
			CustomSetValue: SetConfigOptionProviderNames,
			FlagDefault:    "webpay,stripe,paypal",
			Required:       false,
		},
		{
			Name:        "abandoned-timeout-minutes",
			Usage:       "Minutes a payment may sit PENDING with no status check before the sweep marks it ABANDONED.",
			OptType:     types.Int,
			ConfigKey:   &opts.AbandonedTimeoutMinutes,
			FlagDefault: 60,
			Required:    false,
		},
	}
}

// CRMOptions carries the CRM dispatch loop tunables, ingested from `CRM_*`.
type CRMOptions struct {
	Enabled         bool
	BaseURL         string
	PagarPath       string
	AuthBearer      string
	TimeoutSeconds  int
	RetryBackoff    []int64
	NotifyAbandoned bool
}

// CRMConfigOptions returns the config options for the CRM dispatch loop.
func CRMConfigOptions(opts *CRMOptions) []*ConfigOption {
	return []*ConfigOption{
		{
			Name:        "crm-enabled",
			Usage:       "Enables the CRM dispatch loop.",
			OptType:     types.Bool,
			ConfigKey:   &opts.Enabled,
			FlagDefault: true,
			Required:    false,
		},
		{
			Name:      "crm-base-url",
			Usage:     "Base URL of the CRM ingestion API. Required when the CRM dispatch loop is enabled.",
			OptType:   types.String,
			ConfigKey: &opts.BaseURL,
			Required:  false,
		},
		{
			Name:        "crm-pagar-path",
			Usage:       "Path of the CRM payment-notification endpoint, appended to the base URL.",
			OptType:     types.String,
			ConfigKey:   &opts.PagarPath,
			FlagDefault: "/pagar",
			Required:    false,
		},
		{
			Name:      "crm-auth-bearer",
			Usage:     "Bearer token sent on every CRM call. When empty no Authorization header is sent.",
			OptType:   types.String,
			ConfigKey: &opts.AuthBearer,
			Required:  false,
		},
		{
			Name:        "crm-timeout-seconds",
			Usage:       "HTTP timeout in seconds for CRM calls.",
			OptType:     types.Int,
			ConfigKey:   &opts.TimeoutSeconds,
			FlagDefault: 10,
			Required:    false,
		},
		{
			Name:           "crm-retry-backoff",
			Usage:          "Comma-separated delays in seconds before CRM retry k+1. An item that fails with no delays left becomes permanently FAILED.",
			OptType:        types.String,
			ConfigKey:      &opts.RetryBackoff,
			CustomSetValue: SetConfigOptionInt64List,
			FlagDefault:    "60,300,1800",
			Required:       false,
		},
		{
			Name:        "crm-notify-abandoned",
			Usage:       "Also enqueue a CRM notification when a payment is marked ABANDONED.",
			OptType:     types.Bool,
			ConfigKey:   &opts.NotifyAbandoned,
			FlagDefault: false,
			Required:    false,
		},
	}
}

// ProviderOptions carries the provider adapter credentials, ingested from
// `STRIPE_*`, `PAYPAL_*` and `WEBPAY_*`.
type ProviderOptions struct {
	StripeAPIKey  string
	StripeAPIBase string

	PayPalClientID     string
	PayPalClientSecret string
	PayPalBaseURL      string

	WebpayStatusURLTemplate string
	WebpayAPIKeyID          string
	WebpayAPIKeySecret      string
	WebpayCommerceCode      string
}

// ProviderConfigOptions returns the config options for the provider adapters.
func ProviderConfigOptions(opts *ProviderOptions) []*ConfigOption {
	return []*ConfigOption{
		// Stripe
		{
			Name:      "stripe-api-key",
			Usage:     "Secret API key used to read Stripe PaymentIntents.",
			OptType:   types.String,
			ConfigKey: &opts.StripeAPIKey,
			Required:  false,
		},
		{
			Name:           "stripe-api-base",
			Usage:          "Base URL of the Stripe API.",
			OptType:        types.String,
			ConfigKey:      &opts.StripeAPIBase,
			CustomSetValue: SetConfigOptionURLString,
			FlagDefault:    "https://api.stripe.com",
			Required:       false,
		},
		// PayPal
		{
			Name:      "paypal-client-id",
			Usage:     "Client ID of the PayPal REST application.",
			OptType:   types.String,
			ConfigKey: &opts.PayPalClientID,
			Required:  false,
		},
		{
			Name:      "paypal-client-secret",
			Usage:     "Client secret of the PayPal REST application.",
			OptType:   types.String,
			ConfigKey: &opts.PayPalClientSecret,
			Required:  false,
		},
		{
			Name:           "paypal-base-url",
			Usage:          "Base URL of the PayPal REST API. Defaults to the sandbox host.",
			OptType:        types.String,
			ConfigKey:      &opts.PayPalBaseURL,
			CustomSetValue: SetConfigOptionURLString,
			FlagDefault:    "https://api-m.sandbox.paypal.com",
			Required:       false,
		},
		// Webpay (Transbank)
		{
			Name:           "webpay-status-url-template",
			Usage:          "URL template of the Webpay transaction-status endpoint; {token} is replaced with the payment token. Defaults to the Transbank integration host.",
			OptType:        types.String,
			ConfigKey:      &opts.WebpayStatusURLTemplate,
			CustomSetValue: SetConfigOptionURLString,
			FlagDefault:    "https://webpay3gint.transbank.cl/rswebpaytransaction/api/webpay/v1.2/transactions/{token}",
			Required:       false,
		},
		{
			Name:      "webpay-api-key-id",
			Usage:     "Value of the Tbk-Api-Key-Id header sent on Webpay status calls.",
			OptType:   types.String,
			ConfigKey: &opts.WebpayAPIKeyID,
			Required:  false,
		},
		{
			Name:      "webpay-api-key-secret",
			Usage:     "Value of the Tbk-Api-Key-Secret header sent on Webpay status calls.",
			OptType:   types.String,
			ConfigKey: &opts.WebpayAPIKeySecret,
			Required:  false,
		},
		{
			Name:      "webpay-commerce-code",
			Usage:     "Commerce code identifying the merchant on Webpay status calls.",
			OptType:   types.String,
			ConfigKey: &opts.WebpayCommerceCode,
			Required:  false,
		},
	}
}
