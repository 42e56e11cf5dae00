package provider

import (
	"context"
	"sort"

	"github.com/ninjapay/payments-reconciler/internal/data"
)

// Provider keys as they appear in the payment ledger's provider column.
const (
	StripeProviderName = "stripe"
	PayPalProviderName = "paypal"
	WebpayProviderName = "webpay"
)

// StatusResult is the normalized outcome of one status poll. Success is false
// only when the exchange itself broke down (transport error, or a response the
// adapter could not extract a raw status from); an unknown-but-present raw
// status keeps Success true with a nil MappedStatus.
type StatusResult struct {
	Success           bool
	ProviderStatus    *string
	MappedStatus      *data.PaymentStatus
	ResponseCode      *int
	RawPayload        data.JSONMap
	ErrorMessage      *string
	AuthorizationCode *string
	StatusReason      *string
}

// CallRecord captures the HTTP exchange behind a StatusResult for the event
// log. Headers are raw; masking happens in the event-log writer.
type CallRecord struct {
	RequestURL      string
	RequestHeaders  map[string]string
	RequestBody     data.JSONMap
	ResponseStatus  *int
	ResponseHeaders map[string]string
	ResponseBody    data.JSONMap
	ErrorMessage    *string
	LatencyMS       int64
}

// Client is implemented once per PSP. Status never returns a Go error: every
// failure mode is folded into the result and the call record so the poller
// can persist it and move on.
type Client interface {
	Name() string
	Status(ctx context.Context, token string, paymentContext data.JSONMap) (StatusResult, CallRecord)
}

// Registry maps a payment's provider column to the adapter that resolves its
// status. Built once at startup; lookups are read-only afterwards.
type Registry map[string]Client

func NewRegistry(clients ...Client) Registry {
	registry := make(Registry, len(clients))
	for _, client := range clients {
		registry[client.Name()] = client
	}
	return registry
}

func (r Registry) Get(name string) (Client, bool) {
	client, ok := r[name]
	return client, ok
}

// Filter returns a registry restricted to the given provider names. Names
// without a configured adapter are dropped silently; the caller decides
// whether that is worth logging.
func (r Registry) Filter(names []string) Registry {
	filtered := make(Registry, len(names))
	for _, name := range names {
		if client, ok := r[name]; ok {
			filtered[name] = client
		}
	}
	return filtered
}

// Names returns the registered provider names, sorted for stable logs.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
