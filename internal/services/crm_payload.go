package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ninjapay/payments-reconciler/internal/data"
)

// BuildCRMPayload assembles the body pushed to the CRM for a payment. The
// field names are the CRM's own contract and must not be renamed here.
func BuildCRMPayload(payment *data.Payment) data.JSONMap {
	var rut any
	if payment.OrderCustomerRut != nil && *payment.OrderCustomerRut != "" {
		rut = *payment.OrderCustomerRut
	}
	if rut == nil {
		rut = presentValue(payment.Context, "customer_rut")
	}
	if rut == nil {
		rut = presentValue(payment.ProviderMetadata, "rut")
	}

	name := presentValue(payment.Context, "customer_name")
	if name == nil {
		name = presentValue(payment.ProviderMetadata, "name")
	}
	if name == nil {
		name = payment.Provider
	}

	return data.JSONMap{
		"rutDepositante":    sanitizeRut(rut),
		"nombreDepositante": name,
		"paymentMethod":     payment.Provider,
		"transactionId":     transactionID(payment),
		"monto":             strconv.FormatInt(payment.AmountMinor, 10),
		"listContrato":      []any{1},
		"listCuota":         nil,
	}
}

// transactionID picks the most stable identifier available for the CRM: the
// order id, then the provider authorization code, then the provider token,
// then the internal payment id.
func transactionID(payment *data.Payment) string {
	switch {
	case payment.PaymentOrderID != nil:
		return strconv.FormatInt(*payment.PaymentOrderID, 10)
	case payment.AuthorizationCode != nil && *payment.AuthorizationCode != "":
		return *payment.AuthorizationCode
	case payment.Token != nil && *payment.Token != "":
		return *payment.Token
	default:
		return strconv.FormatInt(payment.ID, 10)
	}
}

// sanitizeRut strips the dots and dash from a Chilean rut and trims
// surrounding whitespace. Interior whitespace is left alone. Blank values
// come back nil so the JSON field serializes as null.
func sanitizeRut(value any) any {
	if value == nil {
		return nil
	}

	text := strings.NewReplacer(".", "", "-", "").Replace(stringify(value))
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return text
}

// presentValue returns m[key] when it holds something usable: present, not
// nil and not an empty string. Other zero-ish values pass through untouched.
func presentValue(m data.JSONMap, key string) any {
	if m == nil {
		return nil
	}
	value, ok := m[key]
	if !ok || value == nil {
		return nil
	}
	if s, isString := value.(string); isString && s == "" {
		return nil
	}
	return value
}

func stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprintf("%v", v)
	}
}
