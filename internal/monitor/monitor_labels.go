package monitor

type HttpRequestLabels struct {
	Status string
	Route  string
	Method string
}

type DBQueryLabels struct {
	QueryType string
}

type PaymentLabels struct {
	Provider string
	Status   string
}

func (p PaymentLabels) ToMap() map[string]string {
	return map[string]string{
		"provider": p.Provider,
		"status":   p.Status,
	}
}

var PaymentLabelNames = []string{"provider", "status"}

type ProviderLabels struct {
	Provider   string
	Operation  string
	Status     string
	StatusCode string
}

func (p ProviderLabels) ToMap() map[string]string {
	return map[string]string{
		"provider":    p.Provider,
		"operation":   p.Operation,
		"status":      p.Status,
		"status_code": p.StatusCode,
	}
}

var ProviderLabelNames = []string{"provider", "operation", "status", "status_code"}

type CRMPushLabels struct {
	Operation  string
	Status     string
	StatusCode string
}

func (c CRMPushLabels) ToMap() map[string]string {
	return map[string]string{
		"operation":   c.Operation,
		"status":      c.Status,
		"status_code": c.StatusCode,
	}
}

var CRMPushLabelNames = []string{"operation", "status", "status_code"}
