package monitor

// DefaultNamespace is the prometheus namespace shared by all metrics of this service.
const DefaultNamespace = "reconciler"

type Subservice string

const DBSubservice Subservice = "db"

type FuncMetricType string

const (
	FuncGaugeType   FuncMetricType = "gauge"
	FuncCounterType FuncMetricType = "counter"
)

// FuncMetricOptions describes a metric whose value is pulled from Function at
// scrape time. Labels are attached as constant labels.
type FuncMetricOptions struct {
	Namespace  string
	Subservice string
	Name       string
	Help       string
	Labels     map[string]string
	Function   func() float64
}
