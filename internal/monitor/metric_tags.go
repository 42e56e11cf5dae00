package monitor

type MetricTag string

const (
	SuccessfulQueryDurationTag MetricTag = "successful_queries_duration"
	FailureQueryDurationTag    MetricTag = "failure_queries_duration"
	HttpRequestDurationTag     MetricTag = "requests_duration_seconds"
	// Reconciliation outcomes:
	PaymentsReconciledCounterTag MetricTag = "payments_reconciled_counter"
	// Provider API requests
	ProviderAPIRequestDurationTag MetricTag = "provider_api_request_duration_seconds"
	ProviderAPIRequestsTotalTag   MetricTag = "provider_api_requests_total"
	// CRM push requests
	CRMPushRequestDurationTag MetricTag = "crm_push_request_duration_seconds"
	CRMPushRequestsTotalTag   MetricTag = "crm_push_requests_total"
)

// DB connection pool stats. These are function metrics registered per pool at
// startup under the db subservice, so they are not part of ListAll.
const (
	DBMaxOpenConnectionsTag       MetricTag = "max_open_connections"
	DBInUseConnectionsTag         MetricTag = "in_use_connections"
	DBIdleConnectionsTag          MetricTag = "idle_connections"
	DBWaitCountTotalTag           MetricTag = "wait_count_total"
	DBWaitDurationSecondsTotalTag MetricTag = "wait_duration_seconds_total"
	DBMaxIdleClosedTotalTag       MetricTag = "max_idle_closed_total"
	DBMaxIdleTimeClosedTotalTag   MetricTag = "max_idle_time_closed_total"
	DBMaxLifetimeClosedTotalTag   MetricTag = "max_lifetime_closed_total"
)

func (m MetricTag) ListAll() []MetricTag {
	return []MetricTag{
		SuccessfulQueryDurationTag,
		FailureQueryDurationTag,
		HttpRequestDurationTag,
		PaymentsReconciledCounterTag,
		ProviderAPIRequestDurationTag,
		ProviderAPIRequestsTotalTag,
		CRMPushRequestDurationTag,
		CRMPushRequestsTotalTag,
	}
}
