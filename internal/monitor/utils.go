package monitor

import (
	"fmt"
)

const (
	noHTTPStatus  = "0"
	successStatus = "success"
	errorStatus   = "error"
)

// ParseRequestStatus converts the outcome of an outbound API call into the
// status and status_code label values. Transport failures carry no HTTP
// status and are labeled with code "0".
func ParseRequestStatus(succeeded bool, httpStatus int) (status, statusCode string) {
	status = successStatus
	if !succeeded {
		status = errorStatus
	}
	if httpStatus == 0 {
		return status, noHTTPStatus
	}
	return status, fmt.Sprint(httpStatus)
}
