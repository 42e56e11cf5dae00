package data

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_PaymentStatus_ToPaymentStatus(t *testing.T) {
	tests := []struct {
		name   string
		actual string
		want   PaymentStatus
		err    error
	}{
		{
			name:   "valid entry",
			actual: "AUTHORIZED",
			want:   AuthorizedPaymentStatus,
			err:    nil,
		},
		{
			name:   "valid lower case",
			actual: "pending",
			want:   PendingPaymentStatus,
			err:    nil,
		},
		{
			name:   "valid weird case",
			actual: "To_CoNfIrM",
			want:   ToConfirmPaymentStatus,
			err:    nil,
		},
		{
			name:   "invalid entry",
			actual: "NOT_VALID",
			want:   "",
			err:    fmt.Errorf("invalid payment status: NOT_VALID"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToPaymentStatus(tt.actual)

			if tt.err != nil {
				require.EqualError(t, err, tt.err.Error())
				return
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func Test_PaymentStatus_TransitionTo(t *testing.T) {
	tests := []struct {
		name   string
		actual PaymentStatus
		target PaymentStatus
		err    error
	}{
		{
			name:   "provider reports intermediate state transition",
			actual: PendingPaymentStatus,
			target: ToConfirmPaymentStatus,
			err:    nil,
		},
		{
			name:   "provider authorizes pending payment transition",
			actual: PendingPaymentStatus,
			target: AuthorizedPaymentStatus,
			err:    nil,
		},
		{
			name:   "provider rejects pending payment transition",
			actual: PendingPaymentStatus,
			target: FailedPaymentStatus,
			err:    nil,
		},
		{
			name:   "customer cancels pending payment transition",
			actual: PendingPaymentStatus,
			target: CanceledPaymentStatus,
			err:    nil,
		},
		{
			name:   "pending payment times out transition",
			actual: PendingPaymentStatus,
			target: AbandonedPaymentStatus,
			err:    nil,
		},
		{
			name:   "provider authorizes confirming payment transition",
			actual: ToConfirmPaymentStatus,
			target: AuthorizedPaymentStatus,
			err:    nil,
		},
		{
			name:   "confirming payment exhausts retries transition",
			actual: ToConfirmPaymentStatus,
			target: AbandonedPaymentStatus,
			err:    nil,
		},
		{
			name:   "authorized payment gets refunded transition",
			actual: AuthorizedPaymentStatus,
			target: RefundedPaymentStatus,
			err:    nil,
		},
		{
			name:   "invalid transition 1",
			actual: PendingPaymentStatus,
			target: RefundedPaymentStatus,
			err:    fmt.Errorf("cannot transition from PENDING to REFUNDED"),
		},
		{
			name:   "invalid transition 2",
			actual: ToConfirmPaymentStatus,
			target: PendingPaymentStatus,
			err:    fmt.Errorf("cannot transition from TO_CONFIRM to PENDING"),
		},
		{
			name:   "invalid transition 3",
			actual: AuthorizedPaymentStatus,
			target: FailedPaymentStatus,
			err:    fmt.Errorf("cannot transition from AUTHORIZED to FAILED"),
		},
		{
			name:   "invalid transition 4",
			actual: FailedPaymentStatus,
			target: AuthorizedPaymentStatus,
			err:    fmt.Errorf("cannot transition from FAILED to AUTHORIZED"),
		},
		{
			name:   "invalid transition 5",
			actual: AbandonedPaymentStatus,
			target: PendingPaymentStatus,
			err:    fmt.Errorf("cannot transition from ABANDONED to PENDING"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.actual.TransitionTo(tt.target)
			if tt.err != nil {
				require.EqualError(t, err, tt.err.Error())
				return
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func Test_PaymentStatus_SourceStatuses(t *testing.T) {
	tests := []struct {
		name                   string
		targetStatus           PaymentStatus
		expectedSourceStatuses []PaymentStatus
	}{
		{
			name:                   "Pending",
			targetStatus:           PendingPaymentStatus,
			expectedSourceStatuses: []PaymentStatus{},
		},
		{
			name:                   "ToConfirm",
			targetStatus:           ToConfirmPaymentStatus,
			expectedSourceStatuses: []PaymentStatus{PendingPaymentStatus},
		},
		{
			name:                   "Authorized",
			targetStatus:           AuthorizedPaymentStatus,
			expectedSourceStatuses: []PaymentStatus{PendingPaymentStatus, ToConfirmPaymentStatus},
		},
		{
			name:                   "Failed",
			targetStatus:           FailedPaymentStatus,
			expectedSourceStatuses: []PaymentStatus{PendingPaymentStatus, ToConfirmPaymentStatus},
		},
		{
			name:                   "Canceled",
			targetStatus:           CanceledPaymentStatus,
			expectedSourceStatuses: []PaymentStatus{PendingPaymentStatus, ToConfirmPaymentStatus},
		},
		{
			name:                   "Refunded",
			targetStatus:           RefundedPaymentStatus,
			expectedSourceStatuses: []PaymentStatus{AuthorizedPaymentStatus},
		},
		{
			name:                   "Abandoned",
			targetStatus:           AbandonedPaymentStatus,
			expectedSourceStatuses: []PaymentStatus{PendingPaymentStatus, ToConfirmPaymentStatus},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expectedSourceStatuses, tt.targetStatus.SourceStatuses())
		})
	}
}

func Test_PaymentStatus_IsTerminal(t *testing.T) {
	terminal := map[PaymentStatus]bool{
		PendingPaymentStatus:    false,
		ToConfirmPaymentStatus:  false,
		AuthorizedPaymentStatus: true,
		FailedPaymentStatus:     true,
		CanceledPaymentStatus:   true,
		RefundedPaymentStatus:   true,
		AbandonedPaymentStatus:  true,
	}

	for _, status := range PaymentStatuses() {
		t.Run(string(status), func(t *testing.T) {
			require.Equal(t, terminal[status], status.IsTerminal())
		})
	}
}

func Test_PaymentStatus_TimestampColumn(t *testing.T) {
	tests := []struct {
		status PaymentStatus
		want   string
	}{
		{PendingPaymentStatus, ""},
		{ToConfirmPaymentStatus, ""},
		{AuthorizedPaymentStatus, "first_authorized_at"},
		{FailedPaymentStatus, "failed_at"},
		{CanceledPaymentStatus, "canceled_at"},
		{RefundedPaymentStatus, "refunded_at"},
		{AbandonedPaymentStatus, "abandoned_at"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			require.Equal(t, tt.want, tt.status.TimestampColumn())
		})
	}
}

func Test_PaymentStatus_PaymentStatuses(t *testing.T) {
	expectedStatuses := []PaymentStatus{PendingPaymentStatus, ToConfirmPaymentStatus, AuthorizedPaymentStatus, FailedPaymentStatus, CanceledPaymentStatus, RefundedPaymentStatus, AbandonedPaymentStatus}
	require.Equal(t, expectedStatuses, PaymentStatuses())
}

func Test_PaymentStatus_PaymentNonTerminalStatuses(t *testing.T) {
	expectedStatuses := []PaymentStatus{PendingPaymentStatus, ToConfirmPaymentStatus}
	require.Equal(t, expectedStatuses, PaymentNonTerminalStatuses())
}
