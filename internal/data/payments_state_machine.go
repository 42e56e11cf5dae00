package data

import (
	"fmt"
	"strings"
)

type PaymentStatus string

const (
	PendingPaymentStatus    PaymentStatus = "PENDING"
	ToConfirmPaymentStatus  PaymentStatus = "TO_CONFIRM"
	AuthorizedPaymentStatus PaymentStatus = "AUTHORIZED"
	FailedPaymentStatus     PaymentStatus = "FAILED"
	CanceledPaymentStatus   PaymentStatus = "CANCELED"
	RefundedPaymentStatus   PaymentStatus = "REFUNDED"
	AbandonedPaymentStatus  PaymentStatus = "ABANDONED"
)

// Validate validates the payment status
func (status PaymentStatus) Validate() error {
	switch PaymentStatus(strings.ToUpper(string(status))) {
	case PendingPaymentStatus, ToConfirmPaymentStatus, AuthorizedPaymentStatus,
		FailedPaymentStatus, CanceledPaymentStatus, RefundedPaymentStatus, AbandonedPaymentStatus:
		return nil
	default:
		return fmt.Errorf("invalid payment status: %s", status)
	}
}

// IsTerminal reports whether the payment status accepts no further provider
// transitions. REFUNDED is reachable from AUTHORIZED, but only through the
// refunds ingress, never through reconciliation.
func (status PaymentStatus) IsTerminal() bool {
	switch status {
	case AuthorizedPaymentStatus, FailedPaymentStatus, CanceledPaymentStatus,
		RefundedPaymentStatus, AbandonedPaymentStatus:
		return true
	default:
		return false
	}
}

// TransitionTo transitions the payment status to the target state
func (status PaymentStatus) TransitionTo(targetState PaymentStatus) error {
	return PaymentStateMachineWithInitialState(status).TransitionTo(targetState.State())
}

// PaymentStateMachineWithInitialState returns a state machine for Payments initialized with the given state
func PaymentStateMachineWithInitialState(initialState PaymentStatus) *StateMachine {
	transitions := map[State][]State{
		PendingPaymentStatus.State(): {
			ToConfirmPaymentStatus.State(),  // provider reports an intermediate confirmation state
			AuthorizedPaymentStatus.State(), // provider authorized the charge
			FailedPaymentStatus.State(),     // provider rejected the charge
			CanceledPaymentStatus.State(),   // customer or provider canceled the flow
			AbandonedPaymentStatus.State(),  // checks exhausted or payment timed out
		},
		ToConfirmPaymentStatus.State(): {
			AuthorizedPaymentStatus.State(),
			FailedPaymentStatus.State(),
			CanceledPaymentStatus.State(),
			AbandonedPaymentStatus.State(),
		},
		AuthorizedPaymentStatus.State(): {
			RefundedPaymentStatus.State(), // refunds ingress only
		},
	}

	return NewStateMachine(initialState.State(), transitions)
}

// PaymentStatuses returns a list of all possible payment statuses
func PaymentStatuses() []PaymentStatus {
	return []PaymentStatus{PendingPaymentStatus, ToConfirmPaymentStatus, AuthorizedPaymentStatus, FailedPaymentStatus, CanceledPaymentStatus, RefundedPaymentStatus, AbandonedPaymentStatus}
}

// PaymentNonTerminalStatuses returns the statuses the reconciliation loop is
// allowed to pick up.
func PaymentNonTerminalStatuses() []PaymentStatus {
	return []PaymentStatus{PendingPaymentStatus, ToConfirmPaymentStatus}
}

// SourceStatuses returns a list of states that the payment status can transition from given the target state
func (status PaymentStatus) SourceStatuses() []PaymentStatus {
	stateMachine := PaymentStateMachineWithInitialState(PendingPaymentStatus)
	fromStates := []PaymentStatus{}
	for _, fromState := range PaymentStatuses() {
		if stateMachine.Transitions[fromState.State()][status.State()] {
			fromStates = append(fromStates, fromState)
		}
	}
	return fromStates
}

// TimestampColumn returns the payments.payment column that records when the
// payment first reached this status, or "" for statuses that have none.
func (status PaymentStatus) TimestampColumn() string {
	switch status {
	case AuthorizedPaymentStatus:
		return "first_authorized_at"
	case FailedPaymentStatus:
		return "failed_at"
	case CanceledPaymentStatus:
		return "canceled_at"
	case RefundedPaymentStatus:
		return "refunded_at"
	case AbandonedPaymentStatus:
		return "abandoned_at"
	default:
		return ""
	}
}

// ToPaymentStatus converts a string to a PaymentStatus
func ToPaymentStatus(s string) (PaymentStatus, error) {
	err := PaymentStatus(s).Validate()
	if err != nil {
		return "", err
	}

	return PaymentStatus(strings.ToUpper(s)), nil
}

func (status PaymentStatus) State() State {
	return State(status)
}
