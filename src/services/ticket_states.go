package services

import (
	"ticketing/src/models"
	"ticketing/src/types"
)

type TicketAction string

const (
	ACTION_CONFIRM         TicketAction = "confirm"
	ACTION_CHECK_IN        TicketAction = "check_in"
	ACTION_CANCEL          TicketAction = "cancel"
	ACTION_REFUND_REQUEST  TicketAction = "refund_request"
	ACTION_COMPLETE_REFUND TicketAction = "complete_refund"
	ACTION_EXCHANGE        TicketAction = "exchange"
	ACTION_EXPIRE          TicketAction = "expire"
)

type ticketState struct {
	status    types.TicketStatus
	checkedIn bool
}

// transitions maps an action to the state it is allowed from and the status
// it leaves the ticket in. Anything not listed is rejected by Transition.
var transitions = map[TicketAction]struct {
	from ticketState
	to   types.TicketStatus
}{
	ACTION_CONFIRM:         {ticketState{types.TICKET_RESERVED, false}, types.TICKET_PURCHASED},
	ACTION_EXPIRE:          {ticketState{types.TICKET_RESERVED, false}, types.TICKET_CANCELLED},
	ACTION_CHECK_IN:        {ticketState{types.TICKET_PURCHASED, false}, types.TICKET_PURCHASED},
	ACTION_CANCEL:          {ticketState{types.TICKET_PURCHASED, false}, types.TICKET_CANCELLED},
	ACTION_REFUND_REQUEST:  {ticketState{types.TICKET_PURCHASED, false}, types.TICKET_CANCELLED},
	ACTION_EXCHANGE:        {ticketState{types.TICKET_PURCHASED, false}, types.TICKET_PURCHASED},
	ACTION_COMPLETE_REFUND: {ticketState{types.TICKET_CANCELLED, false}, types.TICKET_REFUNDED},
}

// Transition checks whether action is legal for t and returns the resulting
// status. The error names the reason the ticket is not in the required state.
func Transition(t *models.Ticket, action TicketAction) (types.TicketStatus, error) {
	rule, ok := transitions[action]
	if !ok {
		return "", types.ErrInvalidRequest.Withf("unknown ticket action %q", action)
	}
	if t.CheckedIn {
		switch action {
		case ACTION_CHECK_IN:
			return "", alreadyCheckedIn(t)
		case ACTION_CANCEL:
			return "", types.ErrAlreadyCheckedIn
		default:
			return "", types.ErrAlreadyUsed
		}
	}
	if t.Status == rule.from.status {
		return rule.to, nil
	}
	switch {
	case t.Status == types.TICKET_REFUNDED:
		if action == ACTION_CHECK_IN {
			return "", types.ErrTicketCancelled
		}
		return "", types.ErrAlreadyRefunded
	case t.Status == types.TICKET_CANCELLED:
		if action == ACTION_CHECK_IN {
			return "", types.ErrTicketCancelled
		}
		return "", types.ErrAlreadyCancelled
	case t.Status == types.TICKET_RESERVED:
		return "", types.ErrNotPurchased
	case rule.from.status == types.TICKET_RESERVED:
		return "", types.ErrNotReserved
	default:
		return "", types.ErrInvalidRequest.Withf("ticket in status %q cannot %s", t.Status, action)
	}
}

func alreadyCheckedIn(t *models.Ticket) error {
	details := map[string]any{"ticketId": t.ID}
	if t.CheckedInAt != nil {
		details["checkedInAt"] = t.CheckedInAt
	}
	return types.ErrAlreadyCheckedIn.With(details)
}
