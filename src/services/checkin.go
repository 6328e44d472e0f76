package services

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"ticketing/src/models"
	"ticketing/src/types"

	"github.com/tidwall/gjson"
)

// TicketCode is a scanner input reduced to what check-in needs.
type TicketCode struct {
	TicketID uint
	Hash     string
}

func (c TicketCode) Manual() bool {
	return c.Hash == ManualEntryHash
}

type CheckInService struct {
	tickets  *TicketStore
	qrSecret string
}

// ResolveCode accepts a JSON number, a numeric string, a JSON string holding
// the QR payload, or the decoded payload object. A bare id counts as manual
// entry; a payload object must carry its hash.
func ResolveCode(raw any) (TicketCode, error) {
	switch v := raw.(type) {
	case float64:
		return idCode(v)
	case int:
		return idCode(float64(v))
	case uint:
		if v == 0 {
			return TicketCode{}, types.ErrInvalidQRCode.Withf("ticket id must be a positive integer")
		}
		return TicketCode{TicketID: v, Hash: ManualEntryHash}, nil
	case json.Number:
		return ResolveCode(v.String())
	case string:
		return resolveString(v, 0)
	case map[string]any:
		b, err := json.Marshal(v)
		if err != nil {
			return TicketCode{}, types.ErrInvalidQRCode
		}
		return resolveString(string(b), 0)
	}
	return TicketCode{}, types.ErrInvalidQRCode
}

func idCode(f float64) (TicketCode, error) {
	if f <= 0 || f != float64(uint(f)) {
		return TicketCode{}, types.ErrInvalidQRCode.Withf("ticket id must be a positive integer")
	}
	return TicketCode{TicketID: uint(f), Hash: ManualEntryHash}, nil
}

func resolveString(s string, depth int) (TicketCode, error) {
	s = strings.TrimSpace(s)
	if id, err := strconv.ParseUint(s, 10, 64); err == nil && id > 0 {
		return TicketCode{TicketID: uint(id), Hash: ManualEntryHash}, nil
	}
	if depth > 1 || !gjson.Valid(s) {
		return TicketCode{}, types.ErrInvalidQRCode
	}
	parsed := gjson.Parse(s)
	switch parsed.Type {
	case gjson.String:
		return resolveString(parsed.String(), depth+1)
	case gjson.Number:
		return idCode(parsed.Float())
	case gjson.JSON:
		id := parsed.Get("id")
		if !id.Exists() {
			return TicketCode{}, types.ErrInvalidQRCode.Withf("ticket code has no id")
		}
		code, err := idCode(id.Float())
		if id.Type == gjson.String {
			code, err = resolveString(id.String(), depth+1)
		}
		if err != nil {
			return TicketCode{}, err
		}
		code.Hash = parsed.Get("hash").String()
		return code, nil
	}
	return TicketCode{}, types.ErrInvalidQRCode
}

// CheckIn resolves the scanned code, verifies its hash unless it is a manual
// entry and marks the ticket used.
func (s *CheckInService) CheckIn(ctx context.Context, raw any) (*models.Ticket, error) {
	code, err := ResolveCode(raw)
	if err != nil {
		return nil, err
	}
	t, err := s.tickets.Get(ctx, code.TicketID)
	if err != nil {
		return nil, err
	}
	if !code.Manual() && !VerifyTicketHash(s.qrSecret, t.ID, t.EventID, t.UserID, code.Hash) {
		return nil, types.ErrInvalidQRCode.Withf("ticket code signature does not match").
			With(map[string]any{"ticketId": t.ID})
	}
	return s.tickets.CheckIn(ctx, t.ID)
}
