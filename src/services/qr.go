package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

const (
	qrPayloadVersion = 1
	// ManualEntryHash lets staff check a ticket in by id without a scan.
	ManualEntryHash = "manual-entry"
)

type QRPayload struct {
	ID   uint   `json:"id"`
	Hash string `json:"hash"`
	V    int    `json:"v"`
}

// GenerateTicketHash is the first 16 hex chars of
// HMAC-SHA256(secret, "{ticketID}-{eventID}-{userID}").
func GenerateTicketHash(secret string, ticketID, eventID, userID uint) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d-%d-%d", ticketID, eventID, userID)
	return hex.EncodeToString(mac.Sum(nil))[:16]
}

func VerifyTicketHash(secret string, ticketID, eventID, userID uint, hash string) bool {
	expected := GenerateTicketHash(secret, ticketID, eventID, userID)
	return hmac.Equal([]byte(expected), []byte(hash))
}

func BuildQRPayload(secret string, ticketID, eventID, userID uint) (string, error) {
	b, err := json.Marshal(QRPayload{
		ID:   ticketID,
		Hash: GenerateTicketHash(secret, ticketID, eventID, userID),
		V:    qrPayloadVersion,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
