package models

import (
	"ticketing/src/types"
	"time"
)

type Event struct {
	ID                 uint      `gorm:"primarykey" json:"id"`
	Title              string    `json:"title,omitempty"`
	Location           string    `json:"location,omitempty"`
	DateTime           time.Time `json:"date_time,omitempty"`
	CancellationPolicy string    `json:"cancellation_policy,omitempty"`
	ExchangePolicy     string    `json:"exchange_policy,omitempty"`

	TicketTypes []TicketType `json:"ticket_types,omitempty"`

	types.Timestamps
}
