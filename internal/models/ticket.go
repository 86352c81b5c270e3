package models

import "time"

type TicketStatus string

const (
	TicketStatusAssigned  TicketStatus = "ASSIGNED"
	TicketStatusPending   TicketStatus = "PENDING"
	TicketStatusUsed      TicketStatus = "USED"
	TicketStatusCancelled TicketStatus = "CANCELLED"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusAssigned, TicketStatusPending, TicketStatusUsed, TicketStatusCancelled:
		return true
	}
	return false
}

type UserTicket struct {
	ID        string       `json:"id"`
	Status    TicketStatus `json:"status"`
	EventID   string       `json:"eventId"`
	BatchID   string       `json:"batchId"`
	Quantity  int          `json:"quantity"`
	Price     float64      `json:"price"`
	CreatedAt time.Time    `json:"createdAt"`
	Event     *Event       `json:"event,omitempty"`
}

// CreateTicketRequest is the body of POST /ticket on the events API.
type CreateTicketRequest struct {
	EventID  string  `json:"eventId"`
	BatchID  string  `json:"batchId"`
	UserID   string  `json:"userId"`
	BuyerID  string  `json:"buyerId"`
	Price    float64 `json:"price"`
	Name     string  `json:"name"`
	Email    string  `json:"email"`
	CPF      string  `json:"cpf"`
	Phone    string  `json:"phone"`
	Quantity int     `json:"quantity"`
}

// Order is the ticket-creation payload: the PIX payment code plus an optional
// pre-rendered base64 image of it.
type Order struct {
	ID           string `json:"id,omitempty"`
	Status       string `json:"status,omitempty"`
	PaymentCode  string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64,omitempty"`
}
