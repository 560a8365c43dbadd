package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EventType names the order lifecycle moment a message describes.
type EventType string

const (
	EventOrderPaid      EventType = "order.paid"
	EventOrderCancelled EventType = "order.cancelled"
	EventOrderShipped   EventType = "order.shipped"
	EventOrderDelivered EventType = "order.delivered"
	EventOrderReturned  EventType = "order.returned"
	EventOrderStats     EventType = "order.stats"
)

// Recipient carries the contact channels known for a user.
type Recipient struct {
	UserID      int64  `json:"userId"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	DeviceToken string `json:"deviceToken,omitempty"`
}

// Message is what observers receive. It is built after the business transaction committed.
type Message struct {
	ID          string            `json:"id"`
	Type        EventType         `json:"type"`
	OrderID     int64             `json:"orderId,omitempty"`
	OrderNumber string            `json:"orderNumber,omitempty"`
	Recipient   Recipient         `json:"recipient"`
	Subject     string            `json:"subject"`
	Body        string            `json:"body"`
	Attributes  map[string]string `json:"attributes,omitempty"`
	OccurredAt  time.Time         `json:"occurredAt"`
}

// NewMessage stamps an identifier and timestamp.
func NewMessage(eventType EventType, recipient Recipient, subject, body string, now time.Time) Message {
	return Message{
		ID:         uuid.NewString(),
		Type:       eventType,
		Recipient:  recipient,
		Subject:    subject,
		Body:       body,
		OccurredAt: now.UTC(),
	}
}

// ForOrder attaches order identity to the message.
func (m Message) ForOrder(orderID int64, orderNumber string) Message {
	m.OrderID = orderID
	m.OrderNumber = orderNumber
	return m
}

// With returns a copy carrying an extra attribute.
func (m Message) With(key, value string) Message {
	attrs := make(map[string]string, len(m.Attributes)+1)
	for k, v := range m.Attributes {
		attrs[k] = v
	}
	attrs[key] = value
	m.Attributes = attrs
	return m
}

// Key groups messages of the same order so downstream consumers see them in order.
func (m Message) Key() string {
	if m.OrderNumber != "" {
		return m.OrderNumber
	}
	return "user-" + strconv.FormatInt(m.Recipient.UserID, 10)
}

// Short renders a one-line summary for SMS and push channels.
func (m Message) Short() string {
	if m.OrderNumber == "" {
		return m.Subject
	}
	return fmt.Sprintf("%s (%s)", m.Subject, m.OrderNumber)
}
