package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const taxRate = 0.16

// TicketItem is one line of a purchase ticket.
type TicketItem struct {
	Code     string  `json:"code"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Ticket is a generated purchase ticket.
type Ticket struct {
	ID            string       `json:"id"`
	UserID        string       `json:"user_id"`
	PointOfSaleID string       `json:"point_of_sale_id"`
	Items         []TicketItem `json:"items"`
	Subtotal      float64      `json:"subtotal"`
	Tax           float64      `json:"tax"`
	Total         float64      `json:"total"`
	Confirmed     bool         `json:"confirmed"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Tickets creates and confirms purchase tickets.
type Tickets struct {
	mu        sync.Mutex
	inventory *Inventory
	tickets   map[string]*Ticket
	log       zerolog.Logger
}

// NewTickets builds the ticket service over the inventory.
func NewTickets(inventory *Inventory, log zerolog.Logger) *Tickets {
	return &Tickets{
		inventory: inventory,
		tickets:   make(map[string]*Ticket),
		log:       log.With().Str("component", "tickets").Logger(),
	}
}

// Create prices the items from inventory and issues an unconfirmed ticket.
func (t *Tickets) Create(ctx context.Context, userID, pointOfSaleID string, items []TicketItem) (*Ticket, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("ticket needs at least one item")
	}

	subtotal := 0.0
	priced := make([]TicketItem, 0, len(items))
	for _, item := range items {
		entry, err := t.inventory.Lookup(ctx, item.Code)
		if err != nil {
			return nil, fmt.Errorf("failed to price item: %w", err)
		}
		if item.Quantity <= 0 {
			item.Quantity = 1
		}
		item.Price = entry.Price
		subtotal += entry.Price * float64(item.Quantity)
		priced = append(priced, item)
	}

	ticket := &Ticket{
		ID:            uuid.NewString(),
		UserID:        userID,
		PointOfSaleID: pointOfSaleID,
		Items:         priced,
		Subtotal:      subtotal,
		Tax:           subtotal * taxRate,
		Total:         subtotal * (1 + taxRate),
		CreatedAt:     time.Now(),
	}

	t.mu.Lock()
	t.tickets[ticket.ID] = ticket
	t.mu.Unlock()

	t.log.Info().Str("ticket_id", ticket.ID).Float64("total", ticket.Total).Msg("ticket created")
	return ticket, nil
}

// Confirm reserves stock for the ticket and marks it confirmed.
func (t *Tickets) Confirm(ctx context.Context, ticketID string) (*Ticket, error) {
	t.mu.Lock()
	ticket, ok := t.tickets[ticketID]
	t.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("ticket %s not found", ticketID)
	}
	if ticket.Confirmed {
		return ticket, nil
	}

	for _, item := range ticket.Items {
		if err := t.inventory.Reserve(ctx, item.Code, item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to confirm ticket: %w", err)
		}
	}

	t.mu.Lock()
	ticket.Confirmed = true
	t.mu.Unlock()

	t.log.Info().Str("ticket_id", ticketID).Msg("ticket confirmed")
	return ticket, nil
}
