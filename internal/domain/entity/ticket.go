package entity

import "time"

// TicketStatus mirrors the numeric status codes of the service desk.
type TicketStatus int

const (
	TicketNew      TicketStatus = 1
	TicketAssigned TicketStatus = 2
	TicketPlanned  TicketStatus = 3
	TicketPending  TicketStatus = 4
	TicketSolved   TicketStatus = 5
	TicketClosed   TicketStatus = 6
)

var ticketStatusNames = map[TicketStatus]string{
	TicketNew:      "New",
	TicketAssigned: "In progress (assigned)",
	TicketPlanned:  "In progress (planned)",
	TicketPending:  "Pending",
	TicketSolved:   "Solved",
	TicketClosed:   "Closed",
}

func (s TicketStatus) String() string {
	if name, ok := ticketStatusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// IsTerminal reports whether the ticket no longer needs work.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketSolved || s == TicketClosed
}

// TicketRecord представляет заявку сервис-деска
type TicketRecord struct {
	ID         int64
	Title      string
	Status     TicketStatus
	Category   string
	Technician string
	Requester  string
	Origin     string
	OpenedAt   time.Time
	ResolvedAt *time.Time
	Duration   time.Duration
}

// Contact is a person authorised to open tickets for an entity.
type Contact struct {
	Name  string `json:"name"`
	Login string `json:"login"`
	Email string `json:"email"`
}

// MonthlyCount is the number of treated tickets in one month.
type MonthlyCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}
