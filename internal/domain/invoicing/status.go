package invoicing

import (
	"fmt"
	"strings"
)

// InvoiceStatus represents the lifecycle state of an invoice
type InvoiceStatus string

const (
	StatusDraft InvoiceStatus = "DRAFT"
	StatusSent  InvoiceStatus = "SENT"
	StatusPaid  InvoiceStatus = "PAID"
	// StatusCanceled is reserved. No command produces or accepts it.
	StatusCanceled InvoiceStatus = "CANCELED"
)

// Command names an aggregate operation gated by status
type Command string

const (
	CommandEdit          Command = "edit"
	CommandSend          Command = "send"
	CommandRecordPayment Command = "record payment"
)

type statusRule struct {
	accepts []Command
	targets []InvoiceStatus
}

// statusRules is the single source of truth for the invoice lifecycle.
// DRAFT may move straight to PAID when a prepayment settles the balance.
var statusRules = map[InvoiceStatus]statusRule{
	StatusDraft: {
		accepts: []Command{CommandEdit, CommandSend, CommandRecordPayment},
		targets: []InvoiceStatus{StatusSent, StatusPaid},
	},
	StatusSent: {
		accepts: []Command{CommandRecordPayment},
		targets: []InvoiceStatus{StatusPaid},
	},
	StatusPaid:     {},
	StatusCanceled: {},
}

// ParseInvoiceStatus parses a status name, case-insensitively
func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	status := InvoiceStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", fmt.Errorf("unknown invoice status %q", s)
	}
	return status, nil
}

// IsValid checks if the status is a known value
func (s InvoiceStatus) IsValid() bool {
	_, ok := statusRules[s]
	return ok
}

// Allows reports whether an invoice in this status accepts cmd
func (s InvoiceStatus) Allows(cmd Command) bool {
	for _, c := range statusRules[s].accepts {
		if c == cmd {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether moving to target is legal
func (s InvoiceStatus) CanTransitionTo(target InvoiceStatus) bool {
	for _, t := range statusRules[s].targets {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true when no command is accepted
func (s InvoiceStatus) IsTerminal() bool {
	return len(statusRules[s].accepts) == 0
}

// String returns the string representation
func (s InvoiceStatus) String() string {
	return string(s)
}
