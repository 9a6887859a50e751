package store

import (
	"fmt"
	"slices"
	"strings"

	"github.com/udms-pro/udms/internal/shared"
)

// Payments returns all invoices.
func (s *Store) Payments() []Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.payments)
}

// PaymentsFor returns the invoices of one resident.
func (s *Store) PaymentsFor(studentID string) []Payment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Payment
	for _, p := range s.payments {
		if p.StudentID == studentID {
			out = append(out, p)
		}
	}
	return out
}

// FindPayment fetches an invoice by id.
func (s *Store) FindPayment(id string) (Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx := s.paymentIndex(id)
	if idx < 0 {
		return Payment{}, notFound("payment", id)
	}
	return s.payments[idx], nil
}

// SettlePayment marks a Pending or Overdue invoice Paid and stamps a settlement
// reference. Paid is terminal: a second settlement returns ErrAlreadySettled.
func (s *Store) SettlePayment(id string) (Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.paymentIndex(id)
	if idx < 0 {
		return Payment{}, notFound("payment", id)
	}
	p := &s.payments[idx]
	if p.Status == PaymentPaid {
		return Payment{}, fmt.Errorf("payment %s: %w", id, shared.ErrAlreadySettled)
	}
	at := s.now().UTC()
	p.Status = PaymentPaid
	p.SettlementRef = "0x" + strings.ReplaceAll(s.newID(), "-", "")
	p.SettledAt = &at
	return *p, nil
}

// OverrideFee changes the amount of an unpaid invoice.
func (s *Store) OverrideFee(id string, amount float64) (Payment, error) {
	if amount < 0 {
		return Payment{}, fmt.Errorf("%w: negative amount", shared.ErrValidation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.paymentIndex(id)
	if idx < 0 {
		return Payment{}, notFound("payment", id)
	}
	p := &s.payments[idx]
	if p.Status == PaymentPaid {
		return Payment{}, fmt.Errorf("override fee on %s: %w", id, shared.ErrAlreadySettled)
	}
	p.Amount = amount
	return *p, nil
}

func (s *Store) paymentIndex(id string) int {
	for i := range s.payments {
		if s.payments[i].ID == id {
			return i
		}
	}
	return -1
}
