package reminder

import (
	"context"
	"fmt"

	"resort-billing/models"
)

// CheckOverdue flips every past-due, unpaid Pending/Partial/Sent invoice to Overdue.
func (s *Service) CheckOverdue(ctx context.Context) (Result, error) {
	res, _, today := s.begin(CheckOverdue)

	invoices, err := s.store.FindOverdueCandidates(ctx, dayBound(today))
	if err != nil {
		return s.finish(res), fmt.Errorf("%w: list overdue candidates: %w", ErrPersistence, err)
	}
	for i := range invoices {
		inv := &invoices[i]
		res.Scanned++
		changed, err := s.markOverdue(ctx, inv, today)
		switch {
		case err != nil:
			res.Failed++
		case changed:
			res.Transitioned++
		default:
			res.Skipped++
		}
	}
	return s.finish(res), nil
}

// CheckExpiredQuotations flips open quotations whose validity ended before today to Expired.
func (s *Service) CheckExpiredQuotations(ctx context.Context) (Result, error) {
	res, _, today := s.begin(CheckExpiry)

	quotations, err := s.store.FindExpirableQuotations(ctx, dayBound(today))
	if err != nil {
		return s.finish(res), fmt.Errorf("%w: list expirable quotations: %w", ErrPersistence, err)
	}
	for i := range quotations {
		q := &quotations[i]
		res.Scanned++
		if !isExpired(q, today) {
			res.Skipped++
			continue
		}
		if err := s.store.UpdateQuotationStatus(ctx, q.ID, models.QuotationExpired); err != nil {
			res.Failed++
			cerr := &CheckError{Op: "expire quotation", Invoice: q.QuotationNumber, Err: fmt.Errorf("%w: %w", ErrPersistence, err)}
			s.log.Error().Err(cerr).Str("quotation", q.QuotationNumber).Uint("quotation_id", q.ID).Msg("could not expire quotation")
			continue
		}
		q.Status = models.QuotationExpired
		res.Transitioned++
		s.log.Debug().Str("quotation", q.QuotationNumber).Msg("quotation expired")
	}
	return s.finish(res), nil
}

func isOverdue(inv *models.Invoice, today Date) bool {
	return inv.DueDate != nil &&
		DateOf(*inv.DueDate).Before(today) &&
		inv.Status.In(models.OverdueStatuses...) &&
		inv.Balance().IsPositive()
}

func isExpired(q *models.Quotation, today Date) bool {
	return q.ValidUntil != nil && DateOf(*q.ValidUntil).Before(today) && !q.IsSettled()
}

// markOverdue persists the Overdue transition and updates inv in place.
func (s *Service) markOverdue(ctx context.Context, inv *models.Invoice, today Date) (bool, error) {
	if !isOverdue(inv, today) {
		return false, nil
	}
	if err := s.store.UpdateInvoiceStatus(ctx, inv.ID, models.InvoiceOverdue); err != nil {
		cerr := &CheckError{Op: "mark overdue", Invoice: inv.InvoiceNumber, Err: fmt.Errorf("%w: %w", ErrPersistence, err)}
		s.log.Error().Err(cerr).Str("invoice", inv.InvoiceNumber).Uint("invoice_id", inv.ID).Msg("could not mark invoice overdue")
		return false, cerr
	}
	s.log.Debug().Str("invoice", inv.InvoiceNumber).Str("from", string(inv.Status)).Msg("invoice overdue")
	inv.Status = models.InvoiceOverdue
	return true, nil
}
