// Package agency orchestrates paperwork-sale (gestoría venta) writes and
// their single income ledger entry. Update and delete reuse the ledger
// entries already loaded on the sale instead of querying the ledger again.
package agency

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/drivemaster/backoffice/internal/domain/finance"
	"github.com/drivemaster/backoffice/internal/domain/school"
	"github.com/drivemaster/backoffice/internal/domain/shared"
	"github.com/drivemaster/backoffice/internal/infrastructure/api"
)

// saleIncomeAccount is the ledger account every agency-sale entry posts to.
const saleIncomeAccount = "Caja"

// Service coordinates agency-sale writes.
type Service struct {
	api    *api.Client
	logger *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a new agency Service
func NewService(client *api.Client, opts ...Option) *Service {
	s := &Service{
		api:    client,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create creates the sale and one income ledger entry referencing it. The
// entry's reference is the sale's payment reference when given, else the
// deterministic GV tag.
func (s *Service) Create(ctx context.Context, sale school.AgencySale) (school.AgencySale, error) {
	op := "create agency sale"

	created, err := s.api.CreateAgencySale(ctx, sale)
	if err != nil {
		return school.AgencySale{}, &shared.PartialFailureError{Op: op, Err: fmt.Errorf("failed to create sale: %w", err)}
	}

	if err := s.createIncomeEntry(ctx, created.ID, sale); err != nil {
		return created, &shared.PartialFailureError{
			Op:        op,
			Completed: []string{fmt.Sprintf("created sale %d", created.ID)},
			Err:       err,
		}
	}

	s.logger.Info("agency sale created", zap.Int64("sale_id", created.ID))
	return created, nil
}

// Update rewrites the sale, drops the ledger entries previously loaded on
// previous, and posts a fresh income entry. A failed delete of an individual
// stale entry is logged and skipped so one orphaned row can't block the
// update.
func (s *Service) Update(ctx context.Context, id int64, sale school.AgencySale, previous school.AgencySale) (school.AgencySale, error) {
	op := "update agency sale"
	var completed []string

	updated, err := s.api.UpdateAgencySale(ctx, id, sale)
	if err != nil {
		return school.AgencySale{}, &shared.PartialFailureError{Op: op, Err: fmt.Errorf("failed to update sale %d: %w", id, err)}
	}
	completed = append(completed, fmt.Sprintf("updated sale %d", id))

	completed = append(completed, s.deleteKnownEntries(ctx, previous.Movements)...)

	if err := s.createIncomeEntry(ctx, id, sale); err != nil {
		return updated, &shared.PartialFailureError{Op: op, Completed: completed, Err: err}
	}

	s.logger.Info("agency sale updated", zap.Int64("sale_id", id))
	return updated, nil
}

// Delete removes the sale's previously known ledger entries, then the sale.
func (s *Service) Delete(ctx context.Context, id int64, previous school.AgencySale) error {
	completed := s.deleteKnownEntries(ctx, previous.Movements)

	if err := s.api.DeleteAgencySale(ctx, id); err != nil {
		return &shared.PartialFailureError{
			Op:        "delete agency sale",
			Completed: completed,
			Err:       fmt.Errorf("failed to delete sale %d: %w", id, err),
		}
	}

	s.logger.Info("agency sale deleted", zap.Int64("sale_id", id))
	return nil
}

func (s *Service) createIncomeEntry(ctx context.Context, saleID int64, sale school.AgencySale) error {
	client, err := s.api.GetClient(ctx, sale.ClientID)
	if err != nil {
		return fmt.Errorf("failed to fetch client %d: %w", sale.ClientID, err)
	}

	reference := sale.PaymentReference
	if reference == "" {
		reference = finance.AgencySaleRef(saleID)
	}

	entry := finance.LedgerEntry{
		AgencySaleID: saleID,
		Date:         sale.Date,
		Description:  fmt.Sprintf("Venta gestoría %s - %s", sale.ProcedureType, client.Name),
		MovementType: finance.MovementIncome,
		Account:      saleIncomeAccount,
		Currency:     sale.Currency,
		Debit:        sale.Amount,
		Credit:       decimal.Zero,
		Reference:    reference,
	}
	if _, err := s.api.CreateLedgerEntry(ctx, entry); err != nil {
		return fmt.Errorf("failed to create income entry: %w", err)
	}
	return nil
}

// deleteKnownEntries deletes the given ledger entries one by one, logging and
// skipping individual failures. It returns the step names of the deletes that
// succeeded.
func (s *Service) deleteKnownEntries(ctx context.Context, entries []finance.LedgerEntry) []string {
	var completed []string
	for _, entry := range entries {
		if err := s.api.DeleteLedgerEntry(ctx, entry.ID); err != nil {
			s.logger.Warn("failed to delete stale ledger entry",
				zap.Int64("entry_id", entry.ID),
				zap.Error(err))
			continue
		}
		completed = append(completed, fmt.Sprintf("deleted ledger entry %d", entry.ID))
	}
	return completed
}
