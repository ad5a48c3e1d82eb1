// Package contract orchestrates the side effects of contract writes: schedule
// blocks and ledger entries are flat sibling collections on the backend, so
// creating, updating, or deleting a contract means driving several REST calls
// in a strict order. A mid-sequence failure is reported with the list of steps
// that already took effect; nothing is rolled back.
package contract

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/drivemaster/backoffice/internal/domain/finance"
	"github.com/drivemaster/backoffice/internal/domain/school"
	"github.com/drivemaster/backoffice/internal/domain/shared"
	"github.com/drivemaster/backoffice/internal/infrastructure/api"
)

// instructorPayoutAccount is the ledger account for instructor expense
// entries.
const instructorPayoutAccount = "Pago Instructores"

// Service coordinates contract writes and their associated records.
type Service struct {
	api    *api.Client
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithClock overrides the time source used for entry dates in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a new contract Service
func NewService(client *api.Client, opts ...Option) *Service {
	s := &Service{
		api:    client,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// stepRecorder accumulates the names of completed steps so a failure can
// report exactly how far the sequence got.
type stepRecorder struct {
	op    string
	steps []string
}

func (r *stepRecorder) done(format string, args ...any) {
	r.steps = append(r.steps, fmt.Sprintf(format, args...))
}

func (r *stepRecorder) fail(err error) error {
	return &shared.PartialFailureError{Op: r.op, Completed: r.steps, Err: err}
}

// Create creates the contract, its schedule blocks, and its ledger entries.
// The income entry always exists; the instructor-payout entry only when the
// contract carries an instructor share.
func (s *Service) Create(ctx context.Context, contract school.Contract, blocks []school.ScheduleBlock) (school.Contract, error) {
	rec := &stepRecorder{op: "create contract"}

	created, err := s.api.CreateContract(ctx, contract)
	if err != nil {
		return school.Contract{}, rec.fail(fmt.Errorf("failed to create contract: %w", err))
	}
	rec.done("created contract %d", created.ID)

	if err := s.createAssociatedRecords(ctx, rec, created.ID, contract, blocks); err != nil {
		return created, err
	}

	s.logger.Info("contract created",
		zap.Int64("contract_id", created.ID),
		zap.Int("blocks", len(blocks)))
	return created, nil
}

// Update rewrites the contract and rebuilds its associated records: existing
// blocks and ledger entries are deleted and recreated from the submitted data
// instead of diffed.
func (s *Service) Update(ctx context.Context, id int64, contract school.Contract, blocks []school.ScheduleBlock) (school.Contract, error) {
	rec := &stepRecorder{op: "update contract"}

	updated, err := s.api.UpdateContract(ctx, id, contract)
	if err != nil {
		return school.Contract{}, rec.fail(fmt.Errorf("failed to update contract %d: %w", id, err))
	}
	rec.done("updated contract %d", id)

	if err := s.deleteBlocks(ctx, rec, id); err != nil {
		return updated, err
	}
	if err := s.deleteLedgerEntries(ctx, rec, id); err != nil {
		return updated, err
	}
	if err := s.createAssociatedRecords(ctx, rec, id, contract, blocks); err != nil {
		return updated, err
	}

	s.logger.Info("contract updated", zap.Int64("contract_id", id))
	return updated, nil
}

// Delete removes the contract's blocks and ledger entries before the contract
// row itself, children before parent.
func (s *Service) Delete(ctx context.Context, id int64) error {
	rec := &stepRecorder{op: "delete contract"}

	if err := s.deleteBlocks(ctx, rec, id); err != nil {
		return err
	}
	if err := s.deleteLedgerEntries(ctx, rec, id); err != nil {
		return err
	}

	if err := s.api.DeleteContract(ctx, id); err != nil {
		return rec.fail(fmt.Errorf("failed to delete contract %d: %w", id, err))
	}

	s.logger.Info("contract deleted", zap.Int64("contract_id", id))
	return nil
}

// createAssociatedRecords creates the schedule blocks and the ledger entries
// of a contract that already exists under contractID.
func (s *Service) createAssociatedRecords(ctx context.Context, rec *stepRecorder, contractID int64, contract school.Contract, blocks []school.ScheduleBlock) error {
	for _, block := range blocks {
		block.ContractID = contractID
		if _, err := s.api.CreateContractBlock(ctx, block); err != nil {
			return rec.fail(fmt.Errorf("failed to create schedule block: %w", err))
		}
		rec.done("created block %s %s-%s", block.DayOfWeek, block.StartTime, block.EndTime)
	}

	client, err := s.api.GetClient(ctx, contract.ClientID)
	if err != nil {
		return rec.fail(fmt.Errorf("failed to fetch client %d: %w", contract.ClientID, err))
	}

	income := finance.LedgerEntry{
		ContractID:   contractID,
		Date:         s.entryDate(contract),
		Description:  fmt.Sprintf("Ingreso por Contrato #%d - %s", contractID, client.Name),
		MovementType: finance.MovementIncome,
		Account:      contract.PaymentMethod,
		Currency:     contract.Currency,
		Debit:        contract.Total,
		Credit:       decimal.Zero,
		Reference:    finance.ContractIncomeRef(contractID),
	}
	if _, err := s.api.CreateLedgerEntry(ctx, income); err != nil {
		return rec.fail(fmt.Errorf("failed to create income entry: %w", err))
	}
	rec.done("created income entry %s", income.Reference)

	if contract.TotalInstructor.IsPositive() {
		instructor, err := s.api.GetInstructor(ctx, contract.InstructorID)
		if err != nil {
			return rec.fail(fmt.Errorf("failed to fetch instructor %d: %w", contract.InstructorID, err))
		}
		name := instructor.Name
		if name == "" {
			name = "N/A"
		}

		payout := finance.LedgerEntry{
			ContractID:   contractID,
			Date:         s.entryDate(contract),
			Description:  fmt.Sprintf("Pago a Instructor %s por Contrato #%d", name, contractID),
			MovementType: finance.MovementExpense,
			Account:      instructorPayoutAccount,
			Currency:     contract.Currency,
			Debit:        decimal.Zero,
			Credit:       contract.TotalInstructor,
			Reference:    finance.ContractInstructorRef(contractID),
		}
		if _, err := s.api.CreateLedgerEntry(ctx, payout); err != nil {
			return rec.fail(fmt.Errorf("failed to create instructor payout entry: %w", err))
		}
		rec.done("created payout entry %s", payout.Reference)
	}
	return nil
}

func (s *Service) deleteBlocks(ctx context.Context, rec *stepRecorder, contractID int64) error {
	blocks, err := s.api.ListContractBlocks(ctx, contractID)
	if err != nil {
		return rec.fail(fmt.Errorf("failed to list blocks of contract %d: %w", contractID, err))
	}
	for _, block := range blocks {
		if err := s.api.DeleteContractBlock(ctx, block.ID); err != nil {
			return rec.fail(fmt.Errorf("failed to delete block %d: %w", block.ID, err))
		}
		rec.done("deleted block %d", block.ID)
	}
	return nil
}

// deleteLedgerEntries removes every ledger entry of the contract. The backend
// has no contract filter on the collection, so the whole ledger is pulled and
// filtered client-side.
func (s *Service) deleteLedgerEntries(ctx context.Context, rec *stepRecorder, contractID int64) error {
	entries, err := s.api.ListLedgerEntries(ctx, api.ListQuery{Limit: 10000})
	if err != nil {
		return rec.fail(fmt.Errorf("failed to list ledger entries: %w", err))
	}
	for _, entry := range entries {
		if !entry.BelongsToContract(contractID) {
			continue
		}
		if err := s.api.DeleteLedgerEntry(ctx, entry.ID); err != nil {
			return rec.fail(fmt.Errorf("failed to delete ledger entry %d: %w", entry.ID, err))
		}
		rec.done("deleted ledger entry %d", entry.ID)
	}
	return nil
}

func (s *Service) entryDate(contract school.Contract) string {
	if contract.StartDate != "" {
		return contract.StartDate
	}
	return s.now().Format("2006-01-02")
}
