// Package dashboard derives the summary counters shown on the backoffice
// landing view from fresh collection listings.
package dashboard

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/drivemaster/backoffice/internal/infrastructure/api"
)

// Summary is the aggregate view of the business at a point in time. The
// income total covers the current month only.
type Summary struct {
	Clients     int             `json:"clientes"`
	Instructors int             `json:"instructores"`
	Contracts   int             `json:"contratos"`
	AgencySales int             `json:"gestoria_ventas"`
	MonthIncome decimal.Decimal `json:"ingresos_mes"`
}

// Service produces dashboard summaries.
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

// NewService creates a new dashboard Service
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

// Summary fetches the dashboard collections and folds them into counters.
// Month income sums the debe column of the current month's income movements
// with decimal arithmetic.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	data, err := s.api.DashboardStats(ctx)
	if err != nil {
		return Summary{}, err
	}

	income := decimal.Zero
	for _, entry := range data.MonthMovements {
		income = income.Add(entry.Debit)
	}

	summary := Summary{
		Clients:     len(data.Clients),
		Instructors: len(data.Instructors),
		Contracts:   len(data.Contracts),
		AgencySales: len(data.AgencySales),
		MonthIncome: income,
	}
	s.logger.Debug("dashboard summary assembled",
		zap.Int("clients", summary.Clients),
		zap.Int("contracts", summary.Contracts),
		zap.String("month_income", summary.MonthIncome.String()))
	return summary, nil
}
