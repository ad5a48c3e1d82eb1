package api

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/drivemaster/backoffice/internal/domain/finance"
	"github.com/drivemaster/backoffice/internal/domain/school"
)

// dashboardLimit is high enough to pull whole collections in one page.
const dashboardLimit = 10000

// DashboardData is the raw material of the dashboard summary: full
// collection listings plus the current month's income movements.
type DashboardData struct {
	Clients        []school.Client
	Instructors    []school.Instructor
	Contracts      []school.Contract
	AgencySales    []school.AgencySale
	MonthMovements []finance.LedgerEntry
}

// DashboardStats loads the five dashboard collections in parallel. Every call
// bypasses the cache so the aggregates reflect the backend as of now, and the
// ledger call is scoped to income movements of the current month.
func (c *Client) DashboardStats(ctx context.Context) (*DashboardData, error) {
	monthStart, monthEnd := currentMonthRange(time.Now())

	data := &DashboardData{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		data.Clients, err = fetchFresh[school.Client](gctx, c, "/clientes", nil)
		return err
	})
	g.Go(func() error {
		var err error
		data.Instructors, err = fetchFresh[school.Instructor](gctx, c, "/instructores", nil)
		return err
	})
	g.Go(func() error {
		var err error
		data.Contracts, err = fetchFresh[school.Contract](gctx, c, "/contratos", nil)
		return err
	})
	g.Go(func() error {
		var err error
		data.AgencySales, err = fetchFresh[school.AgencySale](gctx, c, "/gestoria-ventas", nil)
		return err
	})
	g.Go(func() error {
		var err error
		data.MonthMovements, err = fetchFresh[finance.LedgerEntry](gctx, c, "/movimientos-contables", map[string]string{
			"fecha_inicio":    monthStart,
			"fecha_fin":       monthEnd,
			"tipo_movimiento": string(finance.MovementIncome),
		})
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

func fetchFresh[T any](ctx context.Context, c *Client, endpoint string, extra map[string]string) ([]T, error) {
	params := map[string]string{"limit": strconv.Itoa(dashboardLimit)}
	for k, v := range extra {
		params[k] = v
	}
	payload, err := c.Request(ctx, endpoint, RequestOptions{Params: params, SkipCache: true})
	if err != nil {
		return nil, err
	}
	return DecodeList[T](payload)
}

// currentMonthRange returns the first and last day of now's month in
// YYYY-MM-DD form.
func currentMonthRange(now time.Time) (string, string) {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	last := first.AddDate(0, 1, -1)
	return first.Format("2006-01-02"), last.Format("2006-01-02")
}
