// Package school holds the client-side view of the driving-school business
// records served by the backoffice REST API. JSON tags follow the wire names
// of the backend collections.
package school

import (
	"github.com/shopspring/decimal"

	"github.com/drivemaster/backoffice/internal/domain/finance"
)

// Client is a cliente record.
type Client struct {
	ID      int64  `json:"id,omitempty"`
	Name    string `json:"nombre"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"telefono,omitempty"`
	Address string `json:"direccion,omitempty"`
}

// Instructor is an instructor record.
type Instructor struct {
	ID           int64  `json:"id,omitempty"`
	Name         string `json:"nombre"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"telefono,omitempty"`
	ProfilePhoto string `json:"foto_perfil,omitempty"`
	VehiclePhoto string `json:"foto_vehiculo,omitempty"`
}

// Contract is a recurring teaching contract. Total is the amount charged to
// the client; TotalInstructor is the payout owed to the instructor, zero when
// the school keeps the full amount.
type Contract struct {
	ID              int64           `json:"id,omitempty"`
	ClientID        int64           `json:"cliente_id"`
	InstructorID    int64           `json:"fk_instructor,omitempty"`
	StartDate       string          `json:"fecha_inicio"`
	EndDate         string          `json:"fecha_fin,omitempty"`
	Total           decimal.Decimal `json:"total"`
	TotalInstructor decimal.Decimal `json:"total_instructor"`
	Currency        string          `json:"moneda"`
	PaymentMethod   string          `json:"metodo_pago"`
	Status          string          `json:"estado,omitempty"`
}

// ScheduleBlock is a (day-of-week, start, end) tuple attached to a contract.
type ScheduleBlock struct {
	ID         int64  `json:"id,omitempty"`
	ContractID int64  `json:"contrato_id,omitempty"`
	DayOfWeek  string `json:"dia_semana"`
	StartTime  string `json:"hora_inicio"`
	EndTime    string `json:"hora_fin"`
}

// InstructorSchedule is a standing availability slot for an instructor.
type InstructorSchedule struct {
	ID           int64  `json:"id,omitempty"`
	InstructorID int64  `json:"instructor_id"`
	DayOfWeek    string `json:"dia_semana"`
	StartTime    string `json:"hora_inicio"`
	EndTime      string `json:"hora_fin"`
}

// AgencySale is a one-off paperwork-processing sale (gestoría venta).
// Movements carries the previously loaded ledger entries of the sale; update
// and delete flows reuse it instead of querying again.
type AgencySale struct {
	ID               int64                 `json:"id,omitempty"`
	ClientID         int64                 `json:"cliente_id"`
	ProcedureType    string                `json:"tipo_tramite"`
	Date             string                `json:"fecha"`
	Amount           decimal.Decimal       `json:"monto"`
	Currency         string                `json:"moneda"`
	PaymentReference string                `json:"referencia_pago,omitempty"`
	Movements        []finance.LedgerEntry `json:"movimientos_bancarios,omitempty"`
}
