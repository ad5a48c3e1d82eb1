package finance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MovementType classifies a ledger entry as income or expense
type MovementType string

const (
	MovementIncome  MovementType = "ingreso"
	MovementExpense MovementType = "gasto"
)

// LedgerEntry is a double-entry-style accounting row (movimiento contable).
// Debe carries income amounts, Haber expense amounts; exactly one of the two
// is non-zero for the entries this client creates.
type LedgerEntry struct {
	ID           int64           `json:"id,omitempty"`
	ContractID   int64           `json:"contrato_id,omitempty"`
	AgencySaleID int64           `json:"gestoria_venta_id,omitempty"`
	Date         string          `json:"fecha"`
	Description  string          `json:"descripcion"`
	MovementType MovementType    `json:"tipo_movimiento"`
	Account      string          `json:"cuenta"`
	Currency     string          `json:"moneda"`
	Debit        decimal.Decimal `json:"debe"`
	Credit       decimal.Decimal `json:"haber"`
	Reference    string          `json:"referencia"`
}

// Reference tags are deterministic so entries created for a parent record can
// be found and replaced later. One income tag per contract, one optional
// instructor-payout tag, one tag per agency sale.

// ContractIncomeRef tags the income entry of a contract.
func ContractIncomeRef(contractID int64) string {
	return fmt.Sprintf("CT-%d-INGRESO", contractID)
}

// ContractInstructorRef tags the instructor-payout entry of a contract.
func ContractInstructorRef(contractID int64) string {
	return fmt.Sprintf("CT-%d-INSTRUCTOR", contractID)
}

// AgencySaleRef tags the income entry of an agency sale.
func AgencySaleRef(saleID int64) string {
	return fmt.Sprintf("GV-%d", saleID)
}

// BelongsToContract reports whether the entry references the given contract.
func (e LedgerEntry) BelongsToContract(contractID int64) bool {
	return e.ContractID == contractID
}
