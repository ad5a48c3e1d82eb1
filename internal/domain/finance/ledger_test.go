package finance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReferenceTags(t *testing.T) {
	assert.Equal(t, "CT-42-INGRESO", ContractIncomeRef(42))
	assert.Equal(t, "CT-42-INSTRUCTOR", ContractInstructorRef(42))
	assert.Equal(t, "GV-7", AgencySaleRef(7))
}

func TestLedgerEntry_BelongsToContract(t *testing.T) {
	entry := LedgerEntry{ContractID: 42}

	assert.True(t, entry.BelongsToContract(42))
	assert.False(t, entry.BelongsToContract(43))
	assert.False(t, LedgerEntry{}.BelongsToContract(42))
}
