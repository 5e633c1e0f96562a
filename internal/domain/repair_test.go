package domain

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return "id-" + strconv.Itoa(n)
	}
}

func TestRepairTotal_CoercesNonNumeric(t *testing.T) {
	items := []RepairItem{
		{ID: "1", Cost: AmountOf(10)},
		{ID: "2", Cost: AmountText("abc")},
		{ID: "3", Cost: AmountOf(5.5)},
	}
	assert.Equal(t, 15.5, RepairTotal(items))
	assert.Equal(t, "15.50", FormatMoney(RepairTotal(items)))
}

func TestRepairLedgerScenario(t *testing.T) {
	s := NewAppraisalState(time.Now(), sequentialIDs())
	require.Len(t, s.Repairs, InitialRepairRows)
	assert.Equal(t, "0.00", FormatMoney(s.RepairTotal()))

	s = s.AddRepairRow("id-4")
	require.Len(t, s.Repairs, 4)
	assert.Equal(t, "0.00", FormatMoney(s.RepairTotal()))

	s, err := s.UpdateRepairRow(3, RepairFieldCost, "250")
	require.NoError(t, err)
	assert.Equal(t, "250.00", FormatMoney(s.RepairTotal()))
}

func TestUpdateRepairRow(t *testing.T) {
	items := AddRepairRow(nil, "a")

	t.Run("KeepsTypedText", func(t *testing.T) {
		next, err := UpdateRepairRow(items, 0, RepairFieldCost, "12.")
		require.NoError(t, err)
		assert.Equal(t, "12.", next[0].Cost.Raw())
		assert.Equal(t, 12.0, next[0].Cost.Value())
		assert.Equal(t, "0", items[0].Cost.Raw(), "original ledger must not change")
	})

	t.Run("Description", func(t *testing.T) {
		next, err := UpdateRepairRow(items, 0, RepairFieldDescription, "Respray bonnet")
		require.NoError(t, err)
		assert.Equal(t, "Respray bonnet", next[0].Description)
	})

	t.Run("OutOfRange", func(t *testing.T) {
		_, err := UpdateRepairRow(items, 1, RepairFieldCost, "5")
		assert.ErrorIs(t, err, ErrRepairIndexOutOfRange)
		_, err = UpdateRepairRow(items, -1, RepairFieldCost, "5")
		assert.ErrorIs(t, err, ErrRepairIndexOutOfRange)
	})

	t.Run("UnknownField", func(t *testing.T) {
		_, err := UpdateRepairRow(items, 0, RepairField("qty"), "5")
		assert.ErrorIs(t, err, ErrUnknownField)
	})
}

func TestAmount(t *testing.T) {
	t.Run("NonFinite", func(t *testing.T) {
		assert.Equal(t, 0.0, AmountText("NaN").Value())
		assert.Equal(t, 0.0, AmountText("Inf").Value())
		assert.False(t, AmountText("").Numeric())
	})

	t.Run("JSON", func(t *testing.T) {
		b, err := json.Marshal([]Amount{AmountOf(250), AmountText("abc"), AmountText("")})
		require.NoError(t, err)
		assert.JSONEq(t, `[250, "abc", 0]`, string(b))

		var out []Amount
		require.NoError(t, json.Unmarshal([]byte(`[12.5, "x", null]`), &out))
		assert.Equal(t, "12.5", out[0].Raw())
		assert.Equal(t, "x", out[1].Raw())
		assert.Equal(t, "", out[2].Raw())
	})
}
