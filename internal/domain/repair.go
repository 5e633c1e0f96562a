package domain

import "strconv"

// RepairItem is one reconditioning line item.
type RepairItem struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Cost        Amount `json:"cost"`
}

type RepairField string

const (
	RepairFieldDescription RepairField = "description"
	RepairFieldCost        RepairField = "cost"
)

// AddRepairRow returns a new ledger with a blank row appended.
func AddRepairRow(items []RepairItem, id string) []RepairItem {
	next := make([]RepairItem, len(items), len(items)+1)
	copy(next, items)
	return append(next, RepairItem{ID: id, Cost: AmountOf(0)})
}

// UpdateRepairRow returns a new ledger with one field of row index replaced.
// Cost text is stored as typed.
func UpdateRepairRow(items []RepairItem, index int, field RepairField, value string) ([]RepairItem, error) {
	if index < 0 || index >= len(items) {
		return items, NewValidationError("index", strconv.Itoa(index), ErrRepairIndexOutOfRange)
	}
	next := make([]RepairItem, len(items))
	copy(next, items)
	switch field {
	case RepairFieldDescription:
		next[index].Description = value
	case RepairFieldCost:
		next[index].Cost = AmountText(value)
	default:
		return items, NewValidationError("field", string(field), ErrUnknownField)
	}
	return next, nil
}

// RepairTotal sums the cost of every row, counting non-numeric costs as zero.
func RepairTotal(items []RepairItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Cost.Value()
	}
	return total
}
