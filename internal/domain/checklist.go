package domain

import (
	"encoding/json"
	"fmt"
)

type Condition string

const (
	ConditionGood    Condition = "Good"
	ConditionAverage Condition = "Average"
	ConditionPoor    Condition = "Poor"
	// ConditionNone marks an item that has not been inspected.
	ConditionNone Condition = "None"
)

// Valid reports whether c is one of the four known conditions.
func (c Condition) Valid() bool {
	switch c {
	case ConditionGood, ConditionAverage, ConditionPoor, ConditionNone:
		return true
	}
	return false
}

type ChecklistGroup string

const (
	ChecklistInterior   ChecklistGroup = "interior"
	ChecklistMechanical ChecklistGroup = "mechanical"
)

var InteriorItems = []string{
	"Seats",
	"Seat Belts",
	"Carpets",
	"Door Trims",
	"Glovebox/Ashtray",
	"Sun Visors",
	"Sunroof",
	"Air Conditioning",
	"Electric Windows",
	"Central Locking",
	"Radio/Stereo",
	"Sat Nav",
	"Other",
}

var MechanicalItems = []string{
	"Engine",
	"Rear Axle",
	"Drive Shafts",
	"Steering",
	"Brakes",
	"Exhaust",
	"Lights",
	"Battery",
}

// ChecklistItem is one named inspection point and its current rating.
type ChecklistItem struct {
	Name      string    `json:"name"`
	Condition Condition `json:"condition"`
}

// ChecklistSet holds a rating per fixed item name. The names are fixed when
// the set is built; With replaces a value and returns a new set.
type ChecklistSet struct {
	names  []string
	values map[string]Condition
}

// NewChecklistSet builds a set with every item unset. Duplicate names are
// collapsed to their first occurrence.
func NewChecklistSet(names []string) ChecklistSet {
	cs := ChecklistSet{
		names:  make([]string, 0, len(names)),
		values: make(map[string]Condition, len(names)),
	}
	for _, n := range names {
		if _, dup := cs.values[n]; dup {
			continue
		}
		cs.names = append(cs.names, n)
		cs.values[n] = ConditionNone
	}
	return cs
}

// Names returns the item names in display order.
func (cs ChecklistSet) Names() []string {
	out := make([]string, len(cs.names))
	copy(out, cs.names)
	return out
}

// Get returns the condition for name and whether the item exists.
func (cs ChecklistSet) Get(name string) (Condition, bool) {
	c, ok := cs.values[name]
	return c, ok
}

// Len returns the number of items.
func (cs ChecklistSet) Len() int { return len(cs.names) }

// Items returns the items in display order.
func (cs ChecklistSet) Items() []ChecklistItem {
	items := make([]ChecklistItem, 0, len(cs.names))
	for _, n := range cs.names {
		items = append(items, ChecklistItem{Name: n, Condition: cs.values[n]})
	}
	return items
}

// With returns a copy of the set with name rated c.
func (cs ChecklistSet) With(name string, c Condition) (ChecklistSet, error) {
	if _, ok := cs.values[name]; !ok {
		return cs, NewValidationError("item", name, ErrUnknownChecklistItem)
	}
	if !c.Valid() {
		return cs, NewValidationError("condition", string(c), ErrInvalidCondition)
	}
	next := cs.clone()
	next.values[name] = c
	return next, nil
}

func (cs ChecklistSet) clone() ChecklistSet {
	next := ChecklistSet{
		names:  make([]string, len(cs.names)),
		values: make(map[string]Condition, len(cs.values)),
	}
	copy(next.names, cs.names)
	for k, v := range cs.values {
		next.values[k] = v
	}
	return next
}

// MarshalJSON encodes the set as an ordered array so display order survives.
func (cs ChecklistSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(cs.Items())
}

// UnmarshalJSON decodes an ordered array of items.
func (cs *ChecklistSet) UnmarshalJSON(data []byte) error {
	var items []ChecklistItem
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	next := ChecklistSet{
		names:  make([]string, 0, len(items)),
		values: make(map[string]Condition, len(items)),
	}
	for _, it := range items {
		if !it.Condition.Valid() {
			return fmt.Errorf("checklist item %q: %w", it.Name, ErrInvalidCondition)
		}
		if _, dup := next.values[it.Name]; dup {
			return fmt.Errorf("checklist item %q: duplicate name", it.Name)
		}
		next.names = append(next.names, it.Name)
		next.values[it.Name] = it.Condition
	}
	*cs = next
	return nil
}
