package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OrderStatus is the lifecycle state of an order. The stored value is the
// variant name; display text is derived with Display.
type OrderStatus string

const (
	StatusSubmitted OrderStatus = "submitted"
	StatusProcessed OrderStatus = "processed"
	StatusIssued    OrderStatus = "issued"
)

var _transitions = map[OrderStatus][]OrderStatus{
	StatusSubmitted: {StatusSubmitted, StatusProcessed},
	StatusProcessed: {StatusProcessed, StatusIssued},
	StatusIssued:    {StatusIssued},
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "submitted":
		return StatusSubmitted, nil
	case "processed", "response sent":
		return StatusProcessed, nil
	case "issued", "loan issued":
		return StatusIssued, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

func (s OrderStatus) Valid() bool {
	_, ok := _transitions[s]
	return ok
}

func (s OrderStatus) Display() string {
	switch s {
	case StatusSubmitted:
		return "Submitted"
	case StatusProcessed:
		return "Processed"
	case StatusIssued:
		return "Loan issued"
	}
	return string(s)
}

// CanTransition reports whether an order in state from may move to state to.
// Staying in the same state is allowed so the active flag can be toggled alone.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range _transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func CheckTransition(from, to OrderStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("order: %w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func (o Order) MarshalJSON() ([]byte, error) {
	type plain Order
	return json.Marshal(struct {
		plain
		StatusText string `json:"status_text"`
	}{
		plain:      plain(o),
		StatusText: o.Status.Display(),
	})
}
