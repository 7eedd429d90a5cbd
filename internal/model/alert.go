package model

import "time"

// AlertCondition is the direction a price alert watches.
type AlertCondition string

const (
	ConditionAbove AlertCondition = "above"
	ConditionBelow AlertCondition = "below"
)

// Valid reports whether the condition is a known value.
func (c AlertCondition) Valid() bool {
	return c == ConditionAbove || c == ConditionBelow
}

// Alert is a user-defined price threshold on a symbol that fires once.
type Alert struct {
	ID          string         `json:"id"`
	Symbol      string         `json:"symbol"`
	TargetPrice float64        `json:"target_price"`
	Condition   AlertCondition `json:"condition"`
	IsTriggered bool           `json:"is_triggered"`
	CreatedAt   time.Time      `json:"created_at"`
	TriggeredAt *time.Time     `json:"triggered_at,omitempty"`
	Notes       string         `json:"notes,omitempty"`
}

// ShouldTrigger reports whether the given price crosses the alert threshold.
// Above triggers at price >= target, below at price <= target.
func (a *Alert) ShouldTrigger(price float64) bool {
	if a.IsTriggered {
		return false
	}
	switch a.Condition {
	case ConditionAbove:
		return price >= a.TargetPrice
	case ConditionBelow:
		return price <= a.TargetPrice
	default:
		return false
	}
}

// SameRule reports whether two alerts watch the identical
// (symbol, target price, condition) tuple.
func (a *Alert) SameRule(b *Alert) bool {
	return a.Symbol == b.Symbol && a.TargetPrice == b.TargetPrice && a.Condition == b.Condition
}
