package models

import "fmt"

// RiskLevel - уровень риска инцидента, упорядочен: low < medium < high
type RiskLevel int

const (
	RiskLow RiskLevel = iota + 1
	RiskMedium
	RiskHigh
)

// ParseRiskLevel разбирает текстовое представление уровня риска
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch s {
	case "low":
		return RiskLow, nil
	case "medium":
		return RiskMedium, nil
	case "high":
		return RiskHigh, nil
	}
	return 0, fmt.Errorf("unknown risk level %q", s)
}

func (r RiskLevel) Valid() bool {
	return r >= RiskLow && r <= RiskHigh
}

func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	}
	return fmt.Sprintf("RiskLevel(%d)", int(r))
}

func (r RiskLevel) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid risk level %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *RiskLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseRiskLevel(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Clamp ограничивает уровень диапазоном [lo, hi]
func (r RiskLevel) Clamp(lo, hi RiskLevel) RiskLevel {
	if r < lo {
		return lo
	}
	if r > hi {
		return hi
	}
	return r
}
