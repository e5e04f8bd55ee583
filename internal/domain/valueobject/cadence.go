package valueobject

import (
	"fmt"
	"strings"
)

// Cadence задает периодичность отправки отчета (Value Object)
type Cadence string

const (
	CadenceNone    Cadence = ""
	CadenceWeekly  Cadence = "weekly"
	CadenceMonthly Cadence = "monthly"
)

// ParseCadence accepts the stored tag in any case; blank means no cadence.
func ParseCadence(raw string) (Cadence, error) {
	c := Cadence(strings.ToLower(strings.TrimSpace(raw)))
	if err := c.Validate(); err != nil {
		return CadenceNone, err
	}
	return c, nil
}

// Validate проверяет валидность периодичности
func (c Cadence) Validate() error {
	switch c {
	case CadenceNone, CadenceWeekly, CadenceMonthly:
		return nil
	default:
		return fmt.Errorf("invalid cadence %q", string(c))
	}
}

// IsScheduled reports whether definitions with this cadence take part in
// scheduled dispatch.
func (c Cadence) IsScheduled() bool {
	return c == CadenceWeekly || c == CadenceMonthly
}

func (c Cadence) String() string {
	if c == CadenceNone {
		return "none"
	}
	return string(c)
}

// ScheduledCadences возвращает все периодичности, участвующие в рассылке
func ScheduledCadences() []Cadence {
	return []Cadence{CadenceWeekly, CadenceMonthly}
}
