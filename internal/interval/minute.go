// Package interval содержит арифметику интервалов инцидента: минуты суток
// с переходом через полночь и календарные диапазоны дат.
package interval

import (
	"fmt"
	"strconv"
	"strings"
)

// MinutesPerDay - количество минут в сутках
const MinutesPerDay = 24 * 60

// Minute - время суток в минутах от полуночи, 0..1439
type Minute int

// NewMinute собирает минуту суток из часов и минут
func NewMinute(hour, minute int) (Minute, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time of day %02d:%02d is out of range", hour, minute)
	}
	return Minute(hour*60 + minute), nil
}

// ParseMinute разбирает время в формате "HH:mm"
func ParseMinute(s string) (Minute, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 || !digits(hh) || !digits(mm) {
		return 0, fmt.Errorf("invalid time of day %q: expected HH:mm", s)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("invalid hour in %q: %w", s, err)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("invalid minute in %q: %w", s, err)
	}
	return NewMinute(hour, minute)
}

// Valid сообщает, лежит ли значение в пределах суток
func (m Minute) Valid() bool {
	return m >= 0 && m < MinutesPerDay
}

// Add сдвигает время на delta минут по модулю суток
func (m Minute) Add(delta int) Minute {
	return Minute(mod(int(m)+delta, MinutesPerDay))
}

// Until возвращает сдвиг вперед от m до other, 0..1439
func (m Minute) Until(other Minute) int {
	return mod(int(other)-int(m), MinutesPerDay)
}

func (m Minute) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

func (m Minute) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("minute of day %d is out of range", int(m))
	}
	return []byte(m.String()), nil
}

func (m *Minute) UnmarshalText(text []byte) error {
	parsed, err := ParseMinute(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func mod(a, n int) int {
	return ((a % n) + n) % n
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
