package interval

import "cloud.google.com/go/civil"

// TimeWindow - окно времени суток [Start, End]. Если End < Start,
// окно переходит через полночь.
type TimeWindow struct {
	Start Minute `json:"start"`
	End   Minute `json:"end"`
}

// PointWindow возвращает окно, состоящее из одной минуты
func PointWindow(m Minute) TimeWindow {
	return TimeWindow{Start: m, End: m}
}

// CrossesMidnight сообщает, переходит ли окно через полночь
func (w TimeWindow) CrossesMidnight() bool {
	return w.End < w.Start
}

// Span возвращает длину окна в минутах (от Start до End вперед)
func (w TimeWindow) Span() int {
	return w.Start.Until(w.End)
}

// Contains проверяет принадлежность минуты окну с учетом перехода через полночь
func (w TimeWindow) Contains(m Minute) bool {
	if w.CrossesMidnight() {
		return m >= w.Start || m <= w.End
	}
	return w.Start <= m && m <= w.End
}

// ContainsWithin проверяет принадлежность минуты окну, расширенному
// на tolerance минут в обе стороны
func (w TimeWindow) ContainsWithin(m Minute, tolerance int) bool {
	if tolerance <= 0 {
		return w.Contains(m)
	}
	// расширенное окно покрывает все сутки
	if w.Span()+2*tolerance >= MinutesPerDay-1 {
		return true
	}
	widened := TimeWindow{Start: w.Start.Add(-tolerance), End: w.End.Add(tolerance)}
	return widened.Contains(m)
}

// Extend возвращает самое узкое окно, покрывающее и текущее окно, и m.
// Сдвигается та граница, до которой от m ближе; при равенстве - End.
func (w TimeWindow) Extend(m Minute) TimeWindow {
	if w.Contains(m) {
		return w
	}
	toStart := m.Until(w.Start)
	toEnd := w.End.Until(m)
	if toStart < toEnd {
		return TimeWindow{Start: m, End: w.End}
	}
	return TimeWindow{Start: w.Start, End: m}
}

// DateRange - календарный диапазон дат [Start, End] включительно
type DateRange struct {
	Start civil.Date `json:"start"`
	End   civil.Date `json:"end"`
}

// PointRange возвращает диапазон из одной даты
func PointRange(d civil.Date) DateRange {
	return DateRange{Start: d, End: d}
}

// Valid проверяет, что Start <= End
func (r DateRange) Valid() bool {
	return r.Start.IsValid() && r.End.IsValid() && !r.End.Before(r.Start)
}

// Contains проверяет, что дата лежит в диапазоне
func (r DateRange) Contains(d civil.Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// ContainsWithin проверяет дату против диапазона, расширенного на days дней
func (r DateRange) ContainsWithin(d civil.Date, days int) bool {
	if days < 0 {
		days = 0
	}
	return DateRange{Start: r.Start.AddDays(-days), End: r.End.AddDays(days)}.Contains(d)
}

// Extend расширяет диапазон так, чтобы он включал d
func (r DateRange) Extend(d civil.Date) DateRange {
	switch {
	case d.Before(r.Start):
		return DateRange{Start: d, End: r.End}
	case d.After(r.End):
		return DateRange{Start: r.Start, End: d}
	default:
		return r
	}
}
