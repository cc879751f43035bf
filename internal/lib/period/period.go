// Package period содержит вычисление периодов отчетов: готовые кнопочные
// периоды и разбор произвольного периода из текста оператора.
package period

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout формат дат, в котором операторы вводят произвольный период.
const DateLayout = "02.01.2006"

// ErrBadFormat возвращается, когда текст периода не совпадает ни с одним
// из поддерживаемых форматов.
var ErrBadFormat = errors.New("period: bad date format")

// Range полуоткрытый по смыслу период отчета [From, To].
type Range struct {
	From time.Time
	To   time.Time
}

// String форматирует период для заголовка отчета.
func (r Range) String() string {
	return fmt.Sprintf("%s - %s", r.From.Format(DateLayout), r.To.Format(DateLayout))
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return startOfDay(t).AddDate(0, 0, 1).Add(-time.Second)
}

// Today период с начала текущих суток до now.
func Today(now time.Time) Range {
	return Range{From: startOfDay(now), To: now}
}

// Yesterday полные вчерашние сутки.
func Yesterday(now time.Time) Range {
	y := now.AddDate(0, 0, -1)
	return Range{From: startOfDay(y), To: endOfDay(y)}
}

// ThisWeek период с понедельника текущей недели до now.
func ThisWeek(now time.Time) Range {
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := now.AddDate(0, 0, -(weekday - 1))
	return Range{From: startOfDay(monday), To: now}
}

// ThisMonth период с первого числа текущего месяца до now.
func ThisMonth(now time.Time) Range {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return Range{From: first, To: now}
}

// Last30Days последние 30 суток, начало выравнивается на полночь.
func Last30Days(now time.Time) Range {
	return Range{From: startOfDay(now.AddDate(0, 0, -30)), To: now}
}

// ParseCustom разбирает произвольный период, введенный оператором:
// либо одна дата "02.01.2006" (отчет за один день), либо диапазон
// "02.01.2006 - 02.01.2006". Конец периода включает весь последний день.
func ParseCustom(text string, loc *time.Location) (Range, error) {
	text = strings.TrimSpace(text)

	if from, to, ok := strings.Cut(text, "-"); ok {
		start, err := time.ParseInLocation(DateLayout, strings.TrimSpace(from), loc)
		if err != nil {
			return Range{}, ErrBadFormat
		}
		end, err := time.ParseInLocation(DateLayout, strings.TrimSpace(to), loc)
		if err != nil {
			return Range{}, ErrBadFormat
		}
		if end.Before(start) {
			return Range{}, ErrBadFormat
		}
		return Range{From: start, To: endOfDay(end)}, nil
	}

	day, err := time.ParseInLocation(DateLayout, text, loc)
	if err != nil {
		return Range{}, ErrBadFormat
	}
	return Range{From: day, To: endOfDay(day)}, nil
}
