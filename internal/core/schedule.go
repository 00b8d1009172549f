package core

import (
	"fmt"
	"time"
)

// Fixed-series horizons per frequency: a "fixed" charge has no explicit end,
// so entries are generated for a large fixed window ahead.
const (
	FixedMonths  = 60
	FixedWeeks   = 52
	FixedBiweeks = 26
	FixedYears   = 5
)

// SeriesTemplate is the input of the recurrence expander: one user action
// that fans out into a dated sequence of entries.
type SeriesTemplate struct {
	Description   string
	Total         Money // full amount; split across installments for Parcelada
	Kind          EntryKind
	Start         time.Time
	SeriesKind    SeriesKind
	Frequency     Frequency
	Count         int // installment count; ignored for Fixa
	Funding       Funding
	SubcategoryID int64
}

// NormalizeFrequency maps a form value onto a known frequency,
// falling back to Mensal for anything unrecognized.
func NormalizeFrequency(s string) Frequency {
	switch Frequency(s) {
	case Semanal, Quinzenal, Mensal, Anual:
		return Frequency(s)
	default:
		return Mensal
	}
}

// FixedHorizon returns how many entries a fixed series generates
// for the given frequency.
func FixedHorizon(freq Frequency) int {
	switch freq {
	case Semanal:
		return FixedWeeks
	case Quinzenal:
		return FixedBiweeks
	case Anual:
		return FixedYears
	default:
		return FixedMonths
	}
}

// AdvanceDue returns the due date of the i-th occurrence (0-based) of a
// series starting at start. Weekly steps are 7 days and biweekly steps are
// 15 days (a policy choice, not calendar-exact half months). Monthly and
// annual steps keep the start's day-of-month, clamped to the length of the
// target month.
func AdvanceDue(start time.Time, freq Frequency, i int) time.Time {
	switch freq {
	case Semanal:
		return start.AddDate(0, 0, 7*i)
	case Quinzenal:
		return start.AddDate(0, 0, 15*i)
	case Anual:
		return addMonthsClamped(start, 12*i)
	default:
		return addMonthsClamped(start, i)
	}
}

// addMonthsClamped adds months keeping the day-of-month where the target
// month allows it, otherwise clamping to the month's last day. time.AddDate
// normalizes overflow (Jan 31 + 1 month = Mar 2/3), which is not what a due
// date should do.
func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	m += time.Month(months)
	last := lastDayOfMonth(y, m)
	if d > last {
		d = last
	}
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// lastDayOfMonth handles month overflow/underflow via time.Date normalization.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay builds a date for (year, month, day) clamping the day to the
// month's length, e.g. day 31 in February resolves to February's last day.
func ClampDay(year, month, day int) time.Time {
	last := lastDayOfMonth(year, time.Month(month))
	if day > last {
		day = last
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// SplitInstallments divides a total (in cents) across count installments.
// Every installment gets total/count and the last one also receives the
// integer remainder, so the installments always sum back to the exact total.
func SplitInstallments(total Money, count int) ([]Money, error) {
	if count < 1 {
		return nil, ErrInvalidCount
	}
	base := total.Cents / int64(count)
	remainder := total.Cents % int64(count)
	parts := make([]Money, count)
	for i := range parts {
		parts[i] = Money{Cents: base}
	}
	parts[count-1].Cents += remainder
	return parts, nil
}

// InstallmentLabel stamps the ordinal suffix on an installment description,
// e.g. "Notebook (3/12)".
func InstallmentLabel(desc string, ordinal, total int) string {
	return fmt.Sprintf("%s (%d/%d)", desc, ordinal, total)
}

// ExpandSeries turns a template into the ordered entry drafts of the series.
// Installment series split the total and stamp ordinal labels; fixed series
// repeat the full amount under the unchanged description over the fixed
// horizon for their frequency. SeriesID is left unset; the caller assigns it
// after persisting the series record.
func ExpandSeries(tmpl SeriesTemplate) ([]Entry, error) {
	if tmpl.Start.IsZero() {
		return nil, ErrInvalidDueDate
	}

	count := tmpl.Count
	if tmpl.SeriesKind == Fixa {
		count = FixedHorizon(tmpl.Frequency)
	}

	var amounts []Money
	if tmpl.SeriesKind == Parcelada {
		parts, err := SplitInstallments(tmpl.Total, count)
		if err != nil {
			return nil, err
		}
		amounts = parts
	} else {
		if count < 1 {
			return nil, ErrInvalidCount
		}
		amounts = make([]Money, count)
		for i := range amounts {
			amounts[i] = tmpl.Total
		}
	}

	entries := make([]Entry, count)
	for i := 0; i < count; i++ {
		desc := tmpl.Description
		if tmpl.SeriesKind == Parcelada {
			desc = InstallmentLabel(tmpl.Description, i+1, count)
		}
		entries[i] = Entry{
			Description:   desc,
			Amount:        amounts[i],
			Kind:          tmpl.Kind,
			DueDate:       AdvanceDue(tmpl.Start, tmpl.Frequency, i),
			Status:        Pendente,
			Funding:       tmpl.Funding,
			SubcategoryID: tmpl.SubcategoryID,
		}
		if err := entries[i].Validate(); err != nil {
			return nil, fmt.Errorf("occurrence %d: %w", i+1, err)
		}
	}
	return entries, nil
}
