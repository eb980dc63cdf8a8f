package core

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrUnknownStatus = errors.New("unknown status")

var frenchShortMonths = [12]string{
	"janv.", "févr.", "mars", "avr.", "mai", "juin",
	"juil.", "août", "sept.", "oct.", "nov.", "déc.",
}

var statusLabels = map[Status]string{
	StatusPending:  "En attente",
	StatusAccepted: "Accepté",
	StatusRefused:  "Refusé",
}

// FormatDate renders a YYYY-MM-DD date in the short French form used by the
// bills table, e.g. "2004-04-04" becomes "4 Avr. 04".
func FormatDate(raw string) (string, error) {
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return "", fmt.Errorf("format date %q: %w", raw, err)
	}
	// Casers keep state between calls, so one per call.
	month := []rune(cases.Title(language.French).String(frenchShortMonths[t.Month()-1]))
	if len(month) > 3 {
		month = month[:3]
	}
	year := strconv.Itoa(t.Year())
	if len(year) > 2 {
		year = year[2:]
	}
	return fmt.Sprintf("%d %s. %s", t.Day(), string(month), year), nil
}

// FormatStatus translates a status code into its display label.
func FormatStatus(s Status) (string, error) {
	label, ok := statusLabels[s]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return label, nil
}

// SortAntiChrono orders bills most recent first on their raw date. The sort
// is stable; bills with unparsable dates go after the dated ones, keeping
// their relative order.
func SortAntiChrono(bills []Bill) {
	type entry struct {
		bill Bill
		t    time.Time
		ok   bool
	}
	entries := make([]entry, len(bills))
	for i, b := range bills {
		t, err := time.Parse(DateLayout, b.Date)
		entries[i] = entry{bill: b, t: t, ok: err == nil}
	}
	slices.SortStableFunc(entries, func(a, b entry) int {
		switch {
		case a.ok && !b.ok:
			return -1
		case !a.ok && b.ok:
			return 1
		case !a.ok && !b.ok:
			return 0
		}
		return b.t.Compare(a.t)
	})
	for i, e := range entries {
		bills[i] = e.bill
	}
}
