package core

import (
	"errors"
	"testing"
)

func TestFormatDate(t *testing.T) {
	cases := []struct {
		in, out string
	}{
		{"2004-04-04", "4 Avr. 04"},
		{"2023-06-15", "15 Jui. 23"},
		{"2023-02-01", "1 Fév. 23"},
		{"2022-12-31", "31 Déc. 22"},
		{"2021-08-09", "9 Aoû. 21"},
	}
	for _, tc := range cases {
		got, err := FormatDate(tc.in)
		if err != nil || got != tc.out {
			t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.out, got, err)
		}
	}
	for _, bad := range []string{"not-a-date", "", "2023-13-01", "15/06/2023"} {
		if _, err := FormatDate(bad); err == nil {
			t.Fatalf("%q expected error", bad)
		}
	}
}

func TestFormatStatus(t *testing.T) {
	cases := map[Status]string{
		StatusPending:  "En attente",
		StatusAccepted: "Accepté",
		StatusRefused:  "Refusé",
	}
	for in, want := range cases {
		got, err := FormatStatus(in)
		if err != nil || got != want {
			t.Fatalf("%q expected %q, got %q (err=%v)", in, want, got, err)
		}
	}
	if _, err := FormatStatus("archived"); !errors.Is(err, ErrUnknownStatus) {
		t.Fatalf("expected ErrUnknownStatus, got %v", err)
	}
}

func TestSortAntiChrono(t *testing.T) {
	bills := []Bill{
		{ID: "a", Date: "2023-01-01"},
		{ID: "bad", Date: "not-a-date"},
		{ID: "b", Date: "2023-06-15"},
		{ID: "c", Date: "2022-12-31"},
		{ID: "d", Date: "2023-01-01"},
		{ID: "empty", Date: ""},
	}
	SortAntiChrono(bills)
	want := []string{"b", "a", "d", "c", "bad", "empty"}
	for i, id := range want {
		if bills[i].ID != id {
			t.Fatalf("position %d expected %s, got %s (%v)", i, id, bills[i].ID, bills)
		}
	}
}
