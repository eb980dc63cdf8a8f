package core

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestBillValidate(t *testing.T) {
	good := Bill{Email: "a@a", Type: "Transports", Amount: 10, Status: StatusPending}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []struct {
		bill Bill
		want error
	}{
		{Bill{Email: "", Status: StatusPending}, ErrEmptyEmail},
		{Bill{Email: "a@a", Status: "draft"}, ErrInvalidStatus},
		{Bill{Email: "a@a", Status: StatusPending, Type: "Voyage"}, ErrInvalidExpenseType},
		{Bill{Email: "a@a", Status: StatusPending, Amount: -1}, ErrNegativeAmount},
	}
	for i, tc := range bads {
		if err := tc.bill.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("case %d expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestBillJSONNullFileFields(t *testing.T) {
	b := Bill{Email: "a@a", Pct: 20, Status: StatusPending}
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"fileUrl":null`) || !strings.Contains(string(data), `"fileName":null`) {
		t.Fatalf("expected null file fields: %s", data)
	}
	if b.HasProof() {
		t.Fatalf("bill without file fields should not have a proof")
	}
	b.FileURL, b.FileName = StringPtr("u"), StringPtr("n")
	if !b.HasProof() || Deref(b.FileName) != "n" || Deref(nil) != "" {
		t.Fatalf("unexpected proof helpers result")
	}
}
