package cli

import (
	"testing"
)

func TestParseDate(t *testing.T) {
	d, err := parseDate(" 2024-03-15 ")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if d.Format(dateLayout) != "2024-03-15" {
		t.Errorf("Expected 2024-03-15, got %s", d.Format(dateLayout))
	}
	if _, err := parseDate("15/03/2024"); err == nil {
		t.Error("Expected error for a non ISO date")
	}
	if d, err := parseDate(""); err != nil || d.IsZero() {
		t.Errorf("Expected today for empty input, got %v, %v", d, err)
	}
}

func TestParseNumbers(t *testing.T) {
	if v, err := parseNonNegative("0"); err != nil || v != 0 {
		t.Errorf("Expected 0, got %v, %v", v, err)
	}
	if _, err := parseNonNegative("-1"); err == nil {
		t.Error("Expected error for a negative multiplier")
	}
	if _, err := parsePositive("0"); err == nil {
		t.Error("Expected error for zero capital")
	}
	if _, err := parseNonNegative("abc"); err == nil {
		t.Error("Expected error for a non number")
	}
}

func TestEditInput(t *testing.T) {
	e, err := EditInput{Index: 2, BuyPrice: "91.26", Qty: "4"}.Edit()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if e.Index != 2 {
		t.Errorf("Expected index 2, got %d", e.Index)
	}
	if e.BuyPrice == nil || *e.BuyPrice != 91.26 {
		t.Errorf("Expected buy price 91.26, got %v", e.BuyPrice)
	}
	if e.SellPrice != nil {
		t.Errorf("Expected sell price to be kept, got %v", *e.SellPrice)
	}
	if e.Qty == nil || *e.Qty != 4 {
		t.Errorf("Expected qty 4, got %v", e.Qty)
	}

	bad := []EditInput{
		{BuyPrice: "0"},
		{SellPrice: "-5"},
		{Qty: "0"},
		{Qty: "1.5"},
	}
	for _, in := range bad {
		if _, err := in.Edit(); err == nil {
			t.Errorf("Expected error for %+v", in)
		}
	}
}
