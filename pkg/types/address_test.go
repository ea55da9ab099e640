package types

import "testing"

func TestAddressScanRoundTrip(t *testing.T) {
	line2 := "Apt 4"
	addr := Address{
		Name:       "Sam Ortiz",
		Line1:      "1 Main St",
		Line2:      &line2,
		City:       "Portland",
		State:      "OR",
		PostalCode: "97201",
		Country:    "US",
	}

	raw, err := addr.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var decoded Address
	if err := decoded.Scan(raw); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if decoded.Line1 != addr.Line1 || decoded.City != addr.City {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
	if decoded.Line2 == nil || *decoded.Line2 != line2 {
		t.Fatalf("line2 lost: %+v", decoded.Line2)
	}
}

func TestAddressDefaultsCountry(t *testing.T) {
	var decoded Address
	if err := decoded.Scan([]byte(`{"name":"Sam","line1":"1 Main St","city":"Portland","postal_code":"97201"}`)); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if decoded.Country != "US" {
		t.Fatalf("expected US default, got %q", decoded.Country)
	}
}

func TestAddressValueRejectsIncomplete(t *testing.T) {
	if _, err := (Address{Name: "Sam"}).Value(); err == nil {
		t.Fatal("expected validation error for missing line1")
	}
}
