package fields

import (
	"reflect"
	"testing"
)

func TestAll(t *testing.T) {
	fs, err := All()
	if err != nil {
		t.Fatalf("All() error: %v", err)
	}
	if len(fs) == 0 {
		t.Fatal("expected embedded fields")
	}
	for _, f := range fs {
		if f.Key == "" || f.Label == "" {
			t.Errorf("field %+v missing key or label", f)
		}
	}
}

func TestLookup(t *testing.T) {
	f, ok := Lookup("email")
	if !ok {
		t.Fatal("email should be a common field")
	}
	if f.Kind != "email" {
		t.Errorf("Kind = %q, want email", f.Kind)
	}
	if _, ok := Lookup("favourite_colour"); ok {
		t.Error("unexpected field")
	}
}

func TestLabel(t *testing.T) {
	if got := Label("order_id"); got != "Order number" {
		t.Errorf("Label(order_id) = %q", got)
	}
	if got := Label("custom_key"); got != "custom_key" {
		t.Errorf("Label(custom_key) = %q, want key echoed", got)
	}
}

func TestUnknown(t *testing.T) {
	got := Unknown([]string{"email", "loyalty_id", "name", "plan"})
	want := []string{"loyalty_id", "plan"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Unknown() = %v, want %v", got, want)
	}
}
