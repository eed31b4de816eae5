package indiaquant

import "testing"

func TestPercent(t *testing.T) {
	if got := Percent(2.5).String(); got != "2.50%" {
		t.Errorf("String = %q, want 2.50%%", got)
	}
	if got := Percent(-1.234).SignedString(); got != "-1.23%" {
		t.Errorf("SignedString = %q, want -1.23%%", got)
	}
	if got := Percent(1.2).SignedString(); got != "+1.20%" {
		t.Errorf("SignedString = %q, want +1.20%%", got)
	}
	if got := Percent(0).SignedString(); got != "-" {
		t.Errorf("SignedString of zero = %q, want -", got)
	}
	if !Percent(1.00001).Equal(1.0) {
		t.Error("Equal rejects values within its precision")
	}
	if Percent(1.1).Equal(1.0) {
		t.Error("Equal accepts values apart by a tenth of a percent")
	}
}
