package datefmt

import "testing"

func TestNormalizeTruncatesFractionalSeconds(t *testing.T) {
	got := Normalize("2024-01-01T00:00:00.123456")
	want := "Mon, 01 Jan 2024 00:00:00 GMT"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNormalizeNanosecondPrecision(t *testing.T) {
	got := Normalize("2024-06-15T12:30:45.123456789")
	want := "Sat, 15 Jun 2024 12:30:45 GMT"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNormalizeAlreadyNormalized(t *testing.T) {
	first := Normalize("2024-01-01T00:00:00.123Z")
	second := Normalize("2024-01-01T00:00:00.123456Z")
	if first != second {
		t.Fatalf("expected identical renderings, got %q and %q", first, second)
	}
	if first != "Mon, 01 Jan 2024 00:00:00 GMT" {
		t.Fatalf("unexpected rendering: %q", first)
	}
}

func TestNormalizeWithoutFraction(t *testing.T) {
	for _, raw := range []string{"2024-03-10T08:00:00", "2024-03-10T08:00:00Z"} {
		got := Normalize(raw)
		if got != "Sun, 10 Mar 2024 08:00:00 GMT" {
			t.Fatalf("Normalize(%q) = %q", raw, got)
		}
	}
}

func TestNormalizeInvalid(t *testing.T) {
	for _, raw := range []string{"not-a-date", "", "2024-13-40T99:00:00"} {
		if got := Normalize(raw); got != InvalidDate {
			t.Fatalf("Normalize(%q) = %q, expected %q", raw, got, InvalidDate)
		}
	}
}
