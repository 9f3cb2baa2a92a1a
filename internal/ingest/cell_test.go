package ingest_test

import (
	"testing"
	"time"

	"diligence-backend/internal/ingest"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"plain decimal", "1000.00", "1000.00", true},
		{"currency symbol and thousands", "$1,000.00", "1000.00", true},
		{"accounting negative", "(500.00)", "-500.00", true},
		{"european format", "1.234,56", "1234.56", true},
		{"negative integer", "-500", "-500.00", true},
		{"lone dash is zero", "-", "0.00", true},
		{"blank is missing", "", "", false},
		{"whitespace only is missing", "   ", "", false},
		{"single comma as decimal", "12,5", "12.50", true},
		{"single comma as thousands", "1,000", "1000.00", true},
		{"comma with three digits after", "12,500", "12500.00", true},
		{"spaces and symbol", "€ 2 500,75", "2500.75", true},
		{"parens with symbol", "($1,250.50)", "-1250.50", true},
		{"digitless text cleans to zero", "N/A", "0.00", true},
		{"letters only clean to zero", "pending", "0.00", true},
		{"multiple decimal points", "12.34.56", "", false},
		{"date in amount cell", "2024-01-15", "", false},
		{"zero", "0", "0.00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ingest.ParseAmount(tt.input)
			if ok != tt.ok {
				t.Fatalf("ParseAmount(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if !tt.ok {
				return
			}
			want, err := decimal.NewFromString(tt.want)
			if err != nil {
				t.Fatalf("bad expectation %q: %v", tt.want, err)
			}
			if !got.Equal(want) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

// Parsing the rendered form of a parsed decimal must yield an equal decimal.
func TestParseAmount_RoundTrip(t *testing.T) {
	inputs := []string{"1000.00", "$1,000.00", "(500.00)", "1.234,56", "-500", "0.01"}

	for _, input := range inputs {
		first, ok := ingest.ParseAmount(input)
		if !ok {
			t.Fatalf("ParseAmount(%q) unexpectedly failed", input)
		}
		second, ok := ingest.ParseAmount(first.String())
		if !ok {
			t.Fatalf("ParseAmount(%q) round-trip failed", first.String())
		}
		if !first.Equal(second) {
			t.Errorf("round-trip mismatch for %q: %s != %s", input, first, second)
		}
	}
}

func TestParseDate(t *testing.T) {
	cfg := ingest.DefaultConfig()

	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"iso", "2024-01-15", "2024-01-15", true},
		{"us slash", "01/15/2024", "2024-01-15", true},
		{"us slash unpadded", "1/5/2024", "2024-01-05", true},
		{"day first", "25/01/2024", "2024-01-25", true},
		{"hyphenated us", "01-15-2024", "2024-01-15", true},
		{"named month", "Jan 15, 2024", "2024-01-15", true},
		{"full month", "January 15, 2024", "2024-01-15", true},
		{"day month year", "15 Jan 2024", "2024-01-15", true},
		{"two digit year", "01/15/24", "2024-01-15", true},
		{"timestamp fallback", "2024-01-15 10:30:00", "2024-01-15", true},
		{"blank", "", "", false},
		{"garbage", "not a date", "", false},
		{"bare number", "12345", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ingest.ParseDate(tt.input, cfg.DateFormats)
			if ok != tt.ok {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			}
			if !tt.ok {
				return
			}
			if got.Format("2006-01-02") != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got.Format("2006-01-02"), tt.want)
			}
		})
	}
}

func TestParseDate_AmbiguousPrefersUSOrder(t *testing.T) {
	cfg := ingest.DefaultConfig()
	// 01/02/2024 is ambiguous; the US layout comes first in the format list.
	got, ok := ingest.ParseDate("01/02/2024", cfg.DateFormats)
	if !ok {
		t.Fatal("expected parse to succeed")
	}
	want := time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}
