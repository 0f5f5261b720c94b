package extract

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "us format with symbol", input: "$1,234.56", want: "1234.56"},
		{name: "international format", input: "1.234,56", want: "1234.56"},
		{name: "plain dot decimal", input: "45.50", want: "45.5"},
		{name: "comma decimal", input: "45,50", want: "45.5"},
		{name: "symbol and spaces", input: " $ 45.50 ", want: "45.5"},
		{name: "euro suffix", input: "1 234,56 €", want: "1234.56"},
		{name: "label prefix", input: "Price: $52.00", want: "52"},
		{name: "multiple commas", input: "1,234,567.90", want: "1234567.9"},
		{name: "multiple dots", input: "1.234.567", want: "1234.567"},
		{name: "comma thousands comma decimal", input: "1,234,56", want: "1234.56"},
		{name: "integer", input: "199", want: "199"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePrice(tt.input)
			if err != nil {
				t.Fatalf("ParsePrice(%q) error: %v", tt.input, err)
			}
			want := decimal.RequireFromString(tt.want)
			if !got.Equal(want) {
				t.Fatalf("ParsePrice(%q) = %s, want %s", tt.input, got, want)
			}
		})
	}
}

func TestParsePriceFails(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "no digits", input: "Out of stock"},
		{name: "separators only", input: ".,"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePrice(tt.input)
			if err == nil {
				t.Fatalf("ParsePrice(%q) should fail", tt.input)
			}
			var extractionErr ExtractionError
			if !errors.As(err, &extractionErr) {
				t.Fatalf("error should be ExtractionError, got %T", err)
			}
			if extractionErr.Reason != ReasonParseFailed {
				t.Fatalf("reason = %q, want %q", extractionErr.Reason, ReasonParseFailed)
			}
		})
	}
}

const samplePage = `<html><body>
<div class="product">
  <h1 id="title">Widget</h1>
  <span class="price odd">$52.00</span>
  <span class="shipping">$4.99</span>
</div>
</body></html>`

func TestLocate(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		want     string
	}{
		{name: "class selector", selector: ".price", want: "$52.00"},
		{name: "id selector", selector: "#title", want: "Widget"},
		{name: "descendant selector", selector: "div.product span.shipping", want: "$4.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Locate([]byte(samplePage), tt.selector)
			if err != nil {
				t.Fatalf("Locate(%q) error: %v", tt.selector, err)
			}
			if got != tt.want {
				t.Fatalf("Locate(%q) = %q, want %q", tt.selector, got, tt.want)
			}
		})
	}
}

func TestLocateNoMatch(t *testing.T) {
	_, err := Locate([]byte(samplePage), ".does-not-exist")
	if err == nil {
		t.Fatalf("expected error for unmatched selector")
	}
	var extractionErr ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("error should be ExtractionError, got %T", err)
	}
	if extractionErr.Reason != ReasonSelectorNotFound {
		t.Fatalf("reason = %q, want %q", extractionErr.Reason, ReasonSelectorNotFound)
	}
}

func TestPrice(t *testing.T) {
	got, err := Price([]byte(samplePage), ".price")
	if err != nil {
		t.Fatalf("Price error: %v", err)
	}
	if want := decimal.RequireFromString("52.00"); !got.Equal(want) {
		t.Fatalf("Price = %s, want %s", got, want)
	}
}

func TestPriceUnparseableText(t *testing.T) {
	page := `<html><body><span class="price">Call us</span></body></html>`
	_, err := Price([]byte(page), ".price")
	var extractionErr ExtractionError
	if !errors.As(err, &extractionErr) || extractionErr.Reason != ReasonParseFailed {
		t.Fatalf("expected parse_failed extraction error, got %v", err)
	}
}
