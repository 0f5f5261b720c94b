// Package extract applies a CSS selector to a fetched page and parses
// the matched text into a decimal price.
package extract

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
)

// Extraction failure reasons, recorded as observation statuses.
const (
	ReasonSelectorNotFound = "selector_not_found"
	ReasonParseFailed      = "parse_failed"
)

// ExtractionError indicates that a page could not be reduced to a price.
type ExtractionError struct {
	Reason string
	Err    error
}

func (e ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extract: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("extract: %s", e.Reason)
}

func (e ExtractionError) Unwrap() error {
	return e.Err
}

// nonPrice matches everything that is not a digit, separator, or space.
var nonPrice = regexp.MustCompile(`[^\d,.\s]`)

// Locate applies selector to body and returns the trimmed text of the
// first match.
func Locate(body []byte, selector string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", ExtractionError{Reason: ReasonParseFailed, Err: err}
	}
	match := doc.Find(selector).First()
	if match.Length() == 0 {
		return "", ExtractionError{Reason: ReasonSelectorNotFound}
	}
	return strings.TrimSpace(match.Text()), nil
}

// ParsePrice extracts a decimal from price-ish text. Both US-style
// (1,234.56) and international (1.234,56) formats are handled; when both
// separators appear the one occurring last is the decimal mark.
func ParsePrice(text string) (decimal.Decimal, error) {
	s := nonPrice.ReplaceAllString(strings.TrimSpace(text), "")
	s = strings.ReplaceAll(s, " ", "")
	s = strings.TrimSpace(s)

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// Comma decimal: drop thousand dots, then promote the comma.
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		// A lone comma is a decimal mark; with several, the last one is.
		if strings.Count(s, ",") > 1 {
			parts := strings.Split(s, ",")
			s = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	case hasDot:
		if strings.Count(s, ".") > 1 {
			parts := strings.Split(s, ".")
			s = strings.Join(parts[:len(parts)-1], "") + "." + parts[len(parts)-1]
		}
	}

	if s == "" {
		return decimal.Decimal{}, ExtractionError{Reason: ReasonParseFailed}
	}
	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ExtractionError{Reason: ReasonParseFailed, Err: err}
	}
	return price, nil
}

// Price is the combined pipeline step: locate the selector's text node
// and parse it.
func Price(body []byte, selector string) (decimal.Decimal, error) {
	text, err := Locate(body, selector)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return ParsePrice(text)
}
