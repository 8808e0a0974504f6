package ingest

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var currencyMarks = []string{"руб.", "руб", "RUB", "USD", "EUR", "₽", "$", "€", "£"}

// ParsePrice reads a human formatted price such as "1 299,50 ₽" or "$9.99".
func ParsePrice(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	for _, mark := range currencyMarks {
		s = strings.ReplaceAll(s, mark, "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return decimal.Decimal{}, errors.New("empty price")
	}

	if strings.Contains(s, ",") {
		normalized, err := normalizeCommas(s)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("parse price %q: %w", raw, err)
		}
		s = normalized
	}

	price, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse price %q: %w", raw, err)
	}
	if price.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative price %q", raw)
	}
	return price, nil
}

// normalizeCommas resolves commas into a plain decimal string. With a dot
// present commas group thousands. Without one, commas that each precede
// exactly three digits group thousands ("1,299"), a single comma before one
// or two digits is the decimal separator ("199,90"), and anything else is
// ambiguous.
func normalizeCommas(s string) (string, error) {
	if strings.Contains(s, ".") {
		return strings.ReplaceAll(s, ",", ""), nil
	}

	parts := strings.Split(s, ",")
	grouped := true
	for _, part := range parts[1:] {
		if len(part) != 3 {
			grouped = false
			break
		}
	}
	switch {
	case grouped:
		return strings.Join(parts, ""), nil
	case len(parts) == 2 && len(parts[1]) > 0 && len(parts[1]) < 3:
		return parts[0] + "." + parts[1], nil
	default:
		return "", errors.New("ambiguous comma")
	}
}
