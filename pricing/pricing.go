// Package pricing turns display prices into numbers and tests them against
// the notification band.
package pricing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	currencyReplacer = strings.NewReplacer("₪", "", "$", "", "€", "", "£", "", ",", "", " ", "")
	leadingNumber    = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)`)
)

// Default band used when none is configured.
var DefaultRange = Range{Min: 10000, Max: 100000}

// Parsed prices must fit the INTEGER price_numeric column.
const (
	maxPrice = math.MaxInt32
	minPrice = math.MinInt32
)

// Parse strips currency symbols and thousands separators and truncates the
// leading number to an integer. It reports false when no number is left or
// the number is out of range.
func Parse(display string) (int, bool) {
	cleaned := strings.TrimSpace(currencyReplacer.Replace(display))
	num := leadingNumber.FindString(cleaned)
	if num == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	f = math.Floor(f)
	if f > maxPrice || f < minPrice {
		return 0, false
	}
	return int(f), true
}

// Range is an inclusive price band.
type Range struct {
	Min int `yaml:"min" json:"min"`
	Max int `yaml:"max" json:"max"`
}

// Contains reports whether the display price parses and lies within the band.
// Unparseable prices are never in range.
func (r Range) Contains(display string) bool {
	price, ok := Parse(display)
	if !ok {
		return false
	}
	return r.ContainsValue(price)
}

func (r Range) ContainsValue(price int) bool {
	return price >= r.Min && price <= r.Max
}

// Format renders an amount the way the marketplace shows shekel prices.
func Format(amount int) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.Itoa(amount)
	var b strings.Builder
	for i, c := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return sign + "₪" + b.String()
}
