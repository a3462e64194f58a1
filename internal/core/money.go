// Package core holds the domain model shared by the projection and
// reporting engine: transactions, reference tables, calendar dates and
// integer-cent money.
package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// Money is an amount in integer minor units (centavos). All monetary
// arithmetic in the engine stays in cents; floats appear only at the
// display/serialization edge.
type Money struct {
	Cents int64
}

// ParseDecimalToCents converts a decimal string to cents with half-up
// rounding on the third decimal place. Both dot and comma separators are
// accepted. Negative amounts are rejected; transaction direction is carried
// by the kind, not the sign.
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	const maxSafe = math.MaxInt64 / 100
	if iv > maxSafe {
		return 0, ErrInvalidAmount
	}
	var fracCents int64
	if len(fracPart) > 0 {
		fracCents = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			fracCents += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				fracCents++
			}
		}
	}
	return iv*100 + fracCents, nil
}

// SplitEven divides cents into n parts that sum exactly to the input.
// Each part gets the truncated share; the remainder lands on the final
// part so that conservation holds across installments.
func SplitEven(cents int64, n int) []int64 {
	if n < 1 {
		n = 1
	}
	base := cents / int64(n)
	parts := make([]int64, n)
	for i := range parts {
		parts[i] = base
	}
	parts[n-1] += cents - base*int64(n)
	return parts
}

// Decimal returns the amount as a float64 for display and serialization.
// Keep calculations in cents.
func (m Money) Decimal() float64 {
	return float64(m.Cents) / 100.0
}

// Percent returns the given percentage of the amount, rounded half-up.
// Fee and commission deductions are computed with this so that the DRE
// figures are stable across runs.
func (m Money) Percent(pct float64) Money {
	if pct == 0 {
		return Money{}
	}
	v := float64(m.Cents) * pct / 100.0
	return Money{Cents: int64(math.Floor(v + 0.5))}
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

func (m Money) String() string {
	neg := m.Cents < 0
	c := m.Cents
	if neg {
		c = -c
	}
	s := strconv.FormatInt(c/100, 10) + "," + fmt.Sprintf("%02d", c%100)
	if neg {
		return "-R$" + s
	}
	return "R$" + s
}
