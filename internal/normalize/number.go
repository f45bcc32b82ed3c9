package normalize

import (
	"math"
	"strconv"
	"strings"
)

// Longer spellings come first so "Rs." wins over "Rs".
var currencyMarks = strings.NewReplacer(
	"Rs.", "",
	"Rs", "",
	"INR", "",
	"USD", "",
	"EUR", "",
	"₹", "",
	"$", "",
	"€", "",
	"£", "",
	"¥", "",
	"¢", "",
	"₨", "",
	",", "",
	" ", "",
	"\u00a0", "",
)

// Currency parses a money cell such as "₹1,200.50" or "(500.00)".
// Unparseable input yields ok == false.
func Currency(s string) (v float64, ok bool) {
	c := currencyMarks.Replace(strings.TrimSpace(s))
	c = strings.TrimSpace(c)
	if IsNullToken(c) {
		return 0, false
	}
	if strings.HasPrefix(c, "(") && strings.HasSuffix(c, ")") {
		c = "-" + c[1:len(c)-1]
	}
	c = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, c)
	if c == "" || c == "-" {
		return 0, false
	}
	f, err := strconv.ParseFloat(c, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// CurrencyValue is Currency as a column value: float64 or nil.
func CurrencyValue(s string) any {
	if f, ok := Currency(s); ok {
		return f
	}
	return nil
}

// Integer parses like Currency and truncates toward zero. Values outside
// the int64 range yield ok == false.
func Integer(s string) (int64, bool) {
	f, ok := Currency(s)
	if !ok {
		return 0, false
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return 0, false
	}
	return int64(t), true
}

// IntegerValue is Integer as a column value: int64 or nil.
func IntegerValue(s string) any {
	if i, ok := Integer(s); ok {
		return i
	}
	return nil
}
