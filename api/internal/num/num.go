// Package num holds the numeric value shared by the calculator and the equation solver:
// a float64 that prints as an integer whenever it has no fractional part.
package num

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Pattern: числовой литерал, общий для всех шаблонов уравнений.
const Pattern = `[-+]?\d+(?:\.\d*)?`

var (
	ErrDivisionByZero = errors.New("division by zero")
	ErrNotANumber     = errors.New("not a number")
)

var literal = regexp.MustCompile(`^` + Pattern + `$`)

type Number float64

// Parse reads a literal like "-12", "3.5" or "3." (keypad input).
func Parse(s string) (Number, error) {
	s = strings.TrimSpace(s)
	if !literal.MatchString(s) {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, s)
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s, "."), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotANumber, s)
	}
	return Number(f), nil
}

// MustParse is for tests and tables.
func MustParse(s string) Number {
	n, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return n
}

// IsInt reports whether n has a zero fractional part.
func (n Number) IsInt() bool {
	f := float64(n)
	return !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f)
}

func (n Number) IsFinite() bool {
	f := float64(n)
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

func (n Number) Float64() float64 { return float64(n) }

func (n Number) Abs() Number { return Number(math.Abs(float64(n))) }

// String: целые печатаем без дробной части, остальное кратчайшей десятичной записью
// без экспоненты, чтобы результат снова парсился калькулятором.
func (n Number) String() string {
	f := float64(n)
	if f == 0 {
		return "0" // -0 тоже
	}
	if n.IsInt() && math.Abs(f) < 1<<62 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func Add(a, b Number) Number { return a + b }
func Sub(a, b Number) Number { return a - b }
func Mul(a, b Number) Number { return a * b }

func Div(a, b Number) (Number, error) {
	if b == 0 {
		return 0, ErrDivisionByZero
	}
	return a / b, nil
}
