// Package calc reduces flat keypad expressions ("12+3*4-5/2") to a single number.
//
// Operators are folded tier by tier in the fixed order / * - +. Within a tier each pass
// folds non-overlapping pairs left to right and passes repeat until the operator is gone,
// so 64/4/2/2 is (64/4)/(2/2). There are no parentheses.
package calc

import (
	"errors"
	"fmt"
	"strings"

	"math-bot/api/internal/num"
)

var ErrMalformedExpression = errors.New("malformed expression")

// Tiers: порядок свёртки операторов.
var Tiers = [...]byte{'/', '*', '-', '+'}

// Reduction: значение и след свёртки (выражение после каждой операции).
type Reduction struct {
	Input string
	Value num.Number
	Steps []string
}

func (r Reduction) String() string { return r.Value.String() }

// Reduce returns the reduced expression as a number string.
func Reduce(expression string) (string, error) {
	r, err := Evaluate(expression)
	if err != nil {
		return "", err
	}
	return r.String(), nil
}

// Evaluate tokenizes expression and folds it, recording one step per applied operator.
func Evaluate(expression string) (Reduction, error) {
	nums, ops, err := tokenize(Normalize(expression))
	if err != nil {
		return Reduction{}, err
	}
	red := Reduction{Input: expression}

	for _, op := range Tiers {
		for hasOp(ops, op) {
			// один проход: пары не перекрываются, новое число в этом проходе
			// левым операндом уже не становится
			i := 0
			for i < len(ops) {
				if ops[i] != op {
					i++
					continue
				}
				v, err := apply(op, nums[i], nums[i+1])
				if err != nil {
					return Reduction{}, fmt.Errorf("%s%c%s: %w", nums[i], op, nums[i+1], err)
				}
				nums[i] = v
				nums = append(nums[:i+1], nums[i+2:]...)
				ops = append(ops[:i], ops[i+1:]...)
				red.Steps = append(red.Steps, render(nums, ops))
				i++
			}
		}
	}

	if len(nums) != 1 || !nums[0].IsFinite() {
		return Reduction{}, ErrMalformedExpression
	}
	red.Value = nums[0]
	return red, nil
}

// Normalize strips spaces and maps keypad glyphs to ASCII operators.
func Normalize(s string) string {
	r := strings.NewReplacer("×", "*", "÷", "/", "−", "-", " ", "", "\t", "", "\n", "")
	return r.Replace(strings.TrimSpace(s))
}

func apply(op byte, a, b num.Number) (num.Number, error) {
	switch op {
	case '/':
		return num.Div(a, b)
	case '*':
		return num.Mul(a, b), nil
	case '-':
		return num.Sub(a, b), nil
	case '+':
		return num.Add(a, b), nil
	}
	return 0, ErrMalformedExpression
}

func hasOp(ops []byte, op byte) bool {
	for _, o := range ops {
		if o == op {
			return true
		}
	}
	return false
}

func isOp(c byte) bool { return c == '+' || c == '-' || c == '*' || c == '/' }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// tokenize: знак +/- относится к числу только в начале строки или сразу после оператора.
func tokenize(s string) ([]num.Number, []byte, error) {
	var (
		nums []num.Number
		ops  []byte
	)
	i := 0
	for {
		start := i
		if i < len(s) && (s[i] == '+' || s[i] == '-') {
			i++
		}
		digits := i
		for i < len(s) && isDigit(s[i]) {
			i++
		}
		if i == digits {
			return nil, nil, fmt.Errorf("%w: expected number at %d in %q", ErrMalformedExpression, start, s)
		}
		if i < len(s) && s[i] == '.' {
			i++
			for i < len(s) && isDigit(s[i]) {
				i++
			}
		}
		n, err := num.Parse(s[start:i])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrMalformedExpression, err)
		}
		nums = append(nums, n)

		if i == len(s) {
			return nums, ops, nil
		}
		if !isOp(s[i]) {
			return nil, nil, fmt.Errorf("%w: unexpected %q at %d", ErrMalformedExpression, s[i], i)
		}
		ops = append(ops, s[i])
		i++
	}
}

func render(nums []num.Number, ops []byte) string {
	var b strings.Builder
	for i, n := range nums {
		if i > 0 {
			b.WriteByte(ops[i-1])
		}
		b.WriteString(n.String())
	}
	return b.String()
}
