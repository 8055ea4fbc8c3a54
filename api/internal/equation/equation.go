// Package equation solves the fixed equation shapes offered by the bot: 2-step and 3-step
// linear equations, quadratics and the (a + b*c)/d formula. Input is either a typed
// equation matched against the shape's template or a bag of named coefficients.
package equation

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"math-bot/api/internal/num"
)

var (
	ErrInvalidEquation = errors.New("invalid equation")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnknownShape    = errors.New("unknown equation shape")
)

// Variables: коэффициенты уравнения по имени (a, b, c, d, m, y).
type Variables map[string]num.Number

// Solution: результат решения и шаги вывода для показа пользователю.
type Solution struct {
	Shape        Shape       `json:"shape"`
	Equation     string      `json:"equation,omitempty"`
	Variables    Variables   `json:"variables"`
	X            *num.Number `json:"x,omitempty"`            // линейные формы и ABCD
	Roots        []Root      `json:"roots,omitempty"`        // квадратное
	Discriminant *num.Number `json:"discriminant,omitempty"` // квадратное, в том числе Δ = 0
	Steps        []string    `json:"steps"`
}

// Answer is the one-line result: "𝑥 = 3", "𝑥 = 1, 2" or "= 1".
func (s Solution) Answer() string {
	switch {
	case s.Shape == ABCDFormula:
		return "= " + s.value()
	case len(s.Roots) > 0:
		parts := make([]string, len(s.Roots))
		for i, r := range s.Roots {
			parts[i] = r.String()
		}
		return "𝑥 = " + strings.Join(parts, ", ")
	default:
		return "𝑥 = " + s.value()
	}
}

func (s Solution) value() string {
	if s.X == nil {
		return "?"
	}
	return s.X.String()
}

// Line returns slope and intercept for shapes that plot as a straight line.
func (s Solution) Line() (m, b num.Number, ok bool) {
	v := s.Variables
	switch s.Shape {
	case Linear2:
		return v["m"], v["b"], true
	case Linear3:
		cd := v["c"] + v["d"]
		if cd == 0 {
			return 0, 0, false
		}
		return (v["a"] + v["b"]) / cd, 0, true
	}
	return 0, 0, false
}

// Solve isolates the unknown of shape. A complete vars bag is used as is; otherwise the
// equation text is parsed with the shape's template.
func Solve(shape Shape, equation string, vars Variables) (Solution, error) {
	def, err := shape.def()
	if err != nil {
		return Solution{}, err
	}
	for k := range vars {
		if !shape.HasVariable(k) {
			return Solution{}, fmt.Errorf("%w: %q is not a variable of %s", ErrInvalidArgument, k, shape)
		}
	}

	equation = strings.TrimSpace(equation)
	if !complete(def.vars, vars) {
		if equation == "" {
			return Solution{}, fmt.Errorf("%w: need %s or an equation like %q",
				ErrInvalidEquation, strings.Join(def.vars, ", "), def.format)
		}
		m := def.pattern.FindStringSubmatch(normalize(equation))
		if m == nil {
			return Solution{}, fmt.Errorf("%w: %q does not match %q", ErrInvalidEquation, equation, def.format)
		}
		if vars, err = def.extract(m); err != nil {
			return Solution{}, fmt.Errorf("%w: %v", ErrInvalidEquation, err)
		}
	} else {
		// уравнение в шагах показываем только если значения взяты из него
		equation = ""
	}

	sol, err := def.solve(vars, equation)
	if err != nil {
		return Solution{}, fmt.Errorf("%s: %w", shape, err)
	}
	sol.Shape = shape
	sol.Equation = equation
	sol.Variables = vars
	return sol, nil
}

// SolveBag accepts raw values (strings from a chat, numbers from JSON).
func SolveBag(shape Shape, equation string, bag map[string]any) (Solution, error) {
	vars, err := ParseVariables(shape, bag)
	if err != nil {
		return Solution{}, err
	}
	return Solve(shape, equation, vars)
}

// ParseVariables converts a raw bag into Variables, rejecting names outside the shape.
func ParseVariables(shape Shape, bag map[string]any) (Variables, error) {
	if _, err := shape.def(); err != nil {
		return nil, err
	}
	vars := make(Variables, len(bag))
	for k, raw := range bag {
		name := strings.ToLower(strings.TrimSpace(k))
		if !shape.HasVariable(name) {
			return nil, fmt.Errorf("%w: %q is not a variable of %s", ErrInvalidArgument, k, shape)
		}
		v, err := toNumber(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArgument, name, err)
		}
		vars[name] = v
	}
	return vars, nil
}

func toNumber(raw any) (num.Number, error) {
	switch v := raw.(type) {
	case num.Number:
		return v, nil
	case float64:
		return num.Number(v), nil
	case float32:
		return num.Number(v), nil
	case int:
		return num.Number(v), nil
	case int64:
		return num.Number(v), nil
	case json.Number:
		return num.Parse(v.String())
	case string:
		return num.Parse(v)
	}
	return 0, fmt.Errorf("%w: %v (%T)", num.ErrNotANumber, raw, raw)
}

func complete(names []string, vars Variables) bool {
	for _, n := range names {
		if _, ok := vars[n]; !ok {
			return false
		}
	}
	return true
}

// Missing lists required variables of shape absent from vars, in slot order.
func Missing(shape Shape, vars Variables) []string {
	def, err := shape.def()
	if err != nil {
		return nil
	}
	var out []string
	for _, n := range def.vars {
		if _, ok := vars[n]; !ok {
			out = append(out, n)
		}
	}
	return out
}

func normalize(s string) string {
	r := strings.NewReplacer(
		" ", "", "\t", "",
		"𝑥", "x", "X", "x",
		"×", "*", "÷", "/", "·", "*",
		"²", "^2", "−", "-",
	)
	return r.Replace(s)
}

// Names returns the variable names in sorted order; handy for stable output.
func (v Variables) Names() []string {
	out := make([]string, 0, len(v))
	for k := range v {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
