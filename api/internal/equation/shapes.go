package equation

import (
	"fmt"
	"regexp"
	"strings"

	"math-bot/api/internal/num"
)

type Shape int

const (
	Linear2 Shape = iota + 1
	Linear3
	Quadratic
	ABCDFormula
)

// shapeDef описывает шаблон: разбор, переменные, решение, подписи.
type shapeDef struct {
	name         string
	title        string
	format       string
	instructions string
	vars         []string
	pattern      *regexp.Regexp
	extract      func(m []string) (Variables, error)
	latex        func(v func(string) string) string
	solve        func(v Variables, equation string) (Solution, error)
}

// n: числовой литерал как группа захвата.
const n = `(` + num.Pattern + `)`

var shapes = [...]shapeDef{
	Linear2: {
		name:   "linear2",
		title:  "2 Step Linear",
		format: "y = mx + b",
		instructions: "• Solves a **2** step linear equation\n" +
			"• with the format: `y = mx + b`",
		vars:    []string{"y", "m", "b"},
		pattern: regexp.MustCompile(`^` + n + `=` + n + `\*?x([+-])` + n + `$`),
		extract: func(m []string) (Variables, error) {
			return parseGroups(m, "y", "m", "", "b")
		},
		latex: func(v func(string) string) string {
			return v("y") + "=" + v("m") + "x+" + v("b")
		},
		solve: solveLinear2,
	},
	Linear3: {
		name:   "linear3",
		title:  "3 Step Linear",
		format: "y = x(a + b) / (c + d)",
		instructions: "• Solves a **3** step linear equation\n" +
			"• with the format: `y = x(a + b) / (c + d)`",
		vars:    []string{"y", "a", "b", "c", "d"},
		pattern: regexp.MustCompile(`^` + n + `=x\*?\(` + n + `([+-])` + n + `\)/\(` + n + `([+-])` + n + `\)?$`),
		extract: func(m []string) (Variables, error) {
			return parseGroups(m, "y", "a", "", "b", "c", "", "d")
		},
		latex: func(v func(string) string) string {
			return v("y") + `=\frac{x(` + v("a") + "+" + v("b") + ")}{" + v("c") + "+" + v("d") + "}"
		},
		solve: solveLinear3,
	},
	Quadratic: {
		name:   "quadratic",
		title:  "Quadratic",
		format: "y = ax^2 + bx + c",
		instructions: "• Solves a **quadratic** equation\n" +
			"• with the format: `y = ax^2 + bx + c`",
		vars:    []string{"y", "a", "b", "c"},
		pattern: regexp.MustCompile(`^` + n + `=` + n + `\*?x\^2([+-])` + n + `\*?x([+-])` + n + `$`),
		extract: func(m []string) (Variables, error) {
			return parseGroups(m, "y", "a", "", "b", "", "c")
		},
		latex: func(v func(string) string) string {
			return v("y") + "=" + v("a") + "x^2+" + v("b") + "x+" + v("c")
		},
		solve: solveQuadratic,
	},
	ABCDFormula: {
		name:   "abcd",
		title:  "ABCD Formula",
		format: "(a + b * c) / d",
		instructions: "• Evaluates the formula\n" +
			"• `(a + b * c) / d`",
		vars:    []string{"a", "b", "c", "d"},
		pattern: regexp.MustCompile(`^\(` + n + `([+-])` + n + `\*` + n + `\)/` + n + `$`),
		extract: func(m []string) (Variables, error) {
			return parseGroups(m, "a", "", "b", "c", "d")
		},
		latex: func(v func(string) string) string {
			return `\frac{` + v("a") + "+" + v("b") + `\cdot ` + v("c") + "}{" + v("d") + "}"
		},
		solve: solveABCD,
	},
}

// parseGroups разбирает группы совпадения по порядку; пустое имя: знак для следующей
// переменной ("-" меняет её знак).
func parseGroups(m []string, names ...string) (Variables, error) {
	vars := make(Variables, len(names))
	negate := false
	for i, name := range names {
		g := m[i+1]
		if name == "" {
			negate = g == "-"
			continue
		}
		v, err := num.Parse(g)
		if err != nil {
			return nil, err
		}
		if negate {
			v = -v
			negate = false
		}
		vars[name] = v
	}
	return vars, nil
}

// Shapes returns every supported shape in menu order.
func Shapes() []Shape { return []Shape{Linear2, Linear3, Quadratic, ABCDFormula} }

// ParseShape accepts canonical names and a few aliases ("2step", "quad").
func ParseShape(s string) (Shape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear2", "2step", "2", "linear":
		return Linear2, nil
	case "linear3", "3step", "3":
		return Linear3, nil
	case "quadratic", "quad":
		return Quadratic, nil
	case "abcd", "abcdformula", "formula":
		return ABCDFormula, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownShape, s)
}

func (s Shape) def() (*shapeDef, error) {
	if s < Linear2 || s > ABCDFormula {
		return nil, fmt.Errorf("%w: %d", ErrUnknownShape, int(s))
	}
	return &shapes[s], nil
}

func (s Shape) String() string {
	if sp, err := s.def(); err == nil {
		return sp.name
	}
	return fmt.Sprintf("Shape(%d)", int(s))
}

func (s Shape) Title() string        { return s.field(func(sp *shapeDef) string { return sp.title }) }
func (s Shape) Format() string       { return s.field(func(sp *shapeDef) string { return sp.format }) }
func (s Shape) Instructions() string { return s.field(func(sp *shapeDef) string { return sp.instructions }) }

func (s Shape) field(get func(*shapeDef) string) string {
	sp, err := s.def()
	if err != nil {
		return ""
	}
	return get(sp)
}

// Variables returns the shape's variable slots in input order.
func (s Shape) Variables() []string {
	sp, err := s.def()
	if err != nil {
		return nil
	}
	return append([]string(nil), sp.vars...)
}

func (s Shape) HasVariable(name string) bool {
	sp, err := s.def()
	if err != nil {
		return false
	}
	for _, v := range sp.vars {
		if v == name {
			return true
		}
	}
	return false
}

// LaTeX renders the shape's template with known values substituted; unknown variables
// stay symbolic.
func (s Shape) LaTeX(vars Variables) string {
	sp, err := s.def()
	if err != nil {
		return ""
	}
	return sp.latex(func(name string) string {
		v, ok := vars[name]
		if !ok {
			return name
		}
		if v < 0 {
			return "(" + v.String() + ")"
		}
		return v.String()
	})
}

func (s Shape) MarshalText() ([]byte, error) {
	if _, err := s.def(); err != nil {
		return nil, err
	}
	return []byte(s.String()), nil
}

func (s *Shape) UnmarshalText(b []byte) error {
	v, err := ParseShape(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
