package equation

import (
	"fmt"
	"math"
	"math/cmplx"

	"math-bot/api/internal/num"
)

// Root: корень уравнения; мнимая часть ненулевая только при отрицательном дискриминанте.
type Root struct {
	Re num.Number `json:"re"`
	Im num.Number `json:"im,omitempty"`
}

func (r Root) IsReal() bool { return r.Im == 0 }

func (r Root) Complex() complex128 { return complex(float64(r.Re), float64(r.Im)) }

func (r Root) String() string {
	if r.IsReal() {
		return r.Re.String()
	}
	if r.Re == 0 {
		return r.Im.String() + "i"
	}
	if r.Im < 0 {
		return r.Re.String() + " - " + r.Im.Abs().String() + "i"
	}
	return r.Re.String() + " + " + r.Im.String() + "i"
}

// signed renders n as "+ 4" or "- 4" for use after a term.
func signed(n num.Number) string {
	if n < 0 {
		return "- " + n.Abs().String()
	}
	return "+ " + n.String()
}

// y = mx + b  →  x = (y - b) / m
func solveLinear2(v Variables, equation string) (Solution, error) {
	y, m, b := v["y"], v["m"], v["b"]

	mx := y - b
	x, err := num.Div(mx, m)
	if err != nil {
		return Solution{}, fmt.Errorf("m is zero: %w", err)
	}

	first := equation
	if first == "" {
		first = fmt.Sprintf("%s = %s𝑥 %s", y, m, signed(b))
	}
	var second string
	switch {
	case b > 0:
		second = fmt.Sprintf("%s𝑥 = %s - %s", m, y, b)
	case b < 0:
		second = fmt.Sprintf("%s𝑥 = %s + %s", m, y, b.Abs())
	default:
		second = fmt.Sprintf("%s𝑥 = %s", m, y)
	}
	return Solution{
		X: &x,
		Steps: []string{
			first,
			second,
			fmt.Sprintf("𝑥 = %s / %s", mx, m),
			fmt.Sprintf("𝑥 = %s", x),
		},
	}, nil
}

// y = x(a + b) / (c + d)  →  x = y(c + d) / (a + b)
func solveLinear3(v Variables, equation string) (Solution, error) {
	y, a, b, c, d := v["y"], v["a"], v["b"], v["c"], v["d"]

	ab := a + b
	cd := c + d
	if cd == 0 {
		return Solution{}, fmt.Errorf("c + d is zero: %w", num.ErrDivisionByZero)
	}
	xab := y * cd
	x, err := num.Div(xab, ab)
	if err != nil {
		return Solution{}, fmt.Errorf("a + b is zero: %w", err)
	}

	first := equation
	if first == "" {
		first = fmt.Sprintf("%s = 𝑥(%s %s) / (%s %s)", y, a, signed(b), c, signed(d))
	}
	return Solution{
		X: &x,
		Steps: []string{
			first,
			fmt.Sprintf("%s = %s𝑥 / (%s)", y, ab, cd),
			fmt.Sprintf("%s𝑥 = %s * %s", ab, y, cd),
			fmt.Sprintf("%s𝑥 = %s", ab, xab),
			fmt.Sprintf("𝑥 = %s / %s", xab, ab),
			fmt.Sprintf("𝑥 = %s", x),
		},
	}, nil
}

// y = ax² + bx + c  →  ax² + bx + (c - y) = 0
func solveQuadratic(v Variables, equation string) (Solution, error) {
	y, a, b, c := v["y"], v["a"], v["b"], v["c"]
	if a == 0 {
		return Solution{}, fmt.Errorf("a is zero: %w", num.ErrDivisionByZero)
	}

	c0 := c - y
	disc := b*b - 4*a*c0
	twoA := 2 * a
	negB := -b
	if negB == 0 {
		negB = 0 // без "-0"
	}

	first := equation
	if first == "" {
		first = fmt.Sprintf("%s = %s𝑥² %s𝑥 %s", y, a, signed(b), signed(c))
	}
	steps := []string{
		first,
		fmt.Sprintf("0 = %s𝑥² %s𝑥 %s", a, signed(b), signed(c0)),
		fmt.Sprintf("Δ = (%s)² - 4 * %s * (%s)", b, a, c0),
		fmt.Sprintf("Δ = %s", disc),
	}

	var roots []Root
	switch {
	case disc == 0:
		r := negB / twoA
		roots = []Root{{Re: r}}
		steps = append(steps,
			fmt.Sprintf("𝑥 = %s / %s", negB, twoA),
			fmt.Sprintf("𝑥 = %s", r),
		)
	case disc > 0:
		sq := num.Number(math.Sqrt(float64(disc)))
		r1, r2 := (negB-sq)/twoA, (negB+sq)/twoA
		if r1 > r2 {
			r1, r2 = r2, r1
		}
		roots = []Root{{Re: r1}, {Re: r2}}
		steps = append(steps,
			fmt.Sprintf("𝑥 = (%s ± √%s) / %s", negB, disc, twoA),
			fmt.Sprintf("𝑥₁ = %s", roots[0]),
			fmt.Sprintf("𝑥₂ = %s", roots[1]),
		)
	default:
		z := cmplx.Sqrt(complex(float64(disc), 0))
		re := negB / twoA
		im := (num.Number(imag(z)) / twoA).Abs()
		if re == 0 {
			re = 0
		}
		roots = []Root{{Re: re, Im: im}, {Re: re, Im: -im}}
		steps = append(steps,
			fmt.Sprintf("𝑥 = (%s ± i√%s) / %s", negB, disc.Abs(), twoA),
			fmt.Sprintf("𝑥₁ = %s", roots[0]),
			fmt.Sprintf("𝑥₂ = %s", roots[1]),
		)
	}
	return Solution{Roots: roots, Discriminant: &disc, Steps: steps}, nil
}

// (a + b·c) / d
func solveABCD(v Variables, equation string) (Solution, error) {
	a, b, c, d := v["a"], v["b"], v["c"], v["d"]

	bc := b * c
	sum := a + bc
	val, err := num.Div(sum, d)
	if err != nil {
		return Solution{}, fmt.Errorf("d is zero: %w", err)
	}

	first := equation
	if first == "" {
		first = fmt.Sprintf("(%s %s * %s) / %s", a, signed(b), c, d)
	}
	return Solution{
		X: &val,
		Steps: []string{
			first,
			fmt.Sprintf("(%s %s) / %s", a, signed(bc), d),
			fmt.Sprintf("%s / %s", sum, d),
			fmt.Sprintf("= %s", val),
		},
	}, nil
}
