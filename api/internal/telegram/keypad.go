package telegram

import (
	"math-bot/api/internal/calc"
)

type keyAction int

const (
	actShow keyAction = iota
	actError
	actHelp
	actClose
	actEnter
)

var keySymbols = map[string]string{
	"×": "*",
	"÷": "/",
	"𝑥": "x",
}

// pressCalc applies a calculator key to expr. On actError the expression is kept and the
// display shows ERROR.
func pressCalc(expr, key string) (string, keyAction) {
	switch key {
	case "=":
		res, err := calc.Reduce(expr)
		if err != nil {
			return expr, actError
		}
		return res, actShow
	case "ⓘ":
		return expr, actHelp
	case "Close":
		return expr, actClose
	}
	return edit(expr, key), actShow
}

// pressManual applies a manual-mode key to the typed equation.
func pressManual(eq, key string) (string, keyAction) {
	switch key {
	case "Enter":
		return eq, actEnter
	case "ⓘ":
		return eq, actHelp
	case "Close":
		return eq, actClose
	}
	return edit(eq, key), actShow
}

func edit(s, key string) string {
	switch key {
	case "C":
		return ""
	case "⌫":
		r := []rune(s)
		if len(r) == 0 {
			return s
		}
		return string(r[:len(r)-1])
	}
	if sym, ok := keySymbols[key]; ok {
		key = sym
	}
	if len(s)+len(key) > displayWidth {
		return s
	}
	return s + key
}
