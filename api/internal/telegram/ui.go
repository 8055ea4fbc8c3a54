package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"math-bot/api/internal/equation"
	"math-bot/api/internal/util"
)

const displayWidth = 40

// Префиксы callback data.
const (
	cbCalc   = "calc:"
	cbKey    = "eq:key:"
	cbShape  = "eq:shape:"
	cbVar    = "eq:var:"
	cbManual = "eq:manual"
	cbEnter  = "eq:enter"
	cbNoop   = "eq:noop"
)

var (
	calcRows = [][]string{
		{"1", "2", "3", "+", "⌫"},
		{"4", "5", "6", "-", "C"},
		{"7", "8", "9", "×", "Close"},
		{".", "0", "=", "÷", "ⓘ"},
	}
	manualRows = [][]string{
		{"1", "2", "3", "+", "⌫"},
		{"4", "5", "6", "-", "C"},
		{"7", "8", "9", "𝑥", "Close"},
		{".", "0", "=", "Enter", "ⓘ"},
	}
)

func keypad(prefix string, rows [][]string) tgbotapi.InlineKeyboardMarkup {
	kb := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		btns := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, label := range row {
			btns = append(btns, tgbotapi.NewInlineKeyboardButtonData(label, prefix+label))
		}
		kb = append(kb, tgbotapi.NewInlineKeyboardRow(btns...))
	}
	return tgbotapi.NewInlineKeyboardMarkup(kb...)
}

func calcKeyboard() tgbotapi.InlineKeyboardMarkup   { return keypad(cbCalc, calcRows) }
func manualKeyboard() tgbotapi.InlineKeyboardMarkup { return keypad(cbKey, manualRows) }

func shapeKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(equation.Shapes()))
	for _, sh := range equation.Shapes() {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(sh.Title()+" equation", cbShape+sh.String()),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// variableKeyboard: заданные переменные показываются со значением и больше не нажимаются;
// Enter появляется, когда заданы все.
func variableKeyboard(shape equation.Shape, vars equation.Variables) tgbotapi.InlineKeyboardMarkup {
	names := shape.Variables()
	varRow := make([]tgbotapi.InlineKeyboardButton, 0, len(names))
	for _, name := range names {
		if v, ok := vars[name]; ok {
			varRow = append(varRow, tgbotapi.NewInlineKeyboardButtonData(name+" = "+v.String(), cbNoop))
			continue
		}
		varRow = append(varRow, tgbotapi.NewInlineKeyboardButtonData(name, cbVar+name))
	}
	ctl := []tgbotapi.InlineKeyboardButton{tgbotapi.NewInlineKeyboardButtonData("manual mode", cbManual)}
	if len(equation.Missing(shape, vars)) == 0 {
		ctl = append(ctl, tgbotapi.NewInlineKeyboardButtonData("Enter", cbEnter))
	}
	return tgbotapi.NewInlineKeyboardMarkup(varRow, ctl)
}

// display: моноширинный экран калькулятора.
func display(content string) string {
	if content == "" {
		content = "\u200b"
	}
	return "```\n" + util.PadRight(content, displayWidth) + "\n```"
}

func wizardCaption(shape equation.Shape) string {
	return "*" + shape.Title() + " Equation Solver*\n" + tgMarkdown(shape.Instructions())
}

func solutionText(sol equation.Solution) string {
	return "*Solution:*\n```\n" + strings.Join(sol.Steps, "\n") + "\n```"
}

// tgMarkdown переводит **жирный** в *жирный* legacy-Markdown телеграма.
func tgMarkdown(s string) string {
	return strings.ReplaceAll(s, "**", "*")
}

// лёгкое экранирование для Markdown
func esc(s string) string {
	s = strings.ReplaceAll(s, "`", "'")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "[", "\\[")
	return s
}

const (
	calcHelp = "Simple Calculator\n" +
		"• operations: + - × ÷\n" +
		"• press the buttons to enter numbers and operators\n" +
		"• hit = to evaluate the expression"
	notYours = "This keypad can only be used by the person who opened it"
	expired  = "This keypad has expired, open a new one"
)

func manualHelp(shape equation.Shape) string {
	return "Equation Solver - Manual Mode\n" +
		"• solves a " + shape.Title() + " equation\n" +
		"• enter it as " + shape.Format() + "\n" +
		"• or just type it in the chat\n" +
		"• hit Enter to solve"
}
