// Package expr implements the calculator expression entry state machine.
package expr

import "strings"

// Control tokens understood by Apply in addition to literals and operators.
const (
	TokenClear    = "Clear"
	TokenSuppress = "Suppress"
)

// State holds the expression entry display state. Exactly one of Text or
// ResultText is visible at a time, selected by ShowingResult.
type State struct {
	Text          string
	ResultText    string
	ShowingResult bool
}

var operatorSet = map[string]struct{}{
	"+": {}, "-": {}, "*": {}, "/": {}, "(": {}, ")": {},
}

// IsOperator reports whether token is an operator or parenthesis symbol.
func IsOperator(token string) bool {
	_, ok := operatorSet[token]
	return ok
}

// Apply consumes one keypad token and returns the next state. It is a pure
// transition function; State values are never mutated in place.
func Apply(s State, token string) State {
	switch token {
	case TokenClear:
		return State{}
	case TokenSuppress:
		if s.ShowingResult {
			// The visible text was a result, not user-typed input, so
			// suppress clears everything instead of removing a character.
			return State{}
		}
		if s.Text == "" {
			return s
		}
		runes := []rune(s.Text)
		return State{Text: string(runes[:len(runes)-1])}
	}
	if IsOperator(token) {
		if s.ShowingResult {
			// Chain onto the previous result.
			return State{Text: s.ResultText + " " + token + " "}
		}
		return State{Text: s.Text + " " + token + " "}
	}
	if s.ShowingResult {
		return State{Text: token}
	}
	return State{Text: s.Text + token}
}

// SubmitText returns the trimmed expression and whether it should be
// submitted. Empty and whitespace-only expressions are a no-op.
func SubmitText(s State) (string, bool) {
	text := strings.TrimSpace(s.Text)
	return text, text != ""
}

// WithResult folds a successful evaluation back into display state: the
// result becomes the visible value and the typed expression is cleared.
func WithResult(result string) State {
	return State{ResultText: result, ShowingResult: true}
}

// Visible returns the value the display shows for this state.
func Visible(s State) string {
	if s.ShowingResult {
		return s.ResultText
	}
	return s.Text
}
