package flow

import (
	"fmt"
	"strconv"
	"strings"
)

// Unmatched is the sentinel index returned when inbound input selects no
// option.
const Unmatched = -1

// Button selector prefix: "btn_2" selects the third option. Sent by chat
// clients with native button support instead of free text.
const buttonPrefix = "btn_"

// MatchOption resolves trimmed, case-folded user input against an ordered
// option list. Resolution order, first match wins:
//
//  1. button selector "btn_<N>" with 0 <= N < len(options)
//  2. exact case-insensitive equality with an option
//  3. 1-based ordinal ("2" selects options[1])
//
// Returns the zero-based option index, or Unmatched.
func MatchOption(input string, options []string) int {
	norm := strings.ToLower(strings.TrimSpace(input))
	if norm == "" || len(options) == 0 {
		return Unmatched
	}

	if rest, ok := strings.CutPrefix(norm, buttonPrefix); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 0 && n < len(options) {
			return n
		}
	}

	for i, opt := range options {
		if norm == strings.ToLower(strings.TrimSpace(opt)) {
			return i
		}
	}

	if n, err := strconv.Atoi(norm); err == nil && n >= 1 && n <= len(options) {
		return n - 1
	}

	return Unmatched
}

// OptionHandle maps a matched option index to the edge handle an options
// node uses ("opcao_0", "opcao_1", ...).
func OptionHandle(index int) string {
	return fmt.Sprintf("opcao_%d", index)
}

// DecisionHandle maps a matched decision index to its edge handle: index 0
// (affirmative) is "sim", index 1 (negative) is "nao".
func DecisionHandle(index int) string {
	if index == 0 {
		return "sim"
	}
	return "nao"
}

// FormatOptionList renders a prompt followed by its numbered options, the
// shape re-asked whenever input does not match.
func FormatOptionList(prompt string, options []string) string {
	var sb strings.Builder
	sb.WriteString(prompt)
	for i, opt := range options {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, opt))
	}
	return sb.String()
}
