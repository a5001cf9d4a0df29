package flow

import "testing"

func TestMatchOption(t *testing.T) {
	options := []string{"Vendas", "Suporte", "Financeiro"}

	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"button selector first option", "btn_0", 0},
		{"button selector last option", "btn_2", 2},
		{"button selector out of range", "btn_3", Unmatched},
		{"button selector negative", "btn_-1", Unmatched},
		{"exact match", "Vendas", 0},
		{"case-insensitive match", "VENDAS", 0},
		{"match with surrounding whitespace", "  suporte  ", 1},
		{"ordinal first", "1", 0},
		{"ordinal last", "3", 2},
		{"ordinal zero", "0", Unmatched},
		{"ordinal out of range", "4", Unmatched},
		{"free text miss", "quero falar com alguém", Unmatched},
		{"empty input", "", Unmatched},
		{"whitespace only", "   ", Unmatched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchOption(tt.input, options); got != tt.want {
				t.Errorf("MatchOption(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestMatchOptionEquivalentSelectors(t *testing.T) {
	// btn_0, the ordinal "1" and the literal label all select the same option.
	options := []string{"Vendas", "Suporte"}
	for _, input := range []string{"btn_0", "1", "vendas", "VENDAS"} {
		if got := MatchOption(input, options); got != 0 {
			t.Errorf("MatchOption(%q) = %d, want 0", input, got)
		}
	}
}

func TestMatchOptionLabelBeatsOrdinal(t *testing.T) {
	// A label that looks like a number must match as a label, not as an
	// ordinal into a different slot.
	options := []string{"2", "1"}
	if got := MatchOption("1", options); got != 1 {
		t.Errorf("MatchOption(%q) = %d, want 1 (exact label match)", "1", got)
	}
}

func TestMatchOptionEmptyOptions(t *testing.T) {
	if got := MatchOption("anything", nil); got != Unmatched {
		t.Errorf("MatchOption with no options = %d, want Unmatched", got)
	}
}

func TestOptionHandle(t *testing.T) {
	if got := OptionHandle(0); got != "opcao_0" {
		t.Errorf("OptionHandle(0) = %q, want opcao_0", got)
	}
	if got := OptionHandle(4); got != "opcao_4" {
		t.Errorf("OptionHandle(4) = %q, want opcao_4", got)
	}
}

func TestDecisionHandle(t *testing.T) {
	if got := DecisionHandle(0); got != "sim" {
		t.Errorf("DecisionHandle(0) = %q, want sim", got)
	}
	if got := DecisionHandle(1); got != "nao" {
		t.Errorf("DecisionHandle(1) = %q, want nao", got)
	}
}

func TestFormatOptionList(t *testing.T) {
	got := FormatOptionList("Escolha um setor:", []string{"Vendas", "Suporte"})
	want := "Escolha um setor:\n1. Vendas\n2. Suporte"
	if got != want {
		t.Errorf("FormatOptionList = %q, want %q", got, want)
	}
}

func TestFormatOptionListNoOptions(t *testing.T) {
	if got := FormatOptionList("Prompt", nil); got != "Prompt" {
		t.Errorf("FormatOptionList with no options = %q, want bare prompt", got)
	}
}
