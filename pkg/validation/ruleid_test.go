package validation

import (
	"errors"
	"testing"
)

func TestValidateRuleID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		// Valid IDs
		{"builtin", "console-log-detection", false},
		{"single char", "a", false},
		{"with digit", "a11y-alt-text", false},
		{"namespaced", "team/no-moment", false},
		{"dotted", "vue.for-key", false},
		{"underscore", "no_var", false},
		{"max length", "abcdefghijabcdefghijabcdefghijabcdefghijabcdefghijabcdefghijabcd", false},

		// Invalid IDs
		{"empty", "", true},
		{"uppercase", "Console-Log", true},
		{"too long", "abcdefghijabcdefghijabcdefghijabcdefghijabcdefghijabcdefghijabcde", true},
		{"spaces", "no moment", true},
		{"newline", "rule\nsummary\terrors=0", true},
		{"tab", "rule\tx", true},
		{"quote", `rule"`, true},
		{"starts with hyphen", "-rule", true},
		{"starts with slash", "/rule", true},
		{"unicode", "rülé", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRuleID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRuleID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidRuleID) {
				t.Errorf("ValidateRuleID(%q) error = %v, want ErrInvalidRuleID", tt.id, err)
			}
		})
	}
}

func TestValidateRuleIDs(t *testing.T) {
	tests := []struct {
		name    string
		ids     []string
		wantErr bool
	}{
		{"all valid", []string{"no-var", "debugger-statement"}, false},
		{"one invalid", []string{"no-var", "bad id", "debugger-statement"}, true},
		{"all invalid", []string{"A", "B"}, true},
		{"empty slice", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRuleIDs(tt.ids)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRuleIDs(%v) error = %v, wantErr %v", tt.ids, err, tt.wantErr)
			}
		})
	}
}

func TestSanitizeRuleID(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"no-var", "no-var", false},
		{"  No-Var  ", "no-var", false},
		{"TEAM/No-Moment", "team/no-moment", false},
		{"", "", true},
		{"bad id", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := SanitizeRuleID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("SanitizeRuleID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("SanitizeRuleID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeRuleIDs(t *testing.T) {
	got, err := SanitizeRuleIDs([]string{"No-Var", "", "  ", "debugger-statement"})
	if err != nil {
		t.Fatalf("SanitizeRuleIDs() error = %v", err)
	}
	if len(got) != 2 || got[0] != "no-var" || got[1] != "debugger-statement" {
		t.Errorf("SanitizeRuleIDs() = %v", got)
	}

	if _, err := SanitizeRuleIDs([]string{"ok", "not ok"}); !errors.Is(err, ErrInvalidRuleID) {
		t.Errorf("SanitizeRuleIDs() error = %v, want ErrInvalidRuleID", err)
	}
}
