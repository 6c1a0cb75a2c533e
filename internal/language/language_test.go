package language

import "testing"

func TestToISO3(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"fr", "fra"},
		{"FR", "fra"},
		{"fre", "fra"},
		{"fr-CA", "fra"},
		{"pt_BR", "por"},
		{"en", "eng"},
		{"ger", "deu"},
		{"zh-Hant", "zho"},
		{"fi", "fin"},
		{"", "und"},
		{"  ", "und"},
		{"!!", "und"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToISO3(tt.input); got != tt.expected {
				t.Errorf("ToISO3(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"fra", "fr"},
		{"fre", "fr"},
		{"dut", "nl"},
		{"es-MX", "es"},
		{"fin", "fi"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ToISO2(tt.input); got != tt.expected {
				t.Errorf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"fr", "French"},
		{"fre", "French"},
		{"pt-BR", "Portuguese"},
		{"fi", "Finnish"},
		{"", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DisplayName(tt.input); got != tt.expected {
				t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFromTags(t *testing.T) {
	tests := []struct {
		name string
		tags map[string]string
		want string
	}{
		{"nil", nil, ""},
		{"lowercase key", map[string]string{"language": "ENG"}, "eng"},
		{"uppercase key", map[string]string{"LANGUAGE": "fre"}, "fre"},
		{"null padded", map[string]string{"language": "fra\u0000"}, "fra"},
		{"blank", map[string]string{"language": "  "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromTags(tt.tags); got != tt.want {
				t.Errorf("FromTags = %q, want %q", got, tt.want)
			}
		})
	}
}
