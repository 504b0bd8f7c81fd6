package core

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  CanonicalID
	}{
		{"A12", "A12"},
		{"00A-12,", "A12"},
		{"000123", "123"},
		{" 12 34 ", "1234"},
		{"AB.CD/01", "ABCD01"},
		{"0", ""},
		{"---", ""},
		{"", ""},
		{"Ü-001", "Ü001"},
		{"a12", "a12"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Normalize(tt.input)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if again := Normalize(string(got)); again != got {
				t.Errorf("Normalize not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestNormalize_EquivalentCodes(t *testing.T) {
	if Normalize("00A-12,") != Normalize("A12") {
		t.Errorf("Normalize(%q) != Normalize(%q)", "00A-12,", "A12")
	}
	if !Normalize("...").IsZero() {
		t.Error("punctuation-only code should normalize to the zero identifier")
	}
}

func TestMultiValue_Split(t *testing.T) {
	tests := []struct {
		input MultiValue
		want  []string
	}{
		{"Fiat, Lancia", []string{"Fiat", "Lancia"}},
		{" Fiat ,, ,Lancia ", []string{"Fiat", "Lancia"}},
		{"Ford", []string{"Ford"}},
		{"", nil},
		{" , ", []string{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			got := tt.input.Split()
			if !equalStrings(got, tt.want) {
				t.Errorf("Split(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMultiValue_Match(t *testing.T) {
	m := MultiValue("Alfa  Romeo, Fiat")

	tests := []struct {
		token  string
		want   string
		wantOK bool
	}{
		{"fiat", "Fiat", true},
		{" FIAT ", "Fiat", true},
		{"alfa romeo", "Alfa  Romeo", true},
		{"Alfa", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := m.Match(tt.token)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Match(%q) = %q, %v; want %q, %v", tt.token, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestContainsFold(t *testing.T) {
	tests := []struct {
		haystack, needle string
		want             bool
	}{
		{"Filtro Olio", "olio", true},
		{"Filtro Olio", "OLIO", true},
		{"Filtro Olio", "aria", false},
		{"anything", "", true},
	}

	for _, tt := range tests {
		if got := containsFold(tt.haystack, tt.needle); got != tt.want {
			t.Errorf("containsFold(%q, %q) = %v, want %v", tt.haystack, tt.needle, got, tt.want)
		}
	}
}
