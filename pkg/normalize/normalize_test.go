package normalize

import (
	"strings"
	"testing"
)

func TestStripDiacritics(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"São Paulo", "Sao Paulo"},
		{"Zürich", "Zurich"},
		{"José Müller", "Jose Muller"},
		{"Engenheira de Produção", "Engenheira de Producao"},
		{"Straße", "Strasse"},
		{"Łódź", "Lodz"},
		{"already plain", "already plain"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := StripDiacritics(tt.in); got != tt.want {
				t.Errorf("StripDiacritics(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Berlin", "berlin"},
		{"São Paulo", "sao_paulo"},
		{"San Francisco", "san_francisco"},
		{"  Acme  ", "acme"},
		{"Ümlaut Corp", "umlaut_corp"},
		{"Novo Nordisk A/S", "novo_nordisk_a_s"},
		{`Acme\Corp`, "acme_corp"},
		{"Acme, Inc.", "acme_inc"},
		{"../etc", "etc"},
		{"Procter & Gamble", "procter_gamble"},
		{"acme-labs", "acme-labs"},
		{"3M", "3m"},
		{"///", "_"},
		{"", "_"},
	}

	for _, tt := range tests {
		if got := Slug(tt.in); got != tt.want {
			t.Errorf("Slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if strings.ContainsAny(Slug(tt.in), `/\.`) {
			t.Errorf("Slug(%q) = %q contains a path character", tt.in, Slug(tt.in))
		}
	}
}

func TestKey(t *testing.T) {
	if got := Key("  São   Paulo, Brazil "); got != "sao paulo, brazil" {
		t.Errorf("Key() = %q", got)
	}
}
