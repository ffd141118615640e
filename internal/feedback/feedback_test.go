package feedback

import (
	"testing"

	"golang.org/x/text/language"

	"github.com/pokethrow/pokethrow-desktop/internal/capture"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		in   string
		want language.Tag
	}{
		{"", language.English},
		{"pt-BR", PortugueseBR},
		{"pt", PortugueseBR},
		{"en-GB", language.English},
		{"not a tag!", language.English},
		{"ja", language.English},
	}
	for _, tt := range tests {
		if got := ParseTag(tt.in); got != tt.want {
			t.Errorf("ParseTag(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestPrinterText(t *testing.T) {
	en := English()
	if got := en.Text(KeyCapturedName, "Pikachu"); got != "You caught Pikachu!" {
		t.Errorf("en caught = %q", got)
	}
	pt := NewPrinter(PortugueseBR)
	if got := pt.Text(KeyCapturedName, "Pikachu"); got != "Você capturou Pikachu!" {
		t.Errorf("pt caught = %q", got)
	}
	if got := pt.Text(KeyMetadataError); got != "Erro ao carregar Pokémon. Tente novamente." {
		t.Errorf("pt metadata error = %q", got)
	}
	if got := en.Text(KeyForceMeter, 42); got != "Force 42%" {
		t.Errorf("force meter = %q", got)
	}
}

func TestEveryGradeTranslated(t *testing.T) {
	grades := []capture.Grade{
		capture.GradeTooWeak, capture.GradeOffTarget, capture.GradeNearMiss,
		capture.GradePerfect, capture.GradeExcellent, capture.GradeGood, capture.GradeCaptured,
	}
	for _, tag := range Supported() {
		p := NewPrinter(tag)
		for _, g := range grades {
			if got := p.Grade(g); got == string(GradeKey(g)) || got == "" {
				t.Errorf("%s: grade %s has no message", tag, g)
			}
		}
	}
}
