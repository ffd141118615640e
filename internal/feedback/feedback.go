// Package feedback holds the localized messages shown to the player.
package feedback

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/pokethrow/pokethrow-desktop/internal/capture"
)

// Key identifies a message in the catalog.
type Key string

const (
	KeyDragAndRelease  Key = "throw.drag_release"
	KeyTryAgain        Key = "throw.try_again"
	KeyMissed          Key = "throw.missed"
	KeyCaptureFailed   Key = "capture.failed"
	KeyCapturedLoading Key = "capture.loading"
	KeyCapturedName    Key = "capture.caught"
	KeyMetadataError   Key = "metadata.load_error"
	KeyFetchError      Key = "metadata.fetch_error"
	KeyPlayAgain       Key = "menu.play_again"
	KeyForceMeter      Key = "meter.force"
)

// GradeKey returns the catalog key for a capture grade
func GradeKey(g capture.Grade) Key { return Key("grade." + string(g)) }

var (
	// PortugueseBR is the pt-BR tag used by the catalog.
	PortugueseBR = language.MustParse("pt-BR")

	supportedTags = []language.Tag{language.English, PortugueseBR}
	tagMatcher    = language.NewMatcher(supportedTags)
)

// Supported returns the list of supported language tags.
func Supported() []language.Tag {
	tags := make([]language.Tag, len(supportedTags))
	copy(tags, supportedTags)
	return tags
}

// Default returns the default language tag.
func Default() language.Tag { return language.English }

// ParseTag maps a user supplied language name to a supported tag. Unknown or
// empty values fall back to English.
func ParseTag(value string) language.Tag {
	value = strings.TrimSpace(value)
	if value == "" {
		return Default()
	}
	parsed, err := language.Parse(value)
	if err != nil {
		return Default()
	}
	_, idx, conf := tagMatcher.Match(parsed)
	if conf == language.No {
		return Default()
	}
	return supportedTags[idx]
}

// Printer renders catalog messages in one language.
type Printer struct {
	tag language.Tag
	p   *message.Printer
}

// NewPrinter returns a printer for tag
func NewPrinter(tag language.Tag) *Printer {
	return &Printer{tag: tag, p: message.NewPrinter(tag)}
}

// English is a shortcut for NewPrinter(language.English)
func English() *Printer { return NewPrinter(language.English) }

// Tag reports the printer's language
func (p *Printer) Tag() language.Tag { return p.tag }

// Text formats the message for key
func (p *Printer) Text(key Key, args ...any) string {
	return p.p.Sprintf(string(key), args...)
}

// Grade returns the localized description of a capture grade
func (p *Printer) Grade(g capture.Grade) string {
	return p.Text(GradeKey(g))
}
