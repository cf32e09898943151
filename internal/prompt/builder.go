// Package prompt composes the text sent to the generation service. Prompt
// construction happens upstream of the saga; the saga treats the result as an
// opaque payload.
package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"regen/internal/domain"
)

// BuildRequest carries the editorial inputs for prompt construction.
type BuildRequest struct {
	Subject string
	Style   string
	Class   domain.TargetClass
	Locale  string
}

// Build renders the remote prompt for a replacement request. The target class
// decides the framing: primary targets become full cover images, secondary
// targets become compact thumbnails.
func Build(req BuildRequest) (string, error) {
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		return "", fmt.Errorf("prompt: subject is required")
	}
	subject = cases.Title(tagForLocale(req.Locale)).String(subject)

	style := strings.TrimSpace(req.Style)
	if style == "" {
		style = "clean editorial photography"
	}

	switch req.Class {
	case domain.TargetClassSecondary:
		return fmt.Sprintf("Small thumbnail illustration of %s, %s, simple composition, high contrast", subject, style), nil
	default:
		return fmt.Sprintf("Wide cover image of %s, %s, no text overlay, centered subject", subject, style), nil
	}
}

func tagForLocale(locale string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return language.Und
	}
	return tag
}
