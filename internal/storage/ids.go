package storage

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/stoewer/go-strcase"
)

const (
	idCharset   = "0123456789abcdefghijklmnopqrstuvwxyz"
	idSuffixLen = 6
	slugWords   = 5
	slugMaxLen  = 48
)

var sessionIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,95}$`)

// ValidateSessionID rejects ids that are not safe as a single path element.
func ValidateSessionID(id string) error {
	if !sessionIDPattern.MatchString(id) || strings.Contains(id, "..") {
		return fmt.Errorf("invalid session id %q", id)
	}
	return nil
}

// NewSessionID derives a readable, filesystem-safe id from the prompt:
// the first few words in kebab case followed by a random suffix.
func NewSessionID(prompt string) string {
	suffix := gonanoid.MustGenerate(idCharset, idSuffixLen)
	slug := slugify(prompt)
	if slug == "" {
		return "session-" + suffix
	}
	return slug + "-" + suffix
}

func slugify(prompt string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			return r
		case unicode.IsSpace(r), r == '-', r == '_':
			return ' '
		}
		return -1
	}, prompt)
	words := strings.Fields(cleaned)
	if len(words) > slugWords {
		words = words[:slugWords]
	}
	slug := strcase.KebabCase(strings.Join(words, " "))
	if len(slug) > slugMaxLen {
		slug = strings.TrimRight(slug[:slugMaxLen], "-")
	}
	return strings.TrimLeft(slug, "-")
}
