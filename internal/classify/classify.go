// Package classify tags opaque failure reasons with a best-effort kind so
// summaries can hint at the likely fix. It never changes dispatch behaviour.
package classify

import "regexp"

// Kind is the coarse category of a failure reason.
type Kind string

const (
	KindAuth  Kind = "auth"
	KindHTML  Kind = "html"
	KindOther Kind = "other"
)

var (
	authPattern = regexp.MustCompile(`(?i)model_not_found|does not exist|no allowed providers|access|permission|api[_ ]?key[_ ]?invalid|invalid api key|unauthenticated|missing required authentication|requires an api key|transport error`)
	htmlPattern = regexp.MustCompile(`(?i)<!doctype|<html`)
)

// IsAccessOrAuthError reports whether reason looks like a credential or model
// access problem.
func IsAccessOrAuthError(reason string) bool {
	return authPattern.MatchString(reason)
}

// IsHTMLError reports whether reason carries an HTML page, usually a proxy or
// gateway error body.
func IsHTMLError(reason string) bool {
	return htmlPattern.MatchString(reason)
}

// Classify returns the kind of reason. Auth wins over HTML.
func Classify(reason string) Kind {
	switch {
	case IsAccessOrAuthError(reason):
		return KindAuth
	case IsHTMLError(reason):
		return KindHTML
	}
	return KindOther
}

// Hint is a short suggestion printed next to a rejection of kind k.
func Hint(k Kind) string {
	switch k {
	case KindAuth:
		return "check the api key and that your account can use this model"
	case KindHTML:
		return "the backend returned an HTML page; a proxy or gateway may be in the way"
	}
	return ""
}
