// Package i18n resolves the request language and formats user-facing messages.
// Message keys are English; Russian is the default locale.
package i18n

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// LangParam is the query parameter used to select a language
	LangParam = "lang"
	// LangCookieName stores the user's language preference
	LangCookieName = "quill_lang"

	contextKeyPrinter = "i18n_printer"
	contextKeyTag     = "i18n_tag"
)

var (
	supported = []language.Tag{language.Russian, language.English}
	matcher   = language.NewMatcher(supported)
)

// Default returns the default language tag
func Default() language.Tag {
	return supported[0]
}

// Supported returns the supported language tags, default first
func Supported() []language.Tag {
	return append([]language.Tag(nil), supported...)
}

// Match picks the best supported tag for the given preferences
func Match(tags ...language.Tag) language.Tag {
	if len(tags) == 0 {
		return Default()
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default()
	}
	return supported[idx]
}

// ParseTag parses a single language value into a supported tag
func ParseTag(value string) (language.Tag, bool) {
	tag, err := language.Parse(strings.TrimSpace(value))
	if err != nil {
		return language.Und, false
	}
	_, idx, conf := matcher.Match(tag)
	if conf == language.No {
		return language.Und, false
	}
	return supported[idx], true
}

// ParseAcceptLanguage resolves an Accept-Language header value
func ParseAcceptLanguage(header string) language.Tag {
	header = strings.TrimSpace(header)
	if header == "" {
		return Default()
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return Default()
	}
	return Match(tags...)
}

// Printer returns a message printer for the supplied tag
func Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag)
}

// Middleware resolves the request language from the lang query param,
// the language cookie, then Accept-Language, and stores a printer in the context
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tag := Default()
		resolved := false

		if v := c.Query(LangParam); v != "" {
			if t, ok := ParseTag(v); ok {
				tag, resolved = t, true
				c.SetCookie(LangCookieName, t.String(), int((365 * 24 * time.Hour).Seconds()), "/", "", false, false)
			}
		}
		if !resolved {
			if v, err := c.Cookie(LangCookieName); err == nil {
				if t, ok := ParseTag(v); ok {
					tag, resolved = t, true
				}
			}
		}
		if !resolved {
			tag = ParseAcceptLanguage(c.GetHeader("Accept-Language"))
		}

		c.Set(contextKeyTag, tag)
		c.Set(contextKeyPrinter, Printer(tag))
		c.Next()
	}
}

// FromContext returns the request printer, falling back to the default locale
func FromContext(c *gin.Context) *message.Printer {
	if v, ok := c.Get(contextKeyPrinter); ok {
		if p, ok := v.(*message.Printer); ok {
			return p
		}
	}
	return Printer(ParseAcceptLanguage(c.GetHeader("Accept-Language")))
}

// TagFromContext returns the resolved request language
func TagFromContext(c *gin.Context) language.Tag {
	if v, ok := c.Get(contextKeyTag); ok {
		if t, ok := v.(language.Tag); ok {
			return t
		}
	}
	return ParseAcceptLanguage(c.GetHeader("Accept-Language"))
}

// T formats a message for the request language
func T(c *gin.Context, key string, args ...interface{}) string {
	return FromContext(c).Sprintf(key, args...)
}
