// Package i18n negotiates the console locale and translates template keys.
package i18n

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
	"golang.org/x/text/number"
)

// Supported lists the console locales, the first being the fallback.
var Supported = []language.Tag{language.English, language.German}

// Bundle holds the message catalog and the locale matcher.
type Bundle struct {
	catalog  catalog.Catalog
	matcher  language.Matcher
	fallback language.Tag
}

// NewBundle builds the catalog. defaultLocale is used when neither the
// session nor the request names a supported locale.
func NewBundle(defaultLocale string) (*Bundle, error) {
	builder := catalog.NewBuilder(catalog.Fallback(language.English))
	for key, msg := range messages {
		if err := builder.SetString(language.English, key, msg.en); err != nil {
			return nil, fmt.Errorf("i18n: %s: %w", key, err)
		}
		if err := builder.SetString(language.German, key, msg.de); err != nil {
			return nil, fmt.Errorf("i18n: %s: %w", key, err)
		}
	}

	fallback := language.English
	if defaultLocale != "" {
		tag, err := language.Parse(defaultLocale)
		if err != nil {
			return nil, fmt.Errorf("i18n: default locale: %w", err)
		}
		fallback = tag
	}

	b := &Bundle{catalog: builder, matcher: language.NewMatcher(Supported)}
	b.fallback = b.match(fallback.String())
	return b, nil
}

// Match picks the supported locale for a request. preferred is the locale
// stored in the console session and wins when it is supported.
func (b *Bundle) Match(preferred, acceptLanguage string) language.Tag {
	if preferred != "" {
		if tag, err := language.Parse(preferred); err == nil && b.IsSupported(tag) {
			return b.match(tag.String())
		}
	}
	if acceptLanguage != "" {
		tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
		if err == nil && len(tags) > 0 {
			tag, _, confidence := b.matcher.Match(tags...)
			if confidence != language.No {
				return base(tag)
			}
		}
	}
	return b.fallback
}

// IsSupported reports whether tag resolves to one of Supported.
func (b *Bundle) IsSupported(tag language.Tag) bool {
	_, _, confidence := b.matcher.Match(tag)
	return confidence >= language.High
}

// Translator returns a translator for tag.
func (b *Bundle) Translator(tag language.Tag) *Translator {
	return &Translator{tag: tag, printer: message.NewPrinter(tag, message.Catalog(b.catalog))}
}

func (b *Bundle) match(locale string) language.Tag {
	tag, _, _ := b.matcher.Match(language.Make(locale))
	return base(tag)
}

// base strips the -u-rg extension the matcher adds.
func base(tag language.Tag) language.Tag {
	lang, _ := tag.Base()
	return language.Make(lang.String())
}

// Translator formats messages and numbers for one locale.
type Translator struct {
	tag     language.Tag
	printer *message.Printer
}

// Locale returns the BCP 47 tag, e.g. "de".
func (t *Translator) Locale() string {
	if t == nil {
		return language.English.String()
	}
	return t.tag.String()
}

// T translates key. Unknown keys are returned verbatim.
func (t *Translator) T(key string, args ...any) string {
	if t == nil {
		if len(args) == 0 {
			return key
		}
		return fmt.Sprintf(key, args...)
	}
	return t.printer.Sprintf(key, args...)
}

// Decimal formats a decimal string such as "12.5" with two fraction digits.
// Values that do not parse are returned unchanged.
func (t *Translator) Decimal(value string) string {
	if value == "" {
		return ""
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || t == nil {
		return value
	}
	return t.printer.Sprint(number.Decimal(f, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
}

type translatorContextKey struct{}

// ContextWithTranslator stores t in ctx.
func ContextWithTranslator(ctx context.Context, t *Translator) context.Context {
	return context.WithValue(ctx, translatorContextKey{}, t)
}

// FromContext returns the request translator or nil.
func FromContext(ctx context.Context) *Translator {
	t, _ := ctx.Value(translatorContextKey{}).(*Translator)
	return t
}
