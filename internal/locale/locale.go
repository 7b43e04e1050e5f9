// Package locale сопоставляет локаль витрины (en_US, default) с локалями,
// для которых настроен Yotpo.
package locale

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Default: локаль витрины по умолчанию.
const Default = "default"

// Parse превращает идентификатор вида en_US в языковой тег.
// Для Default возвращается language.Und.
func Parse(id string) (language.Tag, error) {
	if id == "" || strings.EqualFold(id, Default) {
		return language.Und, nil
	}
	tag, err := language.Parse(strings.ReplaceAll(id, "_", "-"))
	if err != nil {
		return language.Und, fmt.Errorf("parse locale %q: %w", id, err)
	}
	return tag, nil
}

// Language возвращает двухбуквенный код языка для виджетов Yotpo.
func Language(id string) string {
	tag, err := Parse(id)
	if err != nil || tag == language.Und {
		return "en"
	}
	base, _ := tag.Base()
	return base.String()
}

// Matcher выбирает наиболее подходящую настроенную локаль.
type Matcher struct {
	ids        []string
	hasDefault bool
	matcher    language.Matcher
}

// NewMatcher строит сопоставитель по списку настроенных локалей.
func NewMatcher(ids []string) (*Matcher, error) {
	m := &Matcher{}
	var tags []language.Tag
	for _, id := range ids {
		if strings.EqualFold(id, Default) {
			m.hasDefault = true
			continue
		}
		tag, err := Parse(id)
		if err != nil {
			return nil, err
		}
		m.ids = append(m.ids, id)
		tags = append(tags, tag)
	}
	if len(tags) > 0 {
		m.matcher = language.NewMatcher(tags)
	}
	return m, nil
}

// Match возвращает настроенную локаль для id. Если точного или близкого
// соответствия нет, используется Default, когда он настроен.
func (m *Matcher) Match(id string) (string, bool) {
	for _, known := range m.ids {
		if strings.EqualFold(known, id) {
			return known, true
		}
	}

	if m.matcher != nil {
		if tag, err := Parse(id); err == nil && tag != language.Und {
			_, idx, conf := m.matcher.Match(tag)
			if conf >= language.High {
				return m.ids[idx], true
			}
		}
	}

	if m.hasDefault {
		return Default, true
	}
	return "", false
}

// FromAcceptLanguage возвращает локаль витрины (en_US) по первому тегу
// заголовка Accept-Language или Default.
func FromAcceptLanguage(header string) string {
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return Default
	}
	base, _ := tags[0].Base()
	if base.String() == "und" {
		return Default
	}
	region, conf := tags[0].Region()
	if conf == language.Exact {
		return base.String() + "_" + region.String()
	}
	return base.String()
}
