package yotpo

import (
	"github.com/Totarae/YotpoBridge/internal/config"
	"github.com/Totarae/YotpoBridge/internal/locale"
)

// Settings отдаёт настройки Yotpo для локали витрины.
type Settings struct {
	byLocale map[string]config.LocaleConfig
	ordered  []config.LocaleConfig
	matcher  *locale.Matcher
}

// NewSettings строит Settings по списку локалей.
func NewSettings(locales []config.LocaleConfig) (*Settings, error) {
	s := &Settings{byLocale: make(map[string]config.LocaleConfig, len(locales))}
	ids := make([]string, 0, len(locales))
	for _, lc := range locales {
		s.byLocale[lc.Locale] = lc
		s.ordered = append(s.ordered, lc)
		ids = append(ids, lc.Locale)
	}
	m, err := locale.NewMatcher(ids)
	if err != nil {
		return nil, err
	}
	s.matcher = m
	return s, nil
}

// ForLocale возвращает настройки для локали витрины; ok == false, если
// Yotpo для неё не настроен.
func (s *Settings) ForLocale(id string) (config.LocaleConfig, bool) {
	if s == nil {
		return config.LocaleConfig{}, false
	}
	key, ok := s.matcher.Match(id)
	if !ok {
		return config.LocaleConfig{}, false
	}
	lc, ok := s.byLocale[key]
	return lc, ok
}

// All возвращает все локали в порядке конфигурации.
func (s *Settings) All() []config.LocaleConfig {
	if s == nil {
		return nil
	}
	return s.ordered
}
