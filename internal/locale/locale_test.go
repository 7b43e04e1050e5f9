package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestParse(t *testing.T) {
	tag, err := Parse("en_US")
	require.NoError(t, err)
	assert.Equal(t, language.AmericanEnglish, tag)

	tag, err = Parse(Default)
	require.NoError(t, err)
	assert.Equal(t, language.Und, tag)

	_, err = Parse("not a locale!")
	assert.Error(t, err)
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, "fr", Language("fr_FR"))
	assert.Equal(t, "en", Language(Default))
	assert.Equal(t, "en", Language("???"))
}

func TestMatcher(t *testing.T) {
	m, err := NewMatcher([]string{"en_US", "fr_FR", Default})
	require.NoError(t, err)

	got, ok := m.Match("en_US")
	assert.True(t, ok)
	assert.Equal(t, "en_US", got)

	got, ok = m.Match("fr_CA")
	assert.True(t, ok)
	assert.Equal(t, "fr_FR", got)

	got, ok = m.Match("ja_JP")
	assert.True(t, ok)
	assert.Equal(t, Default, got)
}

func TestMatcher_NoDefault(t *testing.T) {
	m, err := NewMatcher([]string{"de_DE"})
	require.NoError(t, err)

	_, ok := m.Match("ja_JP")
	assert.False(t, ok)

	got, ok := m.Match("DE_de")
	assert.True(t, ok)
	assert.Equal(t, "de_DE", got)
}

func TestNewMatcher_BadLocale(t *testing.T) {
	_, err := NewMatcher([]string{"%%"})
	assert.Error(t, err)
}

func TestFromAcceptLanguage(t *testing.T) {
	assert.Equal(t, "de_DE", FromAcceptLanguage("de-DE,de;q=0.9,en;q=0.8"))
	assert.Equal(t, "en_US", FromAcceptLanguage("en-US"))
	assert.Equal(t, "fr", FromAcceptLanguage("fr"))
	assert.Equal(t, Default, FromAcceptLanguage(""))
	assert.Equal(t, Default, FromAcceptLanguage("not a language!!"))
}
