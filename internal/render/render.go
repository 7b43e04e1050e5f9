// Package render отрисовывает фрагменты Yotpo для шаблонов витрины.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/Totarae/YotpoBridge/internal/apperr"
)

// Имена фрагментов.
const (
	ConversionTracking = "yotpo/conversionTracking"
	ReviewsWidget      = "yotpo/reviewsWidget"
	RatingStars        = "yotpo/ratingStars"
	LoyaltyPanel       = "yotpo/loyaltyPanel"
)

//go:embed templates/*.html
var templateFS embed.FS

// Outcome: результат отрисовки.
type Outcome int

const (
	// Unavailable: фрагмент не показывается.
	Unavailable Outcome = iota
	// Available: фрагмент отрисован.
	Available
)

func (o Outcome) String() string {
	if o == Available {
		return "available"
	}
	return "unavailable"
}

// Fragment: отрисованный фрагмент и признак доступности.
type Fragment struct {
	Name    string
	HTML    template.HTML
	Outcome Outcome
}

// Renderer держит разобранные шаблоны.
type Renderer struct {
	tmpl   *template.Template
	logger *zap.Logger
}

// New разбирает встроенные шаблоны.
func New(logger *zap.Logger) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return &Renderer{tmpl: tmpl, logger: logger}, nil
}

// Render отрисовывает фрагмент name. Ошибка отрисовки не возвращается:
// она пишется в лог, а фрагмент помечается Unavailable.
func (r *Renderer) Render(name string, params any) Fragment {
	html, err := r.render(name, params)
	if err != nil {
		r.logger.Warn("Template render failed",
			zap.String("template", name),
			zap.String("error_kind", apperr.Kind(err)),
			zap.Error(err),
		)
		return Fragment{Name: name, Outcome: Unavailable}
	}
	return Fragment{Name: name, HTML: html, Outcome: Available}
}

func (r *Renderer) render(name string, params any) (template.HTML, error) {
	t := r.tmpl.Lookup(name)
	if t == nil {
		return "", fmt.Errorf("%w: unknown template %q", apperr.ErrRender, name)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("%w: %s: %w", apperr.ErrRender, name, err)
	}
	return template.HTML(buf.String()), nil
}
