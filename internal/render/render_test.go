package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type tracking struct {
	AppKey        string
	OrderID       string
	OrderAmount   string
	OrderCurrency string
}

func newRenderer(t *testing.T) (*Renderer, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	r, err := New(zap.New(core))
	require.NoError(t, err)
	return r, logs
}

func TestRender_ConversionTracking(t *testing.T) {
	r, logs := newRenderer(t)

	f := r.Render(ConversionTracking, tracking{AppKey: "app-us", OrderID: "00001001", OrderAmount: "59.97", OrderCurrency: "USD"})
	assert.Equal(t, Available, f.Outcome)
	assert.Contains(t, string(f.HTML), `orderId: "00001001"`)
	assert.Contains(t, string(f.HTML), "app_key=app-us")
	assert.Zero(t, logs.Len())
}

func TestRender_EscapesMarkup(t *testing.T) {
	r, _ := newRenderer(t)

	f := r.Render(RatingStars, map[string]string{"AppKey": "k", "ProductID": `"><script>`, "Language": "en"})
	assert.Equal(t, Available, f.Outcome)
	assert.NotContains(t, string(f.HTML), "<script>")
}

func TestRender_FailureIsSwallowed(t *testing.T) {
	r, logs := newRenderer(t)

	f := r.Render(ReviewsWidget, struct{}{})
	assert.Equal(t, Unavailable, f.Outcome)
	assert.Empty(t, f.HTML)

	f = r.Render("yotpo/missing", nil)
	assert.Equal(t, Unavailable, f.Outcome)

	entries := logs.FilterMessage("Template render failed").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "render", entries[0].ContextMap()["error_kind"])
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "available", Available.String())
	assert.Equal(t, "unavailable", Unavailable.String())
}
