package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Totarae/YotpoBridge/internal/apperr"
)

func record(name string, trace *[]string, outcome Outcome) Handler {
	return func(_ context.Context, s *State) (Outcome, error) {
		*trace = append(*trace, name)
		s.Set(name, true)
		return outcome, nil
	}
}

func newState() *State {
	return NewState(httptest.NewRequest(http.MethodGet, "/", nil), "en_US")
}

func TestRun_BaseFirstThenRegistrationOrder(t *testing.T) {
	var trace []string
	p := New()
	p.Append(ProductShow, record("reviews", &trace, Next))
	p.Handle(ProductShow, record("base", &trace, Next))
	p.Append(ProductShow, record("ratings", &trace, Next))

	s := newState()
	require.NoError(t, p.Run(context.Background(), ProductShow, s))
	assert.Equal(t, []string{"base", "reviews", "ratings"}, trace)
	assert.Equal(t, 3, p.Len(ProductShow))
	assert.Len(t, s.View, 3)
}

func TestRun_DoneShortCircuits(t *testing.T) {
	var trace []string
	p := New()
	p.Handle(PlaceOrder, record("base", &trace, Done))
	p.Append(PlaceOrder, record("loyalty", &trace, Next))

	require.NoError(t, p.Run(context.Background(), PlaceOrder, newState()))
	assert.Equal(t, []string{"base"}, trace)
}

func TestRun_ErrorStops(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	p := New()
	p.Handle(OrderConfirm, func(context.Context, *State) (Outcome, error) { return Next, boom })
	p.Append(OrderConfirm, record("tracking", &trace, Next))

	err := p.Run(context.Background(), OrderConfirm, newState())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, trace)
}

func TestRun_UnknownRoute(t *testing.T) {
	err := New().Run(context.Background(), "Cart-Show", newState())
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRun_CanceledContext(t *testing.T) {
	var trace []string
	p := New()
	p.Handle(TileShow, record("base", &trace, Next))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.Run(ctx, TileShow, newState()), context.Canceled)
	assert.Empty(t, trace)
}

func TestState(t *testing.T) {
	s := &State{}
	assert.Equal(t, http.StatusOK, s.StatusCode())

	s.Set("k", 1)
	v, ok := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = s.Get("missing")
	assert.False(t, ok)
}
