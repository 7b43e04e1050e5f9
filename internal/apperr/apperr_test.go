package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"configuration", fmt.Errorf("yotpo.token: %w", ErrServiceNotConfigured), "configuration"},
		{"transport", fmt.Errorf("post: %w", ErrTransport), "transport"},
		{"render", ErrRender, "render"},
		{"conflict", fmt.Errorf("job x: %w", ErrConflict), "conflict"},
		{"not found", ErrNotFound, "not_found"},
		{"timeout", context.DeadlineExceeded, "timeout"},
		{"canceled", context.Canceled, "canceled"},
		{"other", errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusOK, HTTPStatus(nil))
	assert.Equal(t, http.StatusNotFound, HTTPStatus(fmt.Errorf("product 42: %w", ErrNotFound)))
	assert.Equal(t, http.StatusConflict, HTTPStatus(fmt.Errorf("job x: %w", ErrConflict)))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(ErrTransport))
	assert.Equal(t, http.StatusBadGateway, HTTPStatus(ErrServiceNotConfigured))
	assert.Equal(t, http.StatusGatewayTimeout, HTTPStatus(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("boom")))
}
