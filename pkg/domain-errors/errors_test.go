package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	t.Run("plain error defaults to internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})

	t.Run("wrapped domain error keeps its code", func(t *testing.T) {
		err := fmt.Errorf("resolve: %w", New(CodeUnavailable, "percentage unavailable"))
		assert.Equal(t, CodeUnavailable, CodeOf(err))
		assert.True(t, HasCode(err, CodeUnavailable))
		assert.False(t, HasCode(err, CodeInternal))
	})

	t.Run("nil error has no code", func(t *testing.T) {
		assert.False(t, HasCode(nil, CodeInternal))
	})
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := errors.New("redis down")
	err := Wrap(cause, CodeUnavailable, "cache read failed")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "cache read failed: redis down", err.Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Code]int{
		CodeInvalidArgument: http.StatusBadRequest,
		CodeTooManyRequests: http.StatusTooManyRequests,
		CodeUnavailable:     http.StatusServiceUnavailable,
		CodeTimeout:         http.StatusGatewayTimeout,
		CodeNotFound:        http.StatusNotFound,
		CodeInternal:        http.StatusInternalServerError,
		Code("unknown"):     http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), "code %s", code)
	}
}
