package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		Unauthorized:        http.StatusUnauthorized,
		BadRequest:          http.StatusBadRequest,
		PayloadTooLarge:     http.StatusRequestEntityTooLarge,
		NotFound:            http.StatusNotFound,
		TooManyRequests:     http.StatusTooManyRequests,
		UpstreamUnavailable: http.StatusBadGateway,
		ConfigurationError:  http.StatusInternalServerError,
		Internal:            http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), kind.String())
	}
}

func TestKindOfWrapped(t *testing.T) {
	base := errors.New("disk full")
	err := fmt.Errorf("send: %w", Wrap(NotFound, "chat session not found", base))

	assert.Equal(t, NotFound, KindOf(err))
	assert.ErrorIs(t, err, base)
	assert.Equal(t, Internal, KindOf(base))
}
