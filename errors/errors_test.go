package bichon_errors

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[ErrorCode]int{
		InvalidParameter:      http.StatusBadRequest,
		ResourceNotFound:      http.StatusNotFound,
		AlreadyExists:         http.StatusConflict,
		PermissionDenied:      http.StatusForbidden,
		TooManyRequest:        http.StatusTooManyRequests,
		MethodNotAllowed:      http.StatusMethodNotAllowed,
		NetworkError:          http.StatusBadGateway,
		AutoconfigFetchFailed: http.StatusBadGateway,
		InternalError:         http.StatusInternalServerError,
	}
	for code, status := range cases {
		assert.Equal(t, status, HTTPStatus(code))
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ResourceNotFound, CodeOf(New(ResourceNotFound, "missing")))
	assert.Equal(t, InternalError, CodeOf(errors.New("plain error")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("socket closed")
	wrapped := Wrap(NetworkError, "IMAP connection failed", cause)

	assert.Equal(t, cause, errors.Unwrap(wrapped))
	assert.Contains(t, wrapped.Error(), "socket closed")
	assert.Contains(t, wrapped.Error(), "NETWORK_ERROR")
}
