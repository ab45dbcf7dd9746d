package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindNeedsCooldown(t *testing.T) {
	assert.False(t, KindHTTPStatus.NeedsCooldown())
	assert.True(t, KindRowLookup.NeedsCooldown())
	assert.True(t, KindTransport.NeedsCooldown())
	assert.True(t, KindStorage.NeedsCooldown())
	assert.True(t, KindUnknown.NeedsCooldown())
}

func TestKindOfWrapped(t *testing.T) {
	base := Transport(errors.New("connection refused"))
	wrapped := fmt.Errorf("fetch tile: %w", base)

	assert.Equal(t, KindTransport, KindOf(wrapped))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
	assert.ErrorContains(t, wrapped, "connection refused")
}

func TestStatusCode(t *testing.T) {
	err := HTTPStatus(404, "404 Not Found").WithID(7)

	assert.Equal(t, 404, StatusCode(err))
	assert.Equal(t, 7, err.ID)
	assert.Equal(t, 0, StatusCode(RowLookup(3, errors.New("out of range"))))
	assert.Equal(t, "http_status error (code 404): 404 Not Found", err.Error())
}

func TestIsRetryableStatusCode(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		assert.True(t, IsRetryableStatusCode(code), "code %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 501} {
		assert.False(t, IsRetryableStatusCode(code), "code %d", code)
	}
}
