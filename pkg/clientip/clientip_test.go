package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRealClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	assert.Equal(t, "203.0.113.9", RealClientIP(r, true))
	assert.Equal(t, "10.0.0.1", RealClientIP(r, false))

	r.Header.Del("X-Forwarded-For")
	r.RemoteAddr = "garbage"
	assert.Equal(t, "garbage", RealClientIP(r, true))
}
