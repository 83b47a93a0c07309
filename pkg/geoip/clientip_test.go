package geoip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:4312"
	r.Header.Set("X-Forwarded-For", "192.168.1.4, 8.8.8.8, 1.1.1.1")
	r.Header.Set("X-Real-IP", "9.9.9.9")

	assert.Equal(t, "8.8.8.8", ClientIP(r, true))
	assert.Equal(t, "10.0.0.5", ClientIP(r, false))

	r.Header.Del("X-Forwarded-For")
	assert.Equal(t, "9.9.9.9", ClientIP(r, true))

	r.Header.Del("X-Real-IP")
	r.Header.Set("CF-Connecting-IP", "2606:4700::1111")
	assert.Equal(t, "2606:4700::1111", ClientIP(r, true))

	r.Header.Set("CF-Connecting-IP", "garbage")
	assert.Equal(t, "10.0.0.5", ClientIP(r, true))

	r.RemoteAddr = "[::1]:80"
	assert.Equal(t, "::1", ClientIP(r, false))
	r.RemoteAddr = "unix"
	assert.Equal(t, "unix", ClientIP(r, false))
}
