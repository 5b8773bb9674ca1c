package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientKeyHeaderFallbackChain(t *testing.T) {
	req := httptest.NewRequest("POST", "/api/rooms", nil)
	req.Header.Set("x-forwarded-for", "203.0.113.9, 10.0.0.1")
	req.Header.Set("x-real-ip", "198.51.100.4")
	assert.Equal(t, "203.0.113.9", clientKey(req), "first x-forwarded-for hop wins")

	req = httptest.NewRequest("POST", "/api/rooms", nil)
	req.Header.Set("x-real-ip", "198.51.100.4")
	assert.Equal(t, "198.51.100.4", clientKey(req))

	req = httptest.NewRequest("POST", "/api/rooms", nil)
	assert.Equal(t, "unknown", clientKey(req))
}
