package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseUserAgent(t *testing.T) {
	cases := []struct {
		ua, browser, os string
	}{
		{"Mozilla/5.0 (X11; Linux x86_64; rv:120.0) Gecko/20100101 Firefox/120.0", "Firefox", "Linux"},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36", "Chrome", "Windows"},
		{"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15", "Safari", "MacOS"},
		// First match wins: Edge carries "Chrome", Android carries "Linux", iPhone carries "Mac".
		{"Mozilla/5.0 (Windows NT 10.0) AppleWebKit/537.36 Chrome/120.0 Safari/537.36 Edg/120.0", "Chrome", "Windows"},
		{"Mozilla/5.0 (Linux; Android 14) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36", "Chrome", "Linux"},
		{"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Mobile/15E148", "Unknown", "MacOS"},
		{"Mozilla/5.0 (iPad; CPU OS 17_0) AppleWebKit/605.1.15 Mobile/15E148", "Unknown", "iOS"},
		{"Mozilla/4.0 (compatible; MSIE 8.0; Windows NT 6.1; Trident/4.0)", "IE", "Windows"},
		{"curl/8.4.0", "Unknown", "Unknown"},
		{"", "Unknown", "Unknown"},
	}
	for _, tc := range cases {
		browser, os := ParseUserAgent(tc.ua)
		assert.Equal(t, tc.browser, browser, tc.ua)
		assert.Equal(t, tc.os, os, tc.ua)
	}
}

func TestNewSessionID(t *testing.T) {
	a, err := NewSessionID()
	assert.NoError(t, err)
	b, err := NewSessionID()
	assert.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
