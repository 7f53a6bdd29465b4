package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
)

const unknown = "Unknown"

type uaRule struct {
	name    string
	needles []string
}

// Order matters: the first rule with a matching substring wins.
var browserRules = []uaRule{
	{"Firefox", []string{"Firefox"}},
	{"Chrome", []string{"Chrome"}},
	{"Safari", []string{"Safari"}},
	{"Edge", []string{"Edge"}},
	{"IE", []string{"MSIE", "Trident"}},
}

var osRules = []uaRule{
	{"Windows", []string{"Windows"}},
	{"MacOS", []string{"Mac"}},
	{"Linux", []string{"Linux"}},
	{"Android", []string{"Android"}},
	{"iOS", []string{"iPhone", "iPad"}},
}

// ParseUserAgent maps a user agent to coarse browser and OS names using
// case-sensitive substring tests.
func ParseUserAgent(ua string) (browser, os string) {
	return match(ua, browserRules), match(ua, osRules)
}

func match(ua string, rules []uaRule) string {
	if ua == "" {
		return unknown
	}
	for _, r := range rules {
		for _, n := range r.needles {
			if strings.Contains(ua, n) {
				return r.name
			}
		}
	}
	return unknown
}

// NewSessionID returns 128 random bits, hex encoded.
func NewSessionID() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
