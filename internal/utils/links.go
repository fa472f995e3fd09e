package utils

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/idna"
)

var linkRegex = regexp.MustCompile(`(?i)\bhttps?://[^\s<>]+`)

var inviteRegex = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:discord(?:app)?\.com/invite|discord\.gg)/([a-z0-9-]{2,32})`)

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "fbclid", "gclid"}

type Link struct {
	URL  string
	Host string
}

func ExtractLinks(content string) []string {
	return linkRegex.FindAllString(content, -1)
}

// ParseLink lowercases the host, converts it from punycode to Unicode and
// drops credentials, fragments and tracking parameters.
func ParseLink(raw string) (Link, error) {
	raw = strings.TrimRight(raw, ".,;:!?)>\"'")
	if !strings.HasPrefix(strings.ToLower(raw), "http://") && !strings.HasPrefix(strings.ToLower(raw), "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return Link{}, err
	}

	host := strings.ToLower(parsed.Hostname())
	if unicodeHost, err := idna.ToUnicode(host); err == nil {
		host = unicodeHost
	}

	parsed.Host = host
	if port := parsed.Port(); port != "" {
		parsed.Host = host + ":" + port
	}
	parsed.Fragment = ""
	parsed.User = nil

	query := parsed.Query()
	for _, key := range trackingParams {
		query.Del(key)
	}
	parsed.RawQuery = sortedQuery(query)

	return Link{URL: parsed.String(), Host: host}, nil
}

func sortedQuery(values url.Values) string {
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	clean := url.Values{}
	for _, key := range keys {
		clean[key] = values[key]
	}
	return clean.Encode()
}

// InviteCodes returns the Discord invite codes in content, deduplicated, in order.
func InviteCodes(content string) []string {
	var codes []string
	seen := make(map[string]struct{})
	for _, match := range inviteRegex.FindAllStringSubmatch(content, -1) {
		code := match[1]
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}

// HostMatches reports whether host is one of domains or a subdomain of one.
func HostMatches(host string, domains []string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	for _, domain := range domains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain == "" {
			continue
		}
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}
