package utils

import "testing"

func TestParseLink(t *testing.T) {
	link, err := ParseLink("https://Example.com/path?utm_source=test&x=1#top")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.Host != "example.com" {
		t.Fatalf("unexpected host: %s", link.Host)
	}
	if link.URL != "https://example.com/path?x=1" {
		t.Fatalf("unexpected url: %s", link.URL)
	}

	link, err = ParseLink("http://xn--bcher-kva.example/).")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if link.Host != "bücher.example" {
		t.Fatalf("expected unicode host, got %s", link.Host)
	}
}

func TestExtractLinks(t *testing.T) {
	links := ExtractLinks("see https://a.com/x and HTTP://b.org. or ftp://c.net")
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %v", links)
	}
	link, err := ParseLink(links[1])
	if err != nil || link.Host != "b.org" {
		t.Fatalf("expected trailing punctuation trimmed, got %+v (%v)", link, err)
	}
}

func TestInviteCodes(t *testing.T) {
	codes := InviteCodes("join discord.gg/abc123 or https://discord.com/invite/xyz-9 and DISCORD.GG/abc123")
	if len(codes) != 2 || codes[0] != "abc123" || codes[1] != "xyz-9" {
		t.Fatalf("unexpected codes %v", codes)
	}
	if codes := InviteCodes("nothing to see at discord.com"); len(codes) != 0 {
		t.Fatalf("expected no codes, got %v", codes)
	}
}

func TestHostMatches(t *testing.T) {
	domains := []string{"discordapp.com", " Example.org "}
	if !HostMatches("cdn.discordapp.com", domains) {
		t.Fatalf("expected subdomain match")
	}
	if !HostMatches("example.org.", domains) {
		t.Fatalf("expected exact match")
	}
	if HostMatches("notdiscordapp.com", domains) {
		t.Fatalf("did not expect suffix without dot to match")
	}
}
