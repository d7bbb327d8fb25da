package compliance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const botUA = "Youth-Service-Catalogue-Bot/1.0"

func TestRobots_LongestMatchWins(t *testing.T) {
	r := ParseRobots("User-agent: *\nDisallow: /a\nAllow: /a/public\n")

	assert.False(t, r.Allowed(botUA, "/a/private"))
	assert.False(t, r.Allowed(botUA, "/a"))
	assert.True(t, r.Allowed(botUA, "/a/public/page"))
	assert.True(t, r.Allowed(botUA, "/b"))
}

func TestRobots_AllowWinsTie(t *testing.T) {
	r := ParseRobots("User-agent: *\nDisallow: /x\nAllow: /x\n")
	assert.True(t, r.Allowed(botUA, "/x/y"))
}

func TestRobots_NamedGroupOverridesWildcard(t *testing.T) {
	body := `# comment line
User-agent: *
Disallow: /

User-agent: youth-service-catalogue-bot
Disallow: /admin
`
	r := ParseRobots(body)
	assert.True(t, r.Allowed(botUA, "/services"))
	assert.False(t, r.Allowed(botUA, "/admin/users"))
	assert.False(t, r.Allowed("OtherBot/2.0", "/services"))
}

func TestRobots_EmptyDisallowAllowsAll(t *testing.T) {
	r := ParseRobots("User-agent: *\nDisallow:\n")
	assert.True(t, r.Allowed(botUA, "/anything"))
}

func TestRobots_GroupWithSeveralAgents(t *testing.T) {
	r := ParseRobots("User-agent: googlebot\nUser-agent: youth-service-catalogue-bot\nDisallow: /private\n")
	assert.False(t, r.Allowed(botUA, "/private"))
	assert.True(t, r.Allowed("bingbot", "/private"))
}

func TestRobots_Wildcards(t *testing.T) {
	r := ParseRobots("User-agent: *\nDisallow: /*.pdf$\nDisallow: /search*q=\n")

	assert.False(t, r.Allowed(botUA, "/files/report.pdf"))
	assert.True(t, r.Allowed(botUA, "/files/report.pdf.html"))
	assert.False(t, r.Allowed(botUA, "/search?q=youth"))
	assert.True(t, r.Allowed(botUA, "/search"))
}

func TestRobots_RobotsFileAlwaysAllowed(t *testing.T) {
	r := ParseRobots("User-agent: *\nDisallow: /\n")
	assert.True(t, r.Allowed(botUA, "/robots.txt"))
	assert.False(t, r.Allowed(botUA, ""))
}

func TestRobots_AllowAll(t *testing.T) {
	assert.True(t, AllowAll.Allowed(botUA, "/whatever"))
	assert.True(t, ParseRobots("").Allowed(botUA, "/"))
	assert.True(t, ParseRobots("garbage without colons\n").Allowed(botUA, "/"))
}

func TestRobots_CaseInsensitiveKeys(t *testing.T) {
	r := ParseRobots("USER-AGENT: *\nDISALLOW: /Private\n")
	assert.False(t, r.Allowed(botUA, "/Private/x"))
	assert.True(t, r.Allowed(botUA, "/private/x"), "paths are case sensitive")
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern, path string
		want          bool
	}{
		{"/", "/anything", true},
		{"/a", "/ab", true},
		{"/a$", "/a", true},
		{"/a$", "/ab", false},
		{"/*/x", "/foo/x", true},
		{"/*/x", "/foo/y", false},
		{"*", "/z", true},
		{"/a*b*c", "/a-b-c", true},
		{"/a*b*c", "/a-c-b", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"_"+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, matchPattern(tt.pattern, tt.path))
		})
	}
}

func TestProductToken(t *testing.T) {
	assert.Equal(t, "youth-service-catalogue-bot", productToken(botUA))
	assert.Equal(t, "mozilla", productToken("Mozilla (compatible)"))
	assert.Equal(t, "", productToken("  "))
}
