package investigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseDomain(t *testing.T) {
	assert.Equal(t, "example.com", baseDomain("www.example.com"))
	assert.Equal(t, "example.co.uk", baseDomain("a.b.example.co.uk"))
	assert.Equal(t, "example.com", baseDomain("example.com"))
}

func TestReverseMatches(t *testing.T) {
	assert.True(t, reverseMatches("doubleclick.net", "doubleclick.net"))
	assert.True(t, reverseMatches("stats.doubleclick.net", "doubleclick.net"))
	assert.False(t, reverseMatches("notdoubleclick.net", "doubleclick.net"))
}

func TestBuildDomainTreeClassifiesFirstAndThirdParty(t *testing.T) {
	entries := []capturedEntry{
		{URL: "https://example.com/app.js", Host: "example.com", InitiatorHost: "example.com"},
		{URL: "https://google-analytics.com/ga.js", Host: "google-analytics.com", InitiatorHost: "example.com", Size: 2048},
		{URL: "https://cloudflare.com/cdn.js", Host: "cloudflare.com", InitiatorHost: "example.com"},
	}
	nodes := buildDomainTree("example.com", entries)

	assert.Equal(t, HostFirstParty, nodes["example.com"].Class)
	assert.Equal(t, HostThirdParty, nodes["google-analytics.com"].Class)
	assert.True(t, nodes["google-analytics.com"].IsTracker)
	assert.True(t, nodes["cloudflare.com"].IsCDN)
	assert.EqualValues(t, 2048, nodes["google-analytics.com"].RequestSize)
}

func TestSummarizeCounts(t *testing.T) {
	nodes := map[string]*domainNode{
		"example.com":           {Host: "example.com", Class: HostFirstParty},
		"google-analytics.com":  {Host: "google-analytics.com", Class: HostThirdParty, IsTracker: true, RequestSize: 100},
		"cdn.cloudflare.com":    {Host: "cdn.cloudflare.com", Class: HostThirdParty, IsCDN: true, Redirect: true},
	}
	s := summarize(nodes)
	assert.Equal(t, 3, s.TotalDomains)
	assert.Equal(t, 1, s.TrackerCount)
	assert.Equal(t, 2, s.ThirdPartyCount)
	assert.Equal(t, 1, s.RedirectCount)
}

func TestRiskScoreDecreasesWithTrackers(t *testing.T) {
	clean := riskSummary{TotalDomains: 1}
	tracked := riskSummary{TotalDomains: 5, TrackerCount: 3, ThirdPartyCount: 4, RedirectCount: 2}
	assert.Greater(t, riskScore(clean), riskScore(tracked))
	assert.GreaterOrEqual(t, riskScore(tracked), 0.0)
	assert.LessOrEqual(t, riskScore(clean), 100.0)
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 0, levenshtein("paypal", "paypal"))
	assert.Equal(t, 1, levenshtein("paypall", "paypal"))
	assert.Equal(t, 1, levenshtein("paypal", "paypai"))
}

func TestCheckReputationFlagsTyposquatAndTLD(t *testing.T) {
	flags := checkReputation("paypai.tk")
	assert.True(t, flags.SuspiciousTLD)
	assert.True(t, flags.TypoSquat)
	assert.Equal(t, "paypal", flags.TypoSquatBrand)
}

func TestCheckReputationCleanDomain(t *testing.T) {
	flags := checkReputation("mycompany.com")
	assert.False(t, flags.SuspiciousTLD)
	assert.False(t, flags.TypoSquat)
}

func TestHammingDistanceAndSimilarity(t *testing.T) {
	assert.Equal(t, 0, hammingDistance(0xFF, 0xFF))
	assert.Equal(t, 1.0, similarity(0xFF, 0xFF))
	assert.Less(t, similarity(0x00, 0xFFFFFFFFFFFFFFFF), 0.1)
}

func TestBestMatchThreshold(t *testing.T) {
	refs := []uint64{0b1010101010101010}
	best, matched := bestMatch(0b1010101010101010, refs)
	assert.Equal(t, 1.0, best)
	assert.True(t, matched)

	best, matched = bestMatch(^uint64(0), refs)
	assert.False(t, matched)
	_ = best
}

func TestNoopCrossReferencer(t *testing.T) {
	mentioned, err := noopCrossReferencer{}.HasMention("example.com")
	assert.NoError(t, err)
	assert.False(t, mentioned)
}
