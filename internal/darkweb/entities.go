package darkweb

import (
	"regexp"
	"strings"

	"github.com/sentrywatch/threatwatch/internal/models"
)

// entityPatterns is the set of 12 canonical regexes run against every
// crawled page body (§4.9.4 step 6).
var entityPatterns = map[models.ExtractedEntityType]*regexp.Regexp{
	models.EntityEmail:          regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`),
	"bitcoin_legacy":            regexp.MustCompile(`\b[13][a-km-zA-HJ-NP-Z1-9]{25,34}\b`),
	"bitcoin_bech32":            regexp.MustCompile(`\bbc1[a-zA-HJ-NP-Z0-9]{39,59}\b`),
	models.EntityMonero:         regexp.MustCompile(`\b4[0-9AB][1-9A-HJ-NP-Za-km-z]{93}\b`),
	models.EntityEthereum:       regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`),
	models.EntityOnionV2:        regexp.MustCompile(`(?i)\b[a-z2-7]{16}\.onion\b`),
	models.EntityOnionV3:        regexp.MustCompile(`(?i)\b[a-z2-7]{56}\.onion\b`),
	models.EntitySSHFingerprint: regexp.MustCompile(`\b(?:SHA256|MD5):[A-Za-z0-9+/=:]{32,64}\b`),
	models.EntityPGPKey:         regexp.MustCompile(`-----BEGIN PGP PUBLIC KEY BLOCK-----`),
	models.EntityPhone:          regexp.MustCompile(`\b\+?[1-9]\d{1,14}\b`),
	models.EntityIPAddress:      regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
	models.EntityCreditCard:     regexp.MustCompile(`\b(?:4[0-9]{12}(?:[0-9]{3})?|5[1-5][0-9]{14}|3[47][0-9]{13})\b`),
}

// bitcoinEntityTypes collapses the two bitcoin address formats into the
// single ExtractedEntityType the model enumerates (§3).
var bitcoinEntityTypes = map[string]bool{"bitcoin_legacy": true, "bitcoin_bech32": true}

// extractEntities runs every canonical regex against content, recording a
// ±50-char context window per hit (§4.9.4 step 6).
func extractEntities(content, sourceURL string) []models.ExtractedEntity {
	var out []models.ExtractedEntity
	for patternKey, re := range entityPatterns {
		entityType := models.ExtractedEntityType(patternKey)
		if bitcoinEntityTypes[string(patternKey)] {
			entityType = models.EntityBitcoin
		}
		for _, loc := range re.FindAllStringIndex(content, -1) {
			start := loc[0] - 50
			if start < 0 {
				start = 0
			}
			end := loc[1] + 50
			if end > len(content) {
				end = len(content)
			}
			out = append(out, models.ExtractedEntity{
				EntityType: entityType,
				Value:      content[loc[0]:loc[1]],
				Context:    content[start:end],
				SourceURL:  sourceURL,
				Confidence: 1.0,
			})
		}
	}
	return out
}

// onionLinkPattern matches both v2 and v3 onion hostnames for outbound
// link discovery (§4.9.4 step 7).
var onionLinkPattern = regexp.MustCompile(`(?i)\b(?:[a-z2-7]{16}|[a-z2-7]{56})\.onion\b`)

// extractOnionLinks returns the deduplicated set of onion hostnames found
// in content, each prefixed "http://".
func extractOnionLinks(content string) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range onionLinkPattern.FindAllString(content, -1) {
		host := strings.ToLower(m)
		if seen[host] {
			continue
		}
		seen[host] = true
		out = append(out, "http://"+host)
	}
	return out
}

// categoryKeywords is the fixed category → keyword table used by the
// lightweight analyzer path when no monitored keywords are configured
// (§4.9.4 step 5).
var categoryKeywords = map[models.SiteCategory][]string{
	models.CategoryMarketplace: {"market", "shop", "buy", "sell", "vendor", "escrow"},
	models.CategoryForum:       {"forum", "board", "discussion", "thread", "community"},
	models.CategoryLeakSite:    {"leak", "dump", "breach", "database", "combo"},
	models.CategoryRansomware:  {"ransomware", "decrypt", "ransom", "locked", "encrypted files"},
	models.CategoryCarding:     {"card", "cvv", "fullz", "dumps", "bins", "cc"},
	models.CategoryDrugs:       {"drug", "mdma", "cocaine", "cannabis", "pharma"},
	models.CategoryHacking:     {"hack", "exploit", "0day", "shell", "rat", "botnet"},
	models.CategoryFraud:       {"fraud", "scam", "fake", "counterfeit id", "documents"},
	models.CategoryCrypto:      {"bitcoin", "crypto", "mixer", "tumbler", "exchange"},
}

// categorizeSite picks the category with the most keyword hits across
// title+content, or Unknown if nothing matched.
func categorizeSite(content, title string) models.SiteCategory {
	text := strings.ToLower(title + " " + content)

	var best models.SiteCategory = models.CategoryUnknown
	bestScore := 0
	for category, keywords := range categoryKeywords {
		score := 0
		for _, kw := range keywords {
			if strings.Contains(text, kw) {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = category
		}
	}
	return best
}

// categoryRiskWeights is the fixed base score per category (§4.9.4 step 8).
var categoryRiskWeights = map[models.SiteCategory]float64{
	models.CategoryRansomware: 0.9,
	models.CategoryLeakSite:   0.85,
	models.CategoryCarding:    0.8,
	models.CategoryHacking:    0.75,
	models.CategoryFraud:      0.7,
	models.CategoryMarketplace: 0.6,
	models.CategoryDrugs:      0.5,
	models.CategoryWeapons:    0.5,
	models.CategoryForum:      0.4,
	models.CategoryUnknown:    0.3,
}

// entityRiskWeights is the fixed per-entity-type additive weight (§4.9.4
// step 8); entity types not listed contribute the 0.02 default.
var entityRiskWeights = map[models.ExtractedEntityType]float64{
	models.EntityCreditCard:     0.3,
	models.EntityEmail:          0.1,
	models.EntityBitcoin:        0.05,
	models.EntitySSHFingerprint: 0.15,
	models.EntityPGPKey:         0.05,
}

const defaultEntityRiskWeight = 0.02

// calculateRiskScore implements §4.9.4 step 8's
// min(1.0, category_weight + Σ entity_weights + 0.15·|keywords_matched|).
func calculateRiskScore(category models.SiteCategory, entities []models.ExtractedEntity, keywordsMatched []string) (float64, models.ThreatLevel) {
	score := categoryRiskWeights[category]
	if score == 0 {
		score = categoryRiskWeights[models.CategoryUnknown]
	}

	for _, e := range entities {
		if w, ok := entityRiskWeights[e.EntityType]; ok {
			score += w
		} else {
			score += defaultEntityRiskWeight
		}
	}

	score += float64(len(keywordsMatched)) * 0.15
	if score > 1.0 {
		score = 1.0
	}

	return score, models.ThreatLevelFromScore(score)
}

// englishWords is the fixed heuristic word set used to detect English
// content when no language-detection library match is available (§4.9.4
// step 9).
var englishWords = map[string]bool{
	"the": true, "and": true, "is": true, "in": true, "to": true,
	"of": true, "for": true, "with": true,
}

// detectLanguage applies a 100-word English-word-count heuristic,
// returning "unknown" for anything shorter than 10 characters or with no
// recognized words.
func detectLanguage(text string) string {
	if len(text) < 10 {
		return "unknown"
	}
	words := strings.Fields(strings.ToLower(text))
	if len(words) > 100 {
		words = words[:100]
	}
	for _, w := range words {
		if englishWords[w] {
			return "en"
		}
	}
	return "unknown"
}

// checkKeywordMatches returns the subset of monitoredKeywords present in
// content (case-insensitive substring match).
func checkKeywordMatches(content string, monitoredKeywords []string) []string {
	lower := strings.ToLower(content)
	var out []string
	for _, kw := range monitoredKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			out = append(out, kw)
		}
	}
	return out
}
