package models

import "time"

// SiteCategory classifies the content of a crawled onion site (§3).
type SiteCategory string

const (
	CategoryMarketplace  SiteCategory = "marketplace"
	CategoryForum        SiteCategory = "forum"
	CategoryLeakSite     SiteCategory = "leak_site"
	CategoryRansomware   SiteCategory = "ransomware"
	CategoryCarding      SiteCategory = "carding"
	CategoryDrugs        SiteCategory = "drugs"
	CategoryHacking      SiteCategory = "hacking"
	CategoryFraud        SiteCategory = "fraud"
	CategoryCrypto       SiteCategory = "crypto"
	CategoryWeapons      SiteCategory = "weapons"
	CategoryCounterfeit  SiteCategory = "counterfeit"
	CategoryHosting      SiteCategory = "hosting"
	CategorySearch       SiteCategory = "search"
	CategorySocial       SiteCategory = "social"
	CategoryNews         SiteCategory = "news"
	CategoryUnknown      SiteCategory = "unknown"
)

// ThreatLevel is a categorical risk rating shared by sites and detections.
type ThreatLevel string

const (
	ThreatCritical ThreatLevel = "critical"
	ThreatHigh     ThreatLevel = "high"
	ThreatMedium   ThreatLevel = "medium"
	ThreatLow      ThreatLevel = "low"
	ThreatInfo     ThreatLevel = "info"
)

// ThreatLevelFromScore maps a [0,1] risk score to a threat level using the
// fixed thresholds in §4.9.4 step 8.
func ThreatLevelFromScore(score float64) ThreatLevel {
	switch {
	case score >= 0.8:
		return ThreatCritical
	case score >= 0.6:
		return ThreatHigh
	case score >= 0.4:
		return ThreatMedium
	case score >= 0.2:
		return ThreatLow
	default:
		return ThreatInfo
	}
}

// OnionSite is a crawled dark-web site, keyed by a truncated SHA-256 of
// its URL (§3).
type OnionSite struct {
	SiteID            string            `json:"site_id"`
	URL               string            `json:"url"`
	Title             string            `json:"title"`
	Category          SiteCategory      `json:"category"`
	ThreatLevel       ThreatLevel       `json:"threat_level"`
	Language          string            `json:"language"`
	ContentHash       string            `json:"content_hash"`
	LinkedSites       []string          `json:"linked_sites"`
	ExtractedEntities []ExtractedEntity `json:"extracted_entities"`
	KeywordsMatched   []string          `json:"keywords_matched"`
	RiskScore         float64           `json:"risk_score"`
	FirstSeen         time.Time         `json:"first_seen"`
	LastSeen          time.Time         `json:"last_seen"`
	IsOnline          bool              `json:"is_online"`
	PageCount         int               `json:"page_count"`
}

// ExtractedEntityType enumerates the canonical regex-detected entity kinds.
type ExtractedEntityType string

const (
	EntityEmail          ExtractedEntityType = "email"
	EntityBitcoin        ExtractedEntityType = "bitcoin"
	EntityEthereum       ExtractedEntityType = "ethereum"
	EntityMonero         ExtractedEntityType = "monero"
	EntityOnionV2        ExtractedEntityType = "onion_v2"
	EntityOnionV3        ExtractedEntityType = "onion_v3"
	EntitySSHFingerprint ExtractedEntityType = "ssh_fingerprint"
	EntityPGPKey         ExtractedEntityType = "pgp_key"
	EntityPhone          ExtractedEntityType = "phone"
	EntityIPAddress      ExtractedEntityType = "ip_address"
	EntityCreditCard     ExtractedEntityType = "credit_card"
)

// ExtractedEntity is a regex-matched indicator pulled from crawled page
// text, with surrounding context (§3).
type ExtractedEntity struct {
	EntityType ExtractedEntityType `json:"entity_type"`
	Value      string              `json:"value"`
	Context    string              `json:"context"`
	SourceURL  string              `json:"source_url"`
	Confidence float64             `json:"confidence"`
}

// BrandMention is a keyword match discovered in a crawled site (§3).
type BrandMention struct {
	MentionID string    `json:"mention_id"`
	Keyword   string    `json:"keyword"`
	URL       string    `json:"url"`
	SiteID    string    `json:"site_id"`
	Context   string    `json:"context"`
	FoundAt   time.Time `json:"found_at"`
}

// CrawlJob is a queued crawl task (§3). Ordering is by Priority ascending
// (lower = first), tie-broken by ScheduledAt.
type CrawlJob struct {
	JobID          string    `json:"job_id"`
	TargetURL      string    `json:"target_url"`
	Priority       int       `json:"priority"`
	ScheduledAt    time.Time `json:"scheduled_at"`
	Depth          int       `json:"depth"`
	ExtractEntities bool     `json:"extract_entities"`
}

// TunnelDetection is a connection-keyed indicator of proxy/tunnel use.
type TunnelDetection struct {
	ConnectionKey string   `json:"connection_key"`
	Indicators    []string `json:"indicators"`
	RiskScore     float64  `json:"risk_score"`
	Confidence    float64  `json:"confidence"`
}

// BeaconingPattern is a connection-keyed indicator of periodic C2-style
// beaconing behavior.
type BeaconingPattern struct {
	ConnectionKey string   `json:"connection_key"`
	Indicators    []string `json:"indicators"`
	RiskScore     float64  `json:"risk_score"`
	Confidence    float64  `json:"confidence"`
	IntervalSecs  float64  `json:"interval_seconds"`
}
