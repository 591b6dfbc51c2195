package investigation

// trackerDomains is the ~17-entry reverse-match tracker list used to
// classify a captured request's host as a tracker (§4.8).
var trackerDomains = []string{
	"google-analytics.com", "googletagmanager.com", "doubleclick.net",
	"facebook.net", "connect.facebook.net", "hotjar.com", "segment.io",
	"segment.com", "mixpanel.com", "amplitude.com", "fullstory.com",
	"criteo.com", "adsrvr.org", "scorecardresearch.com", "quantserve.com",
	"taboola.com", "outbrain.com",
}

// cdnDomains is the CDN-host list used for the separate §4.8 CDN flag.
var cdnDomains = []string{
	"cloudflare.com", "cloudfront.net", "akamai.net", "akamaized.net",
	"fastly.net", "jsdelivr.net", "unpkg.com", "cdnjs.cloudflare.com",
	"azureedge.net", "stackpathcdn.com",
}

// suspiciousTLDs are TLDs disproportionately associated with phishing
// and brand-impersonation campaigns, used by the reputation heuristic.
var suspiciousTLDs = []string{
	".tk", ".ml", ".ga", ".cf", ".gq", ".xyz", ".top", ".club", ".work", ".click",
}

// commonBrandNames is the ~5-entry brand list the typosquat-distance
// reputation heuristic compares the target's registrable domain against.
var commonBrandNames = []string{"paypal", "microsoft", "google", "apple", "amazon"}

// reverseMatches reports whether host is domain or a subdomain of domain.
func reverseMatches(host, domain string) bool {
	if host == domain {
		return true
	}
	return len(host) > len(domain) && host[len(host)-len(domain)-1:] == "."+domain
}

func matchesAny(host string, list []string) bool {
	for _, d := range list {
		if reverseMatches(host, d) {
			return true
		}
	}
	return false
}
