package investigation

import "strings"

// reputationFlags is the result of the optional brand-impersonation /
// suspicious-TLD heuristic (§4.8).
type reputationFlags struct {
	SuspiciousTLD  bool
	TypoSquat      bool
	TypoSquatBrand string
	Distance       int
}

// checkReputation flags rootHost's registrable domain against a
// suspicious-TLD list and a typosquat-distance check versus a short list
// of commonly-impersonated brand names. No ecosystem string-distance
// library appears as a direct import anywhere in the retrieved pack (the
// only "levenshtein" hit is an indirect, HCL-pulled transitive dependency
// of an unrelated repo), so the distance function below is hand-rolled.
func checkReputation(rootHost string) reputationFlags {
	var flags reputationFlags
	lower := strings.ToLower(rootHost)
	for _, tld := range suspiciousTLDs {
		if strings.HasSuffix(lower, tld) {
			flags.SuspiciousTLD = true
			break
		}
	}

	base := baseDomain(rootHost)
	label := base
	if i := strings.IndexByte(base, '.'); i > 0 {
		label = base[:i]
	}

	bestDist := -1
	bestBrand := ""
	for _, brand := range commonBrandNames {
		if label == brand {
			continue // exact match is the brand's own domain, not a squat
		}
		d := levenshtein(label, brand)
		if bestDist == -1 || d < bestDist {
			bestDist = d
			bestBrand = brand
		}
	}
	if bestDist >= 1 && bestDist <= 2 {
		flags.TypoSquat = true
		flags.TypoSquatBrand = bestBrand
		flags.Distance = bestDist
	}
	return flags
}

// levenshtein computes the classic edit distance between a and b.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			curr[j] = min
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
