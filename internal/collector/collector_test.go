package collector

import (
	"context"
	"testing"

	"github.com/sentrywatch/threatwatch/internal/models"
)

func TestRegistryMergeConfigOverlaysOverride(t *testing.T) {
	r := NewRegistry()
	r.Register(models.CapabilityExposureDiscovery, CollectorFunc(
		func(ctx context.Context, job *models.Job, publish Publisher) ([]*models.Finding, error) {
			return nil, nil
		}), map[string]interface{}{"wordlist": "small", "depth": 2})

	merged := r.MergeConfig(models.CapabilityExposureDiscovery, map[string]interface{}{"depth": 5, "extra": true})
	if merged["wordlist"] != "small" {
		t.Errorf("merged config lost default wordlist: %v", merged)
	}
	if merged["depth"] != 5 {
		t.Errorf("merged config did not apply override depth: %v", merged)
	}
	if merged["extra"] != true {
		t.Errorf("merged config missing override-only key: %v", merged)
	}

	// DefaultConfig must be unaffected by a prior merge (no shared backing map).
	defaults := r.DefaultConfig(models.CapabilityExposureDiscovery)
	if defaults["depth"] != 2 {
		t.Errorf("DefaultConfig mutated by MergeConfig: %v", defaults)
	}
}

func TestRegistryLookupUnknownCapability(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Lookup(models.CapabilityDarkWebIntel); ok {
		t.Errorf("Lookup found a collector for an unregistered capability")
	}
}

func TestCollectorFuncAdaptsPlainFunction(t *testing.T) {
	var c Collector = CollectorFunc(func(ctx context.Context, job *models.Job, publish Publisher) ([]*models.Finding, error) {
		return []*models.Finding{models.NewFinding(models.CapabilityExposureDiscovery, models.SeverityLow, 10, "t", "d")}, nil
	})
	findings, err := c.Run(context.Background(), &models.Job{}, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(findings) != 1 {
		t.Errorf("expected 1 finding, got %d", len(findings))
	}
}
