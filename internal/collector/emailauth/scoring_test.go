package emailauth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySPFMissing(t *testing.T) {
	r := classifySPF("", 0)
	assert.False(t, r.Exists)
	require.Len(t, r.Issues, 1)
	assert.Contains(t, r.Issues[0], "no SPF record")
}

func TestClassifySPFPermissiveAll(t *testing.T) {
	r := classifySPF("v=spf1 include:_spf.example.com +all", 1)
	assert.Equal(t, "pass", r.Policy)
	assert.Contains(t, r.Issues[0], "+all")
}

func TestClassifySPFHardFailClean(t *testing.T) {
	r := classifySPF("v=spf1 include:_spf.example.com -all", 1)
	assert.Equal(t, "fail", r.Policy)
	assert.Empty(t, r.Issues)
}

func TestClassifySPFMultipleRecords(t *testing.T) {
	r := classifySPF("v=spf1 -all", 2)
	assert.Contains(t, r.Issues, "multiple SPF records published (RFC 7208 permits only one)")
}

func TestClassifyDMARCMonitorOnly(t *testing.T) {
	r := classifyDMARC("v=DMARC1; p=none; rua=mailto:agg@example.com")
	assert.Equal(t, "none", r.Policy)
	assert.Contains(t, r.Issues, "DMARC policy is monitor-only (p=none)")
}

func TestClassifyDMARCRejectNoRua(t *testing.T) {
	r := classifyDMARC("v=DMARC1; p=reject")
	assert.Equal(t, "reject", r.Policy)
	assert.Contains(t, r.Issues, "DMARC record has no aggregate-report address (rua)")
}

func TestClassifyDKIM(t *testing.T) {
	assert.False(t, classifyDKIM(nil).Exists)
	assert.True(t, classifyDKIM(map[string]string{"default": "v=DKIM1; k=rsa; p=..."}).Exists)
}

func TestClassifyMX(t *testing.T) {
	assert.False(t, classifyMX(0).Exists)
	assert.True(t, classifyMX(2).Exists)
}

func TestComputeComplianceScoresWeighting(t *testing.T) {
	spf := classifySPF("v=spf1 -all", 1)
	dmarc := classifyDMARC("v=DMARC1; p=reject; rua=mailto:a@example.com")
	dkim := classifyDKIM(map[string]string{"default": "v=DKIM1"})

	scores := computeComplianceScores(spf, dkim, dmarc)
	assert.Equal(t, 100.0, scores.SPF)
	assert.Equal(t, 100.0, scores.DKIM)
	assert.Equal(t, 100.0, scores.DMARC)
	assert.Equal(t, 100.0, scores.M3AAWG)
}

func TestRiskLevelThresholds(t *testing.T) {
	assert.Equal(t, "low", riskLevel(0))
	assert.Equal(t, "medium", riskLevel(1))
	assert.Equal(t, "high", riskLevel(3))
	assert.Equal(t, "critical", riskLevel(5))
}
