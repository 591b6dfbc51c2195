package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowRespectsBurstPerDomain(t *testing.T) {
	l := New(time.Hour, 2)
	assert.True(t, l.Allow("https://a.example/1"))
	assert.True(t, l.Allow("https://a.example/2"))
	assert.False(t, l.Allow("https://a.example/3"))

	// A different domain has its own independent bucket.
	assert.True(t, l.Allow("https://b.example/1"))
}

func TestAllowMalformedURLIsUnthrottled(t *testing.T) {
	l := New(time.Hour, 1)
	assert.True(t, l.Allow("://not-a-url"))
	assert.True(t, l.Allow("://not-a-url"))
}

func TestSetDomainRateOverridesDefault(t *testing.T) {
	l := New(time.Hour, 1)
	l.SetDomainRate("c.example", time.Millisecond, 1)

	assert.True(t, l.Allow("https://c.example/1"))
	assert.False(t, l.Allow("https://c.example/2"))
	time.Sleep(5 * time.Millisecond)
	assert.True(t, l.Allow("https://c.example/3"))
}

func TestWaitUnblocksOnContextCancel(t *testing.T) {
	l := New(time.Hour, 1)
	assert.True(t, l.Allow("https://d.example/1")) // consume the only token

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := l.Wait(ctx, "https://d.example/2")
	assert.Error(t, err)
}
