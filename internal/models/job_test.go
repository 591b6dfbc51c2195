package models

import (
	"testing"
	"time"
)

func TestJobStatusCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from JobStatus
		to   JobStatus
		want bool
	}{
		{"pending to queued", JobStatusPending, JobStatusQueued, true},
		{"pending to running skips queued", JobStatusPending, JobStatusRunning, false},
		{"queued to running", JobStatusQueued, JobStatusRunning, true},
		{"running to completed", JobStatusRunning, JobStatusCompleted, true},
		{"running to failed", JobStatusRunning, JobStatusFailed, true},
		{"completed is terminal", JobStatusCompleted, JobStatusRunning, false},
		{"cancelled is terminal", JobStatusCancelled, JobStatusQueued, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransition(tt.to); got != tt.want {
				t.Errorf("%s.CanTransition(%s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestJobValidate(t *testing.T) {
	base := func() *Job {
		return NewJob("job-abc123", CapabilityExposureDiscovery, "example.com", PriorityNormal, nil, nil)
	}

	tests := []struct {
		name    string
		mutate  func(*Job)
		wantErr bool
	}{
		{"valid pending job", func(j *Job) {}, false},
		{"missing id", func(j *Job) { j.ID = "" }, true},
		{"invalid capability", func(j *Job) { j.Capability = Capability("not_a_capability") }, true},
		{"missing target", func(j *Job) { j.Target = "" }, true},
		{"invalid priority", func(j *Job) { j.Priority = Priority(99) }, true},
		{"progress out of range", func(j *Job) { j.Progress = 150 }, true},
		{"progress 100 requires terminal status", func(j *Job) { j.Progress = 100 }, true},
		{"progress 100 with completed status is fine", func(j *Job) {
			j.Progress = 100
			j.Status = JobStatusCompleted
		}, false},
		{"started after completed", func(j *Job) {
			started := time.Now()
			completed := started.Add(-time.Minute)
			j.StartedAt = &started
			j.CompletedAt = &completed
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			j := base()
			tt.mutate(j)
			err := j.Validate()
			if tt.wantErr && err == nil {
				t.Errorf("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no validation error, got: %v", err)
			}
		})
	}
}

func TestJobConfigAccessorsToleratesJSONDecodedTypes(t *testing.T) {
	j := NewJob("job-1", CapabilityExposureDiscovery, "example.com", PriorityNormal, map[string]interface{}{
		"depth":    float64(3), // as if decoded from JSON
		"wordlist": "big",
		"enabled":  true,
		"domains":  []interface{}{"a.com", "b.com"},
	}, nil)

	if got := j.GetConfigInt("depth", 0); got != 3 {
		t.Errorf("GetConfigInt(depth) = %d, want 3", got)
	}
	if got, _ := j.GetConfigString("wordlist"); got != "big" {
		t.Errorf("GetConfigString(wordlist) = %q, want big", got)
	}
	if got := j.GetConfigBool("enabled", false); !got {
		t.Errorf("GetConfigBool(enabled) = false, want true")
	}
	if got := j.GetConfigStringSlice("domains"); len(got) != 2 || got[0] != "a.com" {
		t.Errorf("GetConfigStringSlice(domains) = %v, want [a.com b.com]", got)
	}
	if got := j.GetConfigInt("missing", 7); got != 7 {
		t.Errorf("GetConfigInt(missing) = %d, want fallback 7", got)
	}
}

func TestJobCloneDoesNotShareBackingArrays(t *testing.T) {
	j := NewJob("job-1", CapabilityExposureDiscovery, "example.com", PriorityNormal,
		map[string]interface{}{"k": "v"}, nil)
	j.AppendLog("info", "started", nil)

	clone := j.Clone()
	clone.Config["k"] = "changed"
	clone.AppendLog("info", "cloned log", nil)

	if j.Config["k"] != "v" {
		t.Errorf("original config mutated via clone: %v", j.Config["k"])
	}
	if len(j.ExecutionLog) != 1 {
		t.Errorf("original execution log mutated via clone: %d entries", len(j.ExecutionLog))
	}
}
