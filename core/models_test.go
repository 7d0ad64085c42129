package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestJobID(t *testing.T) {
	tests := []struct {
		name   string
		job    string
		kernel string
		want   string
	}{
		{name: "simple pair", job: "mainline", kernel: "v6.1", want: "mainline-v6.1"},
		{name: "hyphenated names", job: "next", kernel: "next-20240101", want: "next-next-20240101"},
		{name: "stable across calls", job: "stable", kernel: "v5.15.3", want: "stable-v5.15.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := JobID(tt.job, tt.kernel)
			second := JobID(tt.job, tt.kernel)
			if first != tt.want {
				t.Errorf("JobID() = %q, want %q", first, tt.want)
			}
			if first != second {
				t.Errorf("JobID() not deterministic: %q vs %q", first, second)
			}
		})
	}
}

func TestNewJob(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	created := time.Date(2024, 3, 1, 10, 0, 0, 0, loc)

	job := NewJob("mainline", "v6.1", created)

	if job.ID != "mainline-v6.1" {
		t.Errorf("unexpected id %q", job.ID)
	}
	if job.Created.Location() != time.UTC {
		t.Errorf("created not in UTC: %v", job.Created.Location())
	}
	if !job.Created.Equal(created) {
		t.Errorf("created instant changed: %v vs %v", job.Created, created)
	}
	if job.Kind() != KindJob || job.DocumentKey() != job.ID {
		t.Errorf("unexpected document identity %s/%s", job.Kind(), job.DocumentKey())
	}
}

func TestVariantDocumentKey(t *testing.T) {
	a := &Variant{ID: "x86_64_defconfig", JobID: "mainline-v6.1"}
	b := &Variant{ID: "x86_64_defconfig", JobID: "next-v6.2"}

	if a.DocumentKey() == b.DocumentKey() {
		t.Errorf("variants of different jobs share key %q", a.DocumentKey())
	}
	if a.Kind() != KindVariant {
		t.Errorf("unexpected kind %s", a.Kind())
	}
}

func TestVariantArtifactsOmittedWhenEmpty(t *testing.T) {
	data, err := json.Marshal(&Variant{ID: "tinyconfig", JobID: "j-k"})
	if err != nil {
		t.Fatal(err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["artifacts"]; ok {
		t.Errorf("expected no artifacts key, got %s", data)
	}
}

func TestRoleForFile(t *testing.T) {
	if role, ok := RoleForFile("build.log"); !ok || role != RoleBuildLog {
		t.Errorf("build.log resolved to %q, %v", role, ok)
	}
	if _, ok := RoleForFile("BUILD.LOG"); ok {
		t.Error("filename matching must be case-sensitive")
	}
	if _, ok := RoleForFile("README"); ok {
		t.Error("unknown file resolved to a role")
	}

	files := KnownFiles()
	files["README"] = RoleBuildLog
	if _, ok := RoleForFile("README"); ok {
		t.Error("KnownFiles must return a copy")
	}
}

func TestParseEventType(t *testing.T) {
	for _, name := range []string{"lava", "boot", "build", " BUILD "} {
		if _, err := ParseEventType(name); err != nil {
			t.Errorf("ParseEventType(%q) failed: %v", name, err)
		}
	}
	if _, err := ParseEventType("deploy"); err == nil {
		t.Error("expected error for unknown event type")
	}
}

func TestNewImportEvent(t *testing.T) {
	job := NewJob("mainline", "v6.1", time.Now())
	variants := []*Variant{
		{ID: "a", JobID: job.ID},
		{ID: "b", JobID: job.ID},
	}

	event := NewImportEvent(job, variants)
	if event.JobID != job.ID || len(event.Variants) != 2 {
		t.Errorf("unexpected event %+v", event)
	}

	empty := NewImportEvent(job, nil)
	if empty.Variants == nil {
		t.Error("variants should serialize as an empty list, not null")
	}
}
