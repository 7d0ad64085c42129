package core

import (
	"fmt"
	"time"
)

// JobIDFormat is the layout of a Job identifier: "<job>-<kernel>".
const JobIDFormat = "%s-%s"

// JobID derives the deterministic Job identifier for a job/kernel pair.
// The same pair always yields the same ID, which makes it usable as an upsert key.
func JobID(job, kernel string) string {
	return fmt.Sprintf(JobIDFormat, job, kernel)
}

// DocumentKind identifies the collection a document belongs to.
type DocumentKind string

const (
	// KindJob is the collection of Job documents.
	KindJob DocumentKind = "job"
	// KindVariant is the collection of Variant documents.
	KindVariant DocumentKind = "variant"
)

// Document is anything the persistence layer knows how to upsert.
type Document interface {
	// Kind returns the collection the document is stored in.
	Kind() DocumentKind
	// DocumentKey returns the identifier the document is upserted under.
	// It is unique within the document's kind.
	DocumentKey() string
}

// Job represents one tracked (job-name, kernel-name) build unit.
// Variants reference their Job through Variant.JobID; the Job never holds them.
type Job struct {
	ID      string    `json:"_id"`
	Job     string    `json:"job"`
	Kernel  string    `json:"kernel"`
	Created time.Time `json:"created"` // UTC, serialized as RFC 3339
}

var _ Document = (*Job)(nil)

// NewJob creates a Job for the given pair, stamped with created converted to UTC.
func NewJob(job, kernel string, created time.Time) *Job {
	return &Job{
		ID:      JobID(job, kernel),
		Job:     job,
		Kernel:  kernel,
		Created: created.UTC(),
	}
}

func (j *Job) Kind() DocumentKind { return KindJob }

func (j *Job) DocumentKey() string { return j.ID }

// Variant is one build configuration's artifact set, discovered as a leaf
// directory under a kernel directory.
type Variant struct {
	ID    string `json:"_id"`
	JobID string `json:"job_id"`

	// Artifacts maps each recognized role to the absolute path of the file
	// fulfilling it. Roles without a matching file are absent.
	Artifacts map[ArtifactRole]string `json:"artifacts,omitempty"`
}

var _ Document = (*Variant)(nil)

func (v *Variant) Kind() DocumentKind { return KindVariant }

// DocumentKey scopes the variant name by its job, since the same variant
// name appears under many kernels.
func (v *Variant) DocumentKey() string { return v.JobID + "/" + v.ID }

// Artifact returns the path recorded for role and whether it is present.
func (v *Variant) Artifact(role ArtifactRole) (string, bool) {
	path, ok := v.Artifacts[role]
	return path, ok
}

// ImportEvent is the payload sent to subscribers once a job has been imported.
type ImportEvent struct {
	JobID    string    `json:"job_id"`
	Job      string    `json:"job"`
	Kernel   string    `json:"kernel"`
	Variants []string  `json:"variants"`
	Created  time.Time `json:"created"`
}

// NewImportEvent summarizes an imported job and its variants.
func NewImportEvent(job *Job, variants []*Variant) *ImportEvent {
	names := make([]string, 0, len(variants))
	for _, v := range variants {
		names = append(names, v.ID)
	}
	return &ImportEvent{
		JobID:    job.ID,
		Job:      job.Job,
		Kernel:   job.Kernel,
		Variants: names,
		Created:  job.Created,
	}
}
