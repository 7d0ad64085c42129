package ingestion

import (
	"maps"
	"time"

	"github.com/poiesic/kernelci/core"
)

// BuildDocuments converts scan results into one Job and one Variant per result.
// It performs no I/O; created stamps the Job.
func BuildDocuments(job, kernel string, scans []ScanResult, created time.Time) (*core.Job, []*core.Variant) {
	doc := core.NewJob(job, kernel, created)

	variants := make([]*core.Variant, 0, len(scans))
	for _, scan := range scans {
		variant := &core.Variant{
			ID:    scan.Variant,
			JobID: doc.ID,
		}
		if len(scan.Artifacts) > 0 {
			variant.Artifacts = maps.Clone(scan.Artifacts)
		}
		variants = append(variants, variant)
	}
	return doc, variants
}

// documents flattens a job and its variants into the slice handed to storage.
func documents(job *core.Job, variants []*core.Variant) []core.Document {
	docs := make([]core.Document, 0, len(variants)+1)
	docs = append(docs, job)
	for _, v := range variants {
		docs = append(docs, v)
	}
	return docs
}
