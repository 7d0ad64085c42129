package badger

import (
	"github.com/poiesic/kernelci/core"
)

// Key prefixes for the document collections
const (
	jobPrefix     = "job:"
	variantPrefix = "variant:"
)

// makeDocumentKey generates the storage key for any supported document.
func makeDocumentKey(doc core.Document) ([]byte, bool) {
	switch doc.Kind() {
	case core.KindJob:
		return makeJobKey(doc.DocumentKey()), true
	case core.KindVariant:
		return []byte(variantPrefix + doc.DocumentKey()), true
	default:
		return nil, false
	}
}

// makeJobKey generates a key for a job by ID.
func makeJobKey(id string) []byte {
	return []byte(jobPrefix + id)
}

// makeVariantKey generates a composite key for a variant.
// Format: prefix:jobID/variantID
func makeVariantKey(jobID, id string) []byte {
	return []byte(variantPrefix + (&core.Variant{ID: id, JobID: jobID}).DocumentKey())
}

// makeVariantJobPrefix generates the partial key covering all variants of a job.
// Format: prefix:jobID/
func makeVariantJobPrefix(jobID string) []byte {
	return []byte(variantPrefix + jobID + "/")
}
