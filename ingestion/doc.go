// Package ingestion imports CI build artifacts from a shared filesystem into
// the document store.
//
// Artifacts are laid out as <base>/<job>/<kernel>/<variant>/<file>. An import
// of one job/kernel pair runs three steps:
//   - Scanner lists the variant directories of the kernel and classifies the
//     files directly inside each one against the known-file registry
//   - BuildDocuments turns the scan into one Job plus one Variant per directory
//   - the Pipeline saves the documents and reports the outcome to an optional
//     completion callback
//
// A missing kernel directory is not an error: the Job is still saved, with no
// Variants. Storage failures are returned to the caller and never retried here.
//
// ImportAll runs the same import for every job/kernel pair under the base
// path on a worker pool and aggregates the failures.
package ingestion
