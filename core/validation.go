// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import (
	"fmt"
)

// ValidateJob validates a Job according to domain rules.
//
// Validation rules:
//   - Job and Kernel must not be empty
//   - ID must equal JobID(Job, Kernel)
//
// NOT validated:
//   - Created (zero is tolerated for documents built by hand in tests)
func ValidateJob(job *Job) error {
	if job == nil {
		return fmt.Errorf("%w: job is nil", ErrInvalidJob)
	}

	if job.Job == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyJobName)
	}

	if job.Kernel == "" {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrEmptyKernelName)
	}

	if job.ID != JobID(job.Job, job.Kernel) {
		return fmt.Errorf("%w: %w", ErrInvalidJob, ErrJobIDMismatch)
	}

	return nil
}

// ValidateVariant validates a Variant according to domain rules.
//
// Validation rules:
//   - ID and JobID must not be empty
//   - every recorded artifact has a non-empty path
func ValidateVariant(variant *Variant) error {
	if variant == nil {
		return fmt.Errorf("%w: variant is nil", ErrInvalidVariant)
	}

	if variant.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidVariant, ErrEmptyVariantID)
	}

	if variant.JobID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidVariant, ErrMissingJobReference)
	}

	for role, path := range variant.Artifacts {
		if path == "" {
			return fmt.Errorf("%w: %w: role %s", ErrInvalidVariant, ErrEmptyArtifactPath, role)
		}
	}

	return nil
}

// ValidateDocument dispatches to the validator for the document's kind.
func ValidateDocument(doc Document) error {
	switch d := doc.(type) {
	case *Job:
		return ValidateJob(d)
	case *Variant:
		return ValidateVariant(d)
	default:
		return fmt.Errorf("unsupported document type %T", doc)
	}
}
