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

import "errors"

// Domain validation errors
var (
	// ErrInvalidJob indicates a Job failed validation.
	ErrInvalidJob = errors.New("invalid job")

	// ErrInvalidVariant indicates a Variant failed validation.
	ErrInvalidVariant = errors.New("invalid variant")

	// ErrEmptyJobName indicates the job name is empty.
	ErrEmptyJobName = errors.New("job name cannot be empty")

	// ErrEmptyKernelName indicates the kernel name is empty.
	ErrEmptyKernelName = errors.New("kernel name cannot be empty")

	// ErrJobIDMismatch indicates a Job ID was not derived from its job and kernel.
	ErrJobIDMismatch = errors.New("job id does not match job and kernel")

	// ErrEmptyVariantID indicates the variant name is empty.
	ErrEmptyVariantID = errors.New("variant id cannot be empty")

	// ErrMissingJobReference indicates a Variant has no owning job id.
	ErrMissingJobReference = errors.New("variant job id cannot be empty")

	// ErrEmptyArtifactPath indicates an artifact role was recorded with no path.
	ErrEmptyArtifactPath = errors.New("artifact path cannot be empty")

	// ErrUnknownEventType indicates an event type outside the routable set.
	ErrUnknownEventType = errors.New("unknown event type")
)
