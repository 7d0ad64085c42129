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


package storage

import (
	"encoding/json"
	"fmt"

	"github.com/poiesic/kernelci/core"
)

// MarshalDocument serializes a document to bytes.
func MarshalDocument(doc core.Document) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrSerializationFailed, doc.Kind(), doc.DocumentKey(), err)
	}
	return data, nil
}

// UnmarshalJob deserializes a Job from bytes.
func UnmarshalJob(data []byte) (*core.Job, error) {
	var job core.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("%w: job: %w", ErrSerializationFailed, err)
	}
	return &job, nil
}

// UnmarshalVariant deserializes a Variant from bytes.
func UnmarshalVariant(data []byte) (*core.Variant, error) {
	var variant core.Variant
	if err := json.Unmarshal(data, &variant); err != nil {
		return nil, fmt.Errorf("%w: variant: %w", ErrSerializationFailed, err)
	}
	return &variant, nil
}
