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

package hooks

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrMissingName is returned when a subscriber has no name.
	ErrMissingName = errors.New("subscriber name required")

	// ErrMissingURL is returned when an event a subscriber declares has no URL.
	ErrMissingURL = errors.New("subscriber url required")

	// ErrInvalidURL is returned when a subscriber URL is not an absolute http(s) URL.
	ErrInvalidURL = errors.New("invalid subscriber url")

	// ErrUnsupportedMethod is returned when a subscriber method is not post or put.
	ErrUnsupportedMethod = errors.New("unsupported delivery method")

	// ErrNoEvents is returned when a subscriber declares no event types.
	ErrNoEvents = errors.New("subscriber declares no events")

	// ErrInvalidConfig is returned when the subscriber file cannot be parsed.
	ErrInvalidConfig = errors.New("invalid hooks configuration")

	// ErrRegistryRequired is returned when a dispatcher is created without a registry.
	ErrRegistryRequired = errors.New("hook registry required")

	// ErrInvalidMaxAttempts is returned when max attempts is not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")

	// ErrPayloadEncoding is returned when an event payload cannot be serialized.
	ErrPayloadEncoding = errors.New("encoding hook payload")
)

// TransportError is a connectivity-level delivery failure. It is retried.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("delivering to %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RejectedError is a delivery the endpoint answered with a non-2xx status.
type RejectedError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s rejected delivery: %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// ServerError reports whether the endpoint failed with a 5xx status.
func (e *RejectedError) ServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode <= 599
}
