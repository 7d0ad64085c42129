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
	"context"
	"log/slog"
	"time"
)

// maxRetryDelay caps the backoff between attempts.
const maxRetryDelay = 5 * time.Second

// retryWithBackoff calls operation until it succeeds, fails with an error
// retryable rejects, or maxAttempts is reached.
// baseDelay doubles after each failed attempt; zero retries immediately.
// Returns the error from the last attempt if all attempts fail.
func retryWithBackoff(ctx context.Context, logger *slog.Logger, operation func(attempt int) error, retryable func(error) bool, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		// Check context before attempting
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation(attempt)
		if lastErr == nil {
			if attempt > 1 {
				logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}

		if !retryable(lastErr) {
			return lastErr
		}

		logger.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", lastErr)

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		delay := backoff(baseDelay, attempt)
		if delay <= 0 {
			continue
		}

		// Sleep with context awareness
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// backoff returns baseDelay * 2^(attempt-1), capped at maxRetryDelay.
func backoff(baseDelay time.Duration, attempt int) time.Duration {
	delay := baseDelay
	for i := 1; i < attempt && delay < maxRetryDelay; i++ {
		delay *= 2
	}
	return min(delay, maxRetryDelay)
}
