package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/kernelci/core"
)

// Delivery defaults.
const (
	DefaultMaxAttempts = 3
	DefaultTimeout     = 10 * time.Second

	// DeliveryHeader carries the identifier shared by every request of one dispatch.
	DeliveryHeader = "X-Kernelci-Delivery"

	maxRejectedBody = 512
)

// Outcome is the delivery result for one subscriber.
type Outcome struct {
	Subscriber string
	URL        string
	Method     string
	DeliveryID string
	Attempts   int
	StatusCode int // last HTTP status received, 0 if none
	Delivered  bool
	Err        error
}

// MarshalJSON renders Err as its message.
func (o Outcome) MarshalJSON() ([]byte, error) {
	var msg string
	if o.Err != nil {
		msg = o.Err.Error()
	}
	return json.Marshal(struct {
		Subscriber string `json:"subscriber"`
		URL        string `json:"url"`
		Method     string `json:"method"`
		DeliveryID string `json:"delivery_id"`
		Attempts   int    `json:"attempts"`
		StatusCode int    `json:"status_code,omitempty"`
		Delivered  bool   `json:"delivered"`
		Error      string `json:"error,omitempty"`
	}{o.Subscriber, o.URL, o.Method, o.DeliveryID, o.Attempts, o.StatusCode, o.Delivered, msg})
}

// Dispatcher delivers event payloads to the subscribers a Registry resolves.
type Dispatcher struct {
	registry          *Registry
	client            *http.Client
	timeout           time.Duration
	maxAttempts       int
	retryDelay        time.Duration
	retryServerErrors bool
	pool              *ants.Pool
	logger            *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher) error

// WithHTTPClient sets the client used for delivery. Its own timeout applies.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Dispatcher) error {
		d.client = client
		return nil
	}
}

// WithTimeout sets the per-request timeout of the default client.
// Default is DefaultTimeout.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) error {
		if timeout > 0 {
			d.timeout = timeout
		}
		return nil
	}
}

// WithMaxAttempts sets how many requests a subscriber may receive per dispatch.
// Default is DefaultMaxAttempts.
func WithMaxAttempts(attempts int) Option {
	return func(d *Dispatcher) error {
		if attempts < 1 {
			return ErrInvalidMaxAttempts
		}
		d.maxAttempts = attempts
		return nil
	}
}

// WithRetryDelay sets the delay before the first retry; it doubles per retry.
// Default is 0, retrying immediately.
func WithRetryDelay(delay time.Duration) Option {
	return func(d *Dispatcher) error {
		d.retryDelay = max(delay, 0)
		return nil
	}
}

// WithRetryServerErrors makes 5xx responses retryable.
// Default is false: every non-2xx response ends delivery.
func WithRetryServerErrors(retry bool) Option {
	return func(d *Dispatcher) error {
		d.retryServerErrors = retry
		return nil
	}
}

// WithConcurrency sets how many subscribers are delivered to at once.
// Default is 1, delivering in registry order.
func WithConcurrency(size int) Option {
	return func(d *Dispatcher) error {
		if d.pool != nil {
			d.pool.Release()
			d.pool = nil
		}
		if size <= 1 {
			return nil
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		d.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		d.logger = logger
		return nil
	}
}

// NewDispatcher creates a Dispatcher routing through registry.
func NewDispatcher(registry *Registry, opts ...Option) (*Dispatcher, error) {
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	d := &Dispatcher{
		registry:    registry,
		timeout:     DefaultTimeout,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(d); err != nil {
			d.Close()
			return nil, err
		}
	}
	if d.client == nil {
		d.client = &http.Client{Timeout: d.timeout}
	}
	return d, nil
}

// Dispatch sends payload to every subscriber of eventType and returns one
// Outcome per subscriber in registry order. Failures are reported in the
// outcomes, never returned.
//
// payload is serialized as JSON; []byte and json.RawMessage are sent as is.
func (d *Dispatcher) Dispatch(ctx context.Context, eventType core.EventType, payload any) []Outcome {
	subscribers := d.registry.Resolve(eventType)
	if len(subscribers) == 0 {
		d.logger.Debug("no subscribers for event", "event", eventType)
		return []Outcome{}
	}

	deliveryID := uuid.NewString()
	outcomes := make([]Outcome, len(subscribers))
	for i, sub := range subscribers {
		outcomes[i] = Outcome{
			Subscriber: sub.Name,
			URL:        sub.URLFor(eventType),
			Method:     sub.DeliveryMethod(),
			DeliveryID: deliveryID,
		}
	}

	body, err := encodePayload(payload)
	if err != nil {
		d.logger.Error("cannot encode hook payload", "event", eventType, "err", err)
		for i := range outcomes {
			outcomes[i].Err = err
			deliveriesCounter.WithLabelValues(string(eventType), outcomeFailed).Inc()
		}
		return outcomes
	}

	d.logger.Info("running hooks", "event", eventType, "subscribers", len(subscribers), "delivery_id", deliveryID)

	if d.pool == nil || len(subscribers) == 1 {
		for i := range outcomes {
			d.deliver(ctx, eventType, subscribers[i].Token, body, &outcomes[i])
		}
		return outcomes
	}

	var wg sync.WaitGroup
	for i := range outcomes {
		wg.Add(1)
		submitErr := d.pool.Submit(func() {
			defer wg.Done()
			d.deliver(ctx, eventType, subscribers[i].Token, body, &outcomes[i])
		})
		if submitErr != nil {
			wg.Done()
			d.deliver(ctx, eventType, subscribers[i].Token, body, &outcomes[i])
		}
	}
	wg.Wait()
	return outcomes
}

// Close releases the delivery pool.
func (d *Dispatcher) Close() {
	if d.pool != nil {
		d.pool.Release()
	}
}

// deliver runs the attempt loop for one subscriber, filling in out.
func (d *Dispatcher) deliver(ctx context.Context, eventType core.EventType, token string, body []byte, out *Outcome) {
	event := string(eventType)
	err := retryWithBackoff(ctx, d.logger, func(attempt int) error {
		out.Attempts = attempt
		attemptsCounter.WithLabelValues(event).Inc()

		status, err := d.send(ctx, out, token, body)
		out.StatusCode = status
		if err != nil {
			d.logger.Warn("hook delivery failed",
				"subscriber", out.Subscriber, "url", out.URL, "attempt", attempt, "err", err)
		}
		return err
	}, d.retryable, d.maxAttempts, d.retryDelay)

	out.Err = err
	out.Delivered = err == nil

	var rejected *RejectedError
	switch {
	case err == nil:
		deliveriesCounter.WithLabelValues(event, outcomeDelivered).Inc()
		d.logger.Debug("hook delivered", "subscriber", out.Subscriber, "url", out.URL, "attempts", out.Attempts)
	case errors.As(err, &rejected):
		deliveriesCounter.WithLabelValues(event, outcomeRejected).Inc()
	default:
		deliveriesCounter.WithLabelValues(event, outcomeFailed).Inc()
	}
}

// send makes one request. A failure to reach the endpoint is a
// *TransportError; a non-2xx answer is a *RejectedError.
func (d *Dispatcher) send(ctx context.Context, out *Outcome, token string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(out.Method), out.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(DeliveryHeader, out.DeliveryID)
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, &TransportError{URL: out.URL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxRejectedBody))
	return resp.StatusCode, &RejectedError{
		URL:        out.URL,
		StatusCode: resp.StatusCode,
		Body:       string(snippet),
	}
}

func (d *Dispatcher) retryable(err error) bool {
	var transport *TransportError
	if errors.As(err, &transport) {
		return true
	}
	var rejected *RejectedError
	if d.retryServerErrors && errors.As(err, &rejected) {
		return rejected.ServerError()
	}
	return false
}

func encodePayload(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayloadEncoding, err)
	}
	return body, nil
}
