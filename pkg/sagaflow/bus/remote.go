package bus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/randalmurphal/sagaflow/pkg/sagaflow/envelope"
	sferrors "github.com/randalmurphal/sagaflow/pkg/sagaflow/errors"
)

// RemoteBus is a Bus client for an HTTP message-queue broker: push is
// POST /queues/{name}/messages, pop is POST /queues/{name}:pop. Queue
// names are percent-encoded into the path.
type RemoteBus struct {
	baseURL string
	client  *http.Client
}

// NewRemoteBus returns a RemoteBus targeting baseURL (no trailing
// slash required). A nil client defaults to http.Client with a 10s
// timeout.
func NewRemoteBus(baseURL string, client *http.Client) *RemoteBus {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteBus{baseURL: baseURL, client: client}
}

type pushResponse struct {
	Status string   `json:"status"`
	Error  string   `json:"error"`
	Issues []string `json:"issues"`
}

type popResponse struct {
	Status  string                  `json:"status"`
	Message *envelope.EventEnvelope `json:"message"`
}

// Push validates env locally, then POSTs it to /queues/{name}/messages.
// A 202 response is success; any other status (including a 4xx with a
// validation payload) surfaces as an error.
func (b *RemoteBus) Push(ctx context.Context, queue string, env *envelope.EventEnvelope) error {
	if err := env.Validate(); err != nil {
		return err
	}

	body, err := env.MarshalForWire()
	if err != nil {
		return &sferrors.TransportError{Op: "push", Queue: queue, Err: err}
	}

	target := fmt.Sprintf("%s/queues/%s/messages", b.baseURL, url.PathEscape(queue))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return &sferrors.TransportError{Op: "push", Queue: queue, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return &sferrors.TransportError{Op: "push", Queue: queue, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode == http.StatusBadRequest {
		var parsed pushResponse
		_ = json.Unmarshal(raw, &parsed)
		msg := parsed.Error
		if msg == "" {
			msg = "invalid envelope"
		}
		return &sferrors.InvalidEnvelopeError{EventID: env.EventID, Message: msg}
	}

	if resp.StatusCode != http.StatusAccepted {
		return &sferrors.TransportError{
			Op:    "push",
			Queue: queue,
			Err:   fmt.Errorf("unexpected status %d pushing to queue %q: %s", resp.StatusCode, queue, string(raw)),
		}
	}

	return nil
}

// Pop POSTs to /queues/{name}:pop and returns the decoded message, or
// ok=false when the broker reports the queue empty. Any non-2xx status
// is a transport error.
func (b *RemoteBus) Pop(ctx context.Context, queue string) (*envelope.EventEnvelope, bool, error) {
	target := fmt.Sprintf("%s/queues/%s:pop", b.baseURL, url.PathEscape(queue))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, nil)
	if err != nil {
		return nil, false, &sferrors.TransportError{Op: "pop", Queue: queue, Err: err}
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, false, &sferrors.TransportError{Op: "pop", Queue: queue, Err: err}
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, &sferrors.TransportError{
			Op:    "pop",
			Queue: queue,
			Err:   fmt.Errorf("unexpected status %d popping queue %q: %s", resp.StatusCode, queue, string(raw)),
		}
	}

	var parsed popResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, false, &sferrors.TransportError{Op: "pop", Queue: queue, Err: err}
	}

	if parsed.Message == nil {
		return nil, false, nil
	}

	if err := parsed.Message.Validate(); err != nil {
		return nil, false, err
	}

	return parsed.Message, true, nil
}
