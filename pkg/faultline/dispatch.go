// dispatch.go serializes finished events and delivers them to remote
// endpoints or the local store.

package faultline

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// maxResponseBody bounds how much of a failure response is kept for the
// delivery-failure log.
const maxResponseBody = 4096

// dispatch delivers the event. With remote endpoints configured it POSTs
// the encoded payload to each endpoint in turn; a delivery failure is
// logged with the endpoint identified and the event is re-emitted through
// the local logging path so it is not silently lost, then the next
// endpoint is tried. Failures never propagate to the caller. Without
// endpoints the event goes straight to the store and its handle is
// returned.
func (c *Client) dispatch(ctx context.Context, ev *Event) *StoredEvent {
	if len(c.endpoints) == 0 {
		handle, err := c.store.Save(ctx, ev)
		if err != nil {
			deliveryFailures.WithLabelValues("store").Inc()
			c.logger.Error("unable to save event to local store",
				zap.String("checksum", ev.Checksum),
				zap.Error(err))
			c.logLocally(ev)
			return nil
		}
		deliveries.WithLabelValues("store").Inc()
		return handle
	}

	payload, err := encodeEventPayload(ev)
	if err != nil {
		c.logger.Error("unable to encode event payload",
			zap.String("checksum", ev.Checksum),
			zap.Error(err))
		return nil
	}

	for _, endpoint := range c.endpoints {
		if err := c.post(ctx, endpoint, payload); err != nil {
			deliveryFailures.WithLabelValues(endpoint).Inc()
			c.logger.Error("unable to reach event collector",
				zap.String("endpoint", endpoint),
				zap.String("checksum", ev.Checksum),
				zap.Error(err))
			c.logLocally(ev)
			continue
		}
		deliveries.WithLabelValues(endpoint).Inc()
	}
	return nil
}

// encodeEventPayload serializes the event for transport: JSON, then
// zlib-compressed, then base64-encoded.
func encodeEventPayload(ev *Event) (string, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return "", fmt.Errorf("compress event: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("compress event: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// post delivers one encoded payload to one endpoint with a bounded timeout.
// Non-2xx responses are failures and carry the response body for the log.
func (c *Client) post(ctx context.Context, endpoint, payload string) error {
	form := url.Values{}
	form.Set("data", payload)
	form.Set("key", c.key)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// logLocally re-emits the event's level and message through the logging
// path, the fallback when delivery fails.
func (c *Client) logLocally(ev *Event) {
	fields := []zap.Field{
		zap.String("checksum", ev.Checksum),
	}
	if ev.Logger != "" {
		fields = append(fields, zap.String("logger", ev.Logger))
	}

	switch {
	case ev.Level >= LevelError:
		c.logger.Error(ev.Message, fields...)
	case ev.Level >= LevelWarning:
		c.logger.Warn(ev.Message, fields...)
	case ev.Level >= LevelInfo:
		c.logger.Info(ev.Message, fields...)
	default:
		c.logger.Debug(ev.Message, fields...)
	}
}
