// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/go-core-stack/mcp-sse-translator/pkg/sse"
)

const noEventMessage = "No valid response received from MCP server"

// noEventResult is the body answered when the upstream stream carried no
// parseable data frame. Callers get a copy.
const noEventResult = `{"error":"` + noEventMessage + `"}`

// Translate posts body to the upstream as an event-stream request, reads the
// stream to completion and returns the last JSON payload it carried. Earlier
// payloads and malformed data lines are dropped.
func (p *Proxy) Translate(ctx context.Context, body []byte) (json.RawMessage, error) {
	event := p.contextLogger(ctx)

	upstreamReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.upstream.String(), bytes.NewReader(body))
	if err != nil {
		return nil, &TranslationError{Op: "build upstream request", Err: err}
	}
	upstreamReq.Header.Set("Accept", "text/event-stream")
	upstreamReq.Header.Set("Content-Type", "application/json")
	upstreamReq.Header.Set("Cache-Control", "no-cache")

	resp, err := p.client.Do(upstreamReq)
	if err != nil {
		return nil, &TranslationError{Op: "perform upstream request", Err: err}
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			event.Error().
				Err(closeErr).
				Msg("close upstream response body failed")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		const maxLogBody = 64 * 1024 // limit to a manageable payload for logs.
		payload, readErr := io.ReadAll(io.LimitReader(resp.Body, maxLogBody))
		if readErr != nil {
			event.Error().
				Err(readErr).
				Int("status", resp.StatusCode).
				Msg("failed to read upstream error body")
		} else {
			event.Warn().
				Int("status", resp.StatusCode).
				Bytes("upstream_body", payload).
				Msg("upstream returned error")
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Status: statusText(resp)}
	}

	dec := sse.NewDecoder(resp.Body)
	var collector sse.Collector
	for {
		line, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &TranslationError{Op: "read upstream stream", Err: err}
		}

		if collector.Observe(line) {
			if event.Debug().Enabled() {
				last, _ := collector.Last()
				event.Debug().RawJSON("data", last).Msg("received SSE data")
			}
			continue
		}
		if strings.HasPrefix(line, sse.DataPrefix) {
			event.Debug().Str("line", line).Msg("non-JSON SSE line")
		}
	}

	lines, frames, rejected := collector.Stats()
	event.Debug().
		Int("lines", lines).
		Int("data_frames", frames).
		Int("rejected_frames", rejected).
		Int64("bytes", dec.BytesRead()).
		Int("unterminated_bytes", len(dec.Remainder())).
		Msg("upstream stream finished")

	if result, ok := collector.Last(); ok {
		return result, nil
	}
	event.Warn().Msg(noEventMessage)
	return json.RawMessage(noEventResult), nil
}

// contextLogger prefers the request scoped logger and falls back to the
// component logger for direct callers.
func (p *Proxy) contextLogger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &p.logger
}

// statusText extracts the reason phrase sent by the upstream, falling back to
// the canonical text for the status code.
func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
