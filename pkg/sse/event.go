// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package sse

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// DataPrefix marks an SSE data line. Matching is exact, including the space.
const DataPrefix = "data: "

// ParseData extracts the JSON payload of a data line. The second return value
// is false when the line is not a data line or its payload is not valid JSON.
func ParseData(line string) (json.RawMessage, bool) {
	if !strings.HasPrefix(line, DataPrefix) {
		return nil, false
	}
	payload := line[len(DataPrefix):]
	if !gjson.Valid(payload) {
		return nil, false
	}
	return json.RawMessage(pretty.Ugly([]byte(payload))), true
}

// Collector retains the most recent payload parsed from a stream. Earlier
// payloads are discarded as soon as a newer one arrives.
type Collector struct {
	last     json.RawMessage
	set      bool
	lines    int
	frames   int
	rejected int
}

// Observe feeds one complete line and reports whether it replaced the
// retained payload.
func (c *Collector) Observe(line string) bool {
	c.lines++
	if !strings.HasPrefix(line, DataPrefix) {
		return false
	}
	c.frames++
	payload, ok := ParseData(line)
	if !ok {
		c.rejected++
		return false
	}
	c.last = payload
	c.set = true
	return true
}

// Last returns the retained payload, if any frame ever parsed.
func (c *Collector) Last() (json.RawMessage, bool) {
	return c.last, c.set
}

// Stats reports how many lines, data frames and rejected data frames were
// observed.
func (c *Collector) Stats() (lines, frames, rejected int) {
	return c.lines, c.frames, c.rejected
}
