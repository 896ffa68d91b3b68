// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package wire

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
)

// =============================================================================
// LINE PARSING
// =============================================================================

// ParseLine decodes a single framed line. It reports false for blank lines,
// lines without a frame separator, frame types other than FrameData, invalid
// JSON and unknown event kinds.
func ParseLine(line []byte) (Event, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, false
	}

	sep := bytes.IndexByte(line, ':')
	if sep <= 0 {
		return nil, false
	}
	if string(line[:sep]) != FrameData {
		return nil, false
	}

	var p payload
	if err := json.Unmarshal(line[sep+1:], &p); err != nil {
		return nil, false
	}
	return p.toEvent()
}

// =============================================================================
// DECODER
// =============================================================================

// Stats holds counters collected while decoding a stream.
type Stats struct {
	Lines   int // Non-empty lines read
	Events  int // Lines that produced an event
	Skipped int // Non-empty lines that were dropped
	Bytes   int64
}

// Decoder reads events from a line-framed stream.
//
// Reads go through a bufio.Reader, so a line split across any number of
// network reads (including inside a multi-byte UTF-8 sequence) is only parsed
// once its terminating newline arrives.
type Decoder struct {
	reader *bufio.Reader
	stats  Stats
	done   bool
}

// NewDecoder creates a Decoder over r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: bufio.NewReader(r)}
}

// Next returns the next well-formed event. Malformed lines are skipped.
// It returns io.EOF once the stream is exhausted; a final line without a
// trailing newline is still decoded.
func (d *Decoder) Next() (Event, error) {
	for {
		if d.done {
			return nil, io.EOF
		}

		line, err := d.reader.ReadBytes('\n')
		d.stats.Bytes += int64(len(line))
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return nil, err
			}
			d.done = true
		}

		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		d.stats.Lines++

		ev, ok := ParseLine(line)
		if !ok {
			d.stats.Skipped++
			continue
		}
		d.stats.Events++
		return ev, nil
	}
}

// Process reads the stream and calls cb for each event in arrival order.
// Blocks until the stream ends, a read fails, or ctx is cancelled.
func (d *Decoder) Process(ctx context.Context, cb func(Event)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		ev, err := d.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return err
		}
		cb(ev)
	}
}

// Stats returns the counters collected so far.
func (d *Decoder) Stats() Stats {
	return d.stats
}
