// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package wire

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrUnknownEvent is returned when encoding a nil or foreign Event.
var ErrUnknownEvent = errors.New("wire: unknown event")

// Encode returns the framed line for ev, including the trailing newline.
func Encode(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, ErrUnknownEvent
	}
	p := fromEvent(ev)
	if p.Type == "" {
		return nil, ErrUnknownEvent
	}

	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("wire: encode %s: %w", p.Type, err)
	}

	line := make([]byte, 0, len(FrameData)+len(body)+2)
	line = append(line, FrameData...)
	line = append(line, ':')
	line = append(line, body...)
	line = append(line, '\n')
	return line, nil
}

// WriteEvent encodes ev and writes it to w as one line.
func WriteEvent(w io.Writer, ev Event) error {
	line, err := Encode(ev)
	if err != nil {
		return err
	}
	_, err = w.Write(line)
	return err
}
