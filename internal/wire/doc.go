// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package wire implements the line-framed event stream spoken by the chat endpoint.
//
// Every line of a response body has the shape "<frameType>:<json>". Frame type
// "0" carries one event whose "type" field selects the kind:
//
//	0:{"type":"text-delta","textDelta":"Hel"}
//	0:{"type":"tool-call","toolCallId":"t1","toolName":"searchResources","args":{"q":"lawyer"}}
//	0:{"type":"tool-result","toolCallId":"t1","result":{"resources":[...]}}
//
// # Key Types
//
//   - Event: sealed interface implemented by TextDelta, ToolCall and ToolResult
//   - Decoder: incremental reader that buffers partial lines across reads
//   - Stats: counters collected while decoding
//
// # Usage
//
//	dec := wire.NewDecoder(resp.Body)
//	err := dec.Process(ctx, func(ev wire.Event) {
//	    switch e := ev.(type) {
//	    case wire.TextDelta:
//	        fmt.Print(e.Text)
//	    }
//	})
//
// Lines that do not match the framing are skipped. A malformed line never
// aborts the remainder of the stream.
package wire
