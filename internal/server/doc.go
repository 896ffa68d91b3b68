// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server provides a local stand-in for the platform's chat endpoint.
//
// It answers POST /api/chat with scripted replies in the same line-framed
// stream format the platform uses, so the client and TUI can be developed
// and tested without the real backend.
//
// # Endpoints
//
//   - POST /api/chat - Streamed scripted reply
//   - GET  /healthz  - Health check and request counters
//
// # Middleware
//
//   - Panic recovery with stack trace logging
//   - Request logging
//   - CORS headers for browser clients
//   - Per-IP rate limiting (token bucket)
//
// # Usage
//
//	srv := server.New(server.Options{Addr: "127.0.0.1:3000"}, nil)
//	if err := srv.Run(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
