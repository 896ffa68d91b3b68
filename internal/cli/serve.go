// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeranaias/souq-assist/internal/logger"
	"github.com/jeranaias/souq-assist/internal/server"
)

func (a *app) serveCommand() *cobra.Command {
	var (
		addr       string
		rate       float64
		burst      int
		chunkDelay time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local chat endpoint with scripted replies",
		Long: `Run a local chat endpoint that streams scripted replies.

It speaks the same line protocol as the platform, so the chat, ask and repl
commands can be tried without network access. Messages containing
"#fail", "#empty" or "#garbled" exercise the error paths.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := server.Options{
				Addr:           a.cfg.Server.Addr,
				RatePerSecond:  a.cfg.Server.RatePerSecond,
				Burst:          a.cfg.Server.Burst,
				AllowedOrigins: a.cfg.Server.AllowedOrigins,
				ChunkDelay:     a.cfg.Server.ChunkDelay(),
				Logger:         logger.WithComponent("server"),
			}
			flags := cmd.Flags()
			if flags.Changed("addr") {
				opts.Addr = addr
			}
			if flags.Changed("rate") {
				opts.RatePerSecond = rate
			}
			if flags.Changed("burst") {
				opts.Burst = burst
			}
			if flags.Changed("chunk-delay") {
				opts.ChunkDelay = chunkDelay
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(opts, nil)
			fmt.Fprintf(cmd.ErrOrStderr(), "Chat endpoint on http://%s/api/chat (Ctrl+C to stop)\n", srv.Addr())
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	cmd.Flags().Float64Var(&rate, "rate", 0, "requests per second per IP, 0 for unlimited")
	cmd.Flags().IntVar(&burst, "burst", 0, "burst size per IP")
	cmd.Flags().DurationVar(&chunkDelay, "chunk-delay", 0, "pause between streamed lines")
	return cmd
}
