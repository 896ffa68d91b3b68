// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chatclient sends one user utterance to the platform's streaming
// chat endpoint and folds the line-framed reply into a transcript.
//
// # Outcomes
//
// Send distinguishes two classes of outcome:
//
//   - Refusals (empty input, a send already in flight) return an error and
//     leave the transcript untouched.
//   - Everything else appends one user message and one finalized assistant
//     message. Transport failures become a fixed notice with a
//     contact-support button rather than an error.
//
// # Usage
//
//	sess := session.Context{UserID: "u-42", AuthToken: token}
//	client := chatclient.New(sess, model.NewTranscript(), nil)
//	msg, err := client.Send(ctx, "What categories do you offer?")
//	if errors.Is(err, chatclient.ErrBusy) {
//	    // ignore, a reply is still streaming
//	}
package chatclient
