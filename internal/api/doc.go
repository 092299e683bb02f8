// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP client for the qachat server.
//
// # Endpoints
//
//   - GET  /users/me          current user, 401 when not logged in
//   - GET  /ai/chat/history   prior question/answer pairs
//   - POST /ai/chat/ask       {"question", "stream"}; JSON or chunked text
//   - GET  /logout            ends the session
//   - /login?url=<return>     browser login page (URL only)
//
// The session travels as a cookie. Every request carries an X-Request-ID
// header so server logs can be matched with ours.
//
// # Usage
//
//	client, err := api.NewClientFromConfig(cfg)
//	if err != nil {
//	    return err
//	}
//	err = client.AskStream(ctx, "hello?", func(fragment string) error {
//	    fmt.Print(fragment)
//	    return nil
//	})
package api
