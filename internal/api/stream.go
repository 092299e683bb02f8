// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// streamBufferSize is the read size for chunked answers.
const streamBufferSize = 4 * 1024

// FragmentFunc receives decoded answer text in arrival order.
// Returning an error stops the stream.
type FragmentFunc func(fragment string) error

// AskStream submits question with streaming enabled and calls fn for each
// chunk of text as it arrives. The body is decoded as UTF-8 incrementally,
// so a rune split across network reads is delivered whole.
func (c *Client) AskStream(ctx context.Context, question string, fn FragmentFunc) error {
	req, err := c.newAskRequest(ctx, question, true)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.send(c.streamClient, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := readResponse(resp)
		return checkStatus(resp, body)
	}

	return processStream(ctx, resp.Body, fn)
}

// processStream decodes body and hands each non-empty read to fn.
func processStream(ctx context.Context, body io.Reader, fn FragmentFunc) error {
	reader := transform.NewReader(body, unicode.UTF8.NewDecoder())
	buf := make([]byte, streamBufferSize)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := reader.Read(buf)
		if n > 0 {
			if ferr := fn(string(buf[:n])); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "stream interrupted")
		}
	}
}
