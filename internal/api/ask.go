// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

// AskRequest is the body of POST /ai/chat/ask.
type AskRequest struct {
	Question string `json:"question"`
	Stream   bool   `json:"stream"`
}

// newAskRequest builds the POST for question.
func (c *Client) newAskRequest(ctx context.Context, question string, stream bool) (*http.Request, error) {
	payload, err := json.Marshal(AskRequest{Question: question, Stream: stream})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}
	return c.newRequest(ctx, http.MethodPost, "/ai/chat/ask", bytes.NewReader(payload))
}

// Ask submits question and returns the whole answer.
// POST is never retried: the server may already have recorded the turn.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	req, err := c.newAskRequest(ctx, question, false)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.roundTrip(c.httpClient, req)
	if err != nil {
		return "", err
	}
	return ExtractAnswer(body)
}

// ExtractAnswer returns the "answer" field of a JSON object, falling back to
// "response". An object with neither, or a non-object body, yields
// ErrUnexpectedResponse.
func ExtractAnswer(body []byte) (string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return "", errors.Wrap(ErrUnexpectedResponse, "reply is not a JSON object")
	}

	found := false
	for _, key := range []string{"answer", "response"} {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			continue
		}
		if s != "" {
			return s, nil
		}
		found = true
	}
	if found {
		// Present but empty.
		return "", nil
	}
	return "", ErrUnexpectedResponse
}
