// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation data structures for qachat.
//
// The central type is ConversationStore, an ordered, bounded history of
// question/answer pairs. New pairs are appended at the end; when the bound
// is reached the oldest pairs are evicted first. Streamed answer text is
// appended to the most recent pair as it arrives.
//
// # Key Types
//
//   - ConversationStore: bounded FIFO history with streaming append
//   - QAPair: one question and its (possibly partial) answer
//   - QA: an id-less question/answer used for bulk loads
//   - PairID: store-scoped, monotonically increasing identifier
//
// # Usage
//
//	store := model.NewConversationStore(1000)
//	store.AppendQuestion("What is a goroutine?")
//	store.AppendToLastAnswer("A lightweight ")
//	store.AppendToLastAnswer("thread.")
//
//	last, _ := store.Last()
//	fmt.Println(last.Answer) // "A lightweight thread."
package model
