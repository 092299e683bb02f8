// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the conversation data structures for qachat.
package model

import (
	"strings"
	"sync"
)

// DefaultMaxLen is the number of pairs retained when no bound is configured.
const DefaultMaxLen = 1000

// =============================================================================
// PAIR TYPES
// =============================================================================

// PairID identifies a QAPair for the lifetime of its store.
// IDs are never reused, not even across Reset or ReplaceAll.
type PairID int64

// QAPair is one question and its (possibly partial) answer.
type QAPair struct {
	ID       PairID `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// QA is a question/answer pair without an identity, as returned by the
// history endpoint and accepted by ReplaceAll.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// entry is the stored form of a pair.
// PERFORMANCE: strings.Builder avoids quadratic allocations during streaming
type entry struct {
	id       PairID
	question string
	answer   strings.Builder
}

func (e *entry) snapshot() QAPair {
	return QAPair{ID: e.id, Question: e.question, Answer: e.answer.String()}
}

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore holds an ordered, bounded history of question/answer
// pairs, oldest first.
//
// At most MaxLen pairs are retained. Appending to a full store evicts the
// oldest pairs, never the incoming one. Answers only ever grow.
//
// The store is safe for concurrent use, but callers are expected to keep a
// single writer (the UI update loop) so that streamed fragments are applied
// in arrival order.
type ConversationStore struct {
	mu     sync.RWMutex
	pairs  []*entry
	maxLen int
	nextID PairID
}

// NewConversationStore creates an empty store bounded to maxLen pairs.
// A non-positive maxLen selects DefaultMaxLen.
func NewConversationStore(maxLen int) *ConversationStore {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	return &ConversationStore{
		pairs:  make([]*entry, 0, min(maxLen, 64)),
		maxLen: maxLen,
		nextID: 1,
	}
}

// AppendQuestion appends a new pair with an empty answer and returns its ID.
// The caller is responsible for rejecting blank questions.
func (s *ConversationStore) AppendQuestion(question string) PairID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(question, "")
}

// AppendToLastAnswer appends fragment to the answer of the most recent pair.
// On an empty history the fragment is dropped: a stream that outlives its
// pair must not write into an unrelated one.
func (s *ConversationStore) AppendToLastAnswer(fragment string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pairs) == 0 {
		return
	}
	s.pairs[len(s.pairs)-1].answer.WriteString(fragment)
}

// ReplaceAll discards the current history and rebuilds it from pairs.
// If more than MaxLen pairs are given only the last MaxLen survive.
func (s *ConversationStore) ReplaceAll(pairs []QA) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clearLocked()
	for _, qa := range pairs {
		s.appendLocked(qa.Question, qa.Answer)
	}
}

// Reset empties the history. IDs keep increasing afterwards.
func (s *ConversationStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

// appendLocked applies the eviction policy and appends a pair.
// Caller must hold the write lock.
func (s *ConversationStore) appendLocked(question, answer string) PairID {
	if len(s.pairs) >= s.maxLen {
		// Keep the newest maxLen-1 so exactly one slot opens up.
		drop := len(s.pairs) - (s.maxLen - 1)
		n := copy(s.pairs, s.pairs[drop:])
		for i := n; i < len(s.pairs); i++ {
			s.pairs[i] = nil
		}
		s.pairs = s.pairs[:n]
	}

	e := &entry{id: s.nextID, question: question}
	e.answer.WriteString(answer)
	s.nextID++
	s.pairs = append(s.pairs, e)
	return e.id
}

func (s *ConversationStore) clearLocked() {
	for i := range s.pairs {
		s.pairs[i] = nil
	}
	s.pairs = s.pairs[:0]
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Pairs returns a snapshot of the history, oldest first.
func (s *ConversationStore) Pairs() []QAPair {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]QAPair, len(s.pairs))
	for i, e := range s.pairs {
		out[i] = e.snapshot()
	}
	return out
}

// Last returns the most recent pair, or false if the history is empty.
func (s *ConversationStore) Last() (QAPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.pairs) == 0 {
		return QAPair{}, false
	}
	return s.pairs[len(s.pairs)-1].snapshot(), true
}

// Get returns the pair with the given ID if it is still retained.
func (s *ConversationStore) Get(id PairID) (QAPair, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// IDs increase with position; scan from the newest end.
	for i := len(s.pairs) - 1; i >= 0; i-- {
		if s.pairs[i].id == id {
			return s.pairs[i].snapshot(), true
		}
		if s.pairs[i].id < id {
			break
		}
	}
	return QAPair{}, false
}

// Len returns the number of retained pairs.
func (s *ConversationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pairs)
}

// MaxLen returns the retention bound.
func (s *ConversationStore) MaxLen() int {
	return s.maxLen
}

// IsEmpty returns true if there are no pairs.
func (s *ConversationStore) IsEmpty() bool {
	return s.Len() == 0
}
