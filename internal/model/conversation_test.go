// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

// questions returns the question text of each pair, oldest first.
func questions(pairs []QAPair) []string {
	out := make([]string, len(pairs))
	for i, p := range pairs {
		out[i] = p.Question
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// =============================================================================
// CONSTRUCTION
// =============================================================================

func TestNewConversationStore(t *testing.T) {
	tests := []struct {
		name   string
		maxLen int
		want   int
	}{
		{"explicit bound", 3, 3},
		{"zero uses default", 0, DefaultMaxLen},
		{"negative uses default", -5, DefaultMaxLen},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewConversationStore(tc.maxLen)
			if got := s.MaxLen(); got != tc.want {
				t.Errorf("MaxLen() = %d, want %d", got, tc.want)
			}
			if !s.IsEmpty() {
				t.Error("new store should be empty")
			}
		})
	}
}

// =============================================================================
// APPEND + EVICTION
// =============================================================================

func TestAppendQuestion_EvictsOldestFirst(t *testing.T) {
	s := NewConversationStore(3)
	for _, q := range []string{"Q1", "Q2", "Q3", "Q4"} {
		s.AppendQuestion(q)
	}

	got := questions(s.Pairs())
	want := []string{"Q2", "Q3", "Q4"}
	if !equalStrings(got, want) {
		t.Errorf("history = %v, want %v", got, want)
	}
}

func TestAppendQuestion_BoundHoldsForAnySequence(t *testing.T) {
	for _, maxLen := range []int{1, 2, 5, 17} {
		t.Run(fmt.Sprintf("max=%d", maxLen), func(t *testing.T) {
			s := NewConversationStore(maxLen)
			var appended []string
			for i := 0; i < 3*maxLen+2; i++ {
				q := fmt.Sprintf("q%d", i)
				s.AppendQuestion(q)
				appended = append(appended, q)

				if s.Len() > maxLen {
					t.Fatalf("Len() = %d exceeds bound %d", s.Len(), maxLen)
				}

				start := len(appended) - maxLen
				if start < 0 {
					start = 0
				}
				if got := questions(s.Pairs()); !equalStrings(got, appended[start:]) {
					t.Fatalf("after %d appends history = %v, want %v", i+1, got, appended[start:])
				}
			}
		})
	}
}

func TestAppendQuestion_UniqueIncreasingIDs(t *testing.T) {
	s := NewConversationStore(2)
	seen := make(map[PairID]bool)
	var prev PairID
	for i := 0; i < 10; i++ {
		id := s.AppendQuestion("q")
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		seen[id] = true
		prev = id
	}

	s.Reset()
	if id := s.AppendQuestion("after reset"); seen[id] {
		t.Errorf("id %d reused after Reset", id)
	}
}

func TestAppendQuestion_NewPairHasEmptyAnswer(t *testing.T) {
	s := NewConversationStore(10)
	id := s.AppendQuestion("hello?")

	p, ok := s.Get(id)
	if !ok {
		t.Fatal("Get() did not find the new pair")
	}
	if p.Question != "hello?" || p.Answer != "" {
		t.Errorf("pair = %+v, want question %q and empty answer", p, "hello?")
	}
}

// =============================================================================
// STREAMING APPEND
// =============================================================================

func TestAppendToLastAnswer_Concatenates(t *testing.T) {
	s := NewConversationStore(10)
	s.AppendQuestion("Q1")
	s.AppendToLastAnswer("Hel")
	s.AppendToLastAnswer("lo")

	last, ok := s.Last()
	if !ok {
		t.Fatal("Last() returned false")
	}
	if last.Answer != "Hello" {
		t.Errorf("answer = %q, want %q", last.Answer, "Hello")
	}
}

func TestAppendToLastAnswer_CallOrder(t *testing.T) {
	s := NewConversationStore(10)
	s.AppendQuestion("first")
	s.AppendToLastAnswer("untouched")
	s.AppendQuestion("second")

	fragments := []string{"a", "β", "", "c d", "界"}
	for _, f := range fragments {
		s.AppendToLastAnswer(f)
	}

	pairs := s.Pairs()
	if pairs[0].Answer != "untouched" {
		t.Errorf("older pair answer = %q, want %q", pairs[0].Answer, "untouched")
	}
	if want := strings.Join(fragments, ""); pairs[1].Answer != want {
		t.Errorf("last answer = %q, want %q", pairs[1].Answer, want)
	}
}

func TestAppendToLastAnswer_EmptyHistoryIsNoop(t *testing.T) {
	s := NewConversationStore(3)
	s.AppendToLastAnswer("x")

	if !s.IsEmpty() {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if _, ok := s.Last(); ok {
		t.Error("Last() should report an empty history")
	}
}

func TestAppendToLastAnswer_AfterReset(t *testing.T) {
	s := NewConversationStore(3)
	s.AppendQuestion("gone")
	s.Reset()
	s.AppendToLastAnswer("late fragment")

	if !s.IsEmpty() {
		t.Error("late fragment must not create or revive a pair")
	}
}

// =============================================================================
// BULK LOAD
// =============================================================================

func TestReplaceAll(t *testing.T) {
	mk := func(n int) []QA {
		out := make([]QA, n)
		for i := range out {
			out[i] = QA{Question: fmt.Sprintf("q%d", i), Answer: fmt.Sprintf("a%d", i)}
		}
		return out
	}

	tests := []struct {
		name     string
		maxLen   int
		incoming []QA
		wantQs   []string
	}{
		{"empty input", 3, nil, []string{}},
		{"fewer than bound", 3, mk(2), []string{"q0", "q1"}},
		{"exactly bound", 3, mk(3), []string{"q0", "q1", "q2"}},
		{"more than bound keeps last", 3, mk(5), []string{"q2", "q3", "q4"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewConversationStore(tc.maxLen)
			s.AppendQuestion("stale")
			s.AppendToLastAnswer("stale answer")

			s.ReplaceAll(tc.incoming)

			pairs := s.Pairs()
			if got := questions(pairs); !equalStrings(got, tc.wantQs) {
				t.Fatalf("history = %v, want %v", got, tc.wantQs)
			}
			for _, p := range pairs {
				want := "a" + strings.TrimPrefix(p.Question, "q")
				if p.Answer != want {
					t.Errorf("pair %q answer = %q, want %q", p.Question, p.Answer, want)
				}
			}
		})
	}
}

func TestReplaceAll_ThenStream(t *testing.T) {
	s := NewConversationStore(5)
	s.ReplaceAll([]QA{{Question: "old", Answer: "done"}})
	s.AppendQuestion("new")
	s.AppendToLastAnswer("streamed")

	pairs := s.Pairs()
	if len(pairs) != 2 {
		t.Fatalf("Len() = %d, want 2", len(pairs))
	}
	if pairs[0].Answer != "done" || pairs[1].Answer != "streamed" {
		t.Errorf("answers = [%q %q], want [done streamed]", pairs[0].Answer, pairs[1].Answer)
	}
}

// =============================================================================
// READ ACCESS
// =============================================================================

func TestGet_EvictedPair(t *testing.T) {
	s := NewConversationStore(1)
	first := s.AppendQuestion("first")
	second := s.AppendQuestion("second")

	if _, ok := s.Get(first); ok {
		t.Error("evicted pair should not be found")
	}
	if p, ok := s.Get(second); !ok || p.Question != "second" {
		t.Errorf("Get(second) = %+v, %v", p, ok)
	}
}

func TestPairs_ReturnsSnapshot(t *testing.T) {
	s := NewConversationStore(3)
	s.AppendQuestion("q")
	snap := s.Pairs()
	s.AppendToLastAnswer("more")

	if snap[0].Answer != "" {
		t.Errorf("snapshot changed after append: %q", snap[0].Answer)
	}
}

// TestConversationStore_ConcurrentReaders exercises readers racing the writer.
// Run with: go test -race ./internal/model/
func TestConversationStore_ConcurrentReaders(t *testing.T) {
	s := NewConversationStore(50)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.AppendQuestion("q")
			s.AppendToLastAnswer("x")
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if n := len(s.Pairs()); n > 50 {
					t.Errorf("snapshot length %d exceeds bound", n)
					return
				}
				s.Last()
			}
		}()
	}

	wg.Wait()
	if s.Len() != 50 {
		t.Errorf("Len() = %d, want 50", s.Len())
	}
}
