/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func TestClearAndStats(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024, MaxPerKey: 10})
	m.Push(Snapshot{Key: "v7", Blob: []byte("abcdef"), TS: time.Now()})
	m.Undo("v7", []byte("ghi"))
	m.Redo("v7", []byte("abcdef"))
	tb, keys, total := m.Stats()
	if tb == 0 || keys != 1 || total != 1 {
		t.Fatalf("unexpected stats before clear: tb=%d keys=%d total=%d", tb, keys, total)
	}
	m.Clear("v7")
	tb2, keys2, total2 := m.Stats()
	if tb2 != 0 || keys2 != 0 || total2 != 0 {
		t.Fatalf("expected cleared stats to be zero, got tb=%d keys=%d total=%d", tb2, keys2, total2)
	}
	if m.CanUndo("v7") || m.CanRedo("v7") {
		t.Fatalf("expected no history after clear")
	}
}

func TestGlobalPruneAcrossKeys(t *testing.T) {
	// Very small MaxBytes so pruning triggers across keys
	m := NewManager(Config{MaxBytes: 8})
	t0 := time.Now()
	m.Push(Snapshot{Key: "a", Blob: []byte("xxxx"), TS: t0})
	m.Push(Snapshot{Key: "b", Blob: []byte("yyyy"), TS: t0.Add(time.Second)})

	// Exceed the cap and force the oldest entry out.
	m.Push(Snapshot{Key: "b", Blob: []byte("zzzz"), TS: t0.Add(2 * time.Second)})

	_, keys, total := m.Stats()
	if keys == 0 || total == 0 {
		t.Fatalf("expected some snapshots to remain")
	}
	if m.CanUndo("a") {
		t.Fatalf("expected key a to have been pruned")
	}
	if !m.CanUndo("b") {
		t.Fatalf("expected key b to have snapshots")
	}
}
