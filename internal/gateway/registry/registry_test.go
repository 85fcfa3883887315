// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package registry

import (
	"sync"
	"testing"
)

func TestRegistry_RegisterThenUnregisterLeavesUnchanged(t *testing.T) {
	r := New()
	before := r.List()
	if ok := r.Register("0xAAA0000000000000000000000000000000000A"); !ok {
		t.Fatalf("expected new insertion to report true")
	}
	if ok := r.Unregister("0xaaa0000000000000000000000000000000000a"); !ok {
		t.Fatalf("expected unregister to report true for a present member")
	}
	after := r.List()
	if len(before) != len(after) {
		t.Fatalf("expected registry unchanged after register-then-unregister, before=%v after=%v", before, after)
	}
}

func TestRegistry_RegisterIsIdempotentAndCaseInsensitive(t *testing.T) {
	r := New()
	if !r.Register("0xaaa0000000000000000000000000000000000a") {
		t.Fatalf("expected first registration to be new")
	}
	if r.Register("0xAAA0000000000000000000000000000000000A") {
		t.Fatalf("expected re-registration under different case to report false")
	}
	if len(r.List()) != 1 {
		t.Fatalf("expected exactly one member, got %v", r.List())
	}
}

func TestRegistry_ListPreservesInsertionOrder(t *testing.T) {
	r := New()
	addrs := []string{
		"0x1110000000000000000000000000000000000a",
		"0x2220000000000000000000000000000000000b",
		"0x3330000000000000000000000000000000000c",
	}
	for _, a := range addrs {
		r.Register(a)
	}
	list := r.List()
	for i, a := range addrs {
		if list[i] != a {
			t.Fatalf("expected insertion order preserved, got %v", list)
		}
	}
}

func TestRegistry_ConcurrentRegisterIsSafe(t *testing.T) {
	r := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Register("0xaaa0000000000000000000000000000000000a")
		}(i)
	}
	wg.Wait()
	if len(r.List()) != 1 {
		t.Fatalf("expected a single member after concurrent duplicate registers, got %v", r.List())
	}
}

func TestRegistry_ContainsAndUnregisterUnknown(t *testing.T) {
	r := New()
	if r.Contains("0xaaa0000000000000000000000000000000000a") {
		t.Fatalf("expected empty registry to not contain anything")
	}
	if r.Unregister("0xaaa0000000000000000000000000000000000a") {
		t.Fatalf("expected unregister of an unknown address to report false")
	}
}
