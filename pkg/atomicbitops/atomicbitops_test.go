// Copyright 2026 The gVisor Authors.
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

package atomicbitops

import (
	"runtime"
	"sync"
	"testing"
)

func TestInt32Basic(t *testing.T) {
	var i Int32
	if got := i.LoadAcquire(); got != 0 {
		t.Fatalf("LoadAcquire() = %d, want 0", got)
	}
	i.StoreRelease(-1)
	if got := i.LoadAcquire(); got != -1 {
		t.Fatalf("LoadAcquire() = %d, want -1", got)
	}
	if i.CompareAndSwapRelaxed(0, 1) {
		t.Fatalf("CompareAndSwapRelaxed(0, 1) succeeded on -1")
	}
	if !i.CompareAndSwapRelaxed(-1, 7) {
		t.Fatalf("CompareAndSwapRelaxed(-1, 7) failed on -1")
	}
	if got := i.LoadAcquire(); got != 7 {
		t.Fatalf("LoadAcquire() = %d, want 7", got)
	}
}

func TestInt32SingleCASWinner(t *testing.T) {
	const goroutines = 64
	for iter := 0; iter < 100; iter++ {
		var (
			v       Int32
			winners Uint64
			wg      sync.WaitGroup
		)
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				runtime.Gosched()
				if v.CompareAndSwapRelaxed(0, 1) {
					winners.Add(1)
				}
			}()
		}
		wg.Wait()
		if got := winners.Load(); got != 1 {
			t.Fatalf("iteration %d: %d goroutines won the CAS, want 1", iter, got)
		}
	}
}

func TestUint64(t *testing.T) {
	var u Uint64
	if got := u.Add(1 << 40); got != 1<<40 {
		t.Fatalf("Add(1<<40) = %d, want %d", got, uint64(1<<40))
	}
	if got := u.Add(1); got != 1<<40+1 {
		t.Fatalf("Add(1) = %d, want %d", got, uint64(1<<40+1))
	}
	if got := u.Load(); got != 1<<40+1 {
		t.Fatalf("Load() = %d, want %d", got, uint64(1<<40+1))
	}
}
