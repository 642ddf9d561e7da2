// Copyright 2018 The gVisor Authors.
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

package sync

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

func newMutex(t testing.TB) *NativeMutex {
	var m NativeMutex
	if err := m.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return &m
}

func TestLifecycleErrors(t *testing.T) {
	var m NativeMutex

	for name, op := range map[string]func() error{
		"Lock":    m.Lock,
		"Unlock":  m.Unlock,
		"TryLock": m.TryLock,
		"Destroy": m.Destroy,
	} {
		if err := op(); err != unix.EINVAL {
			t.Errorf("%s on unconstructed mutex: got %v, want %v", name, err, unix.EINVAL)
		}
	}

	if err := m.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := m.Init(); err != unix.EBUSY {
		t.Errorf("second Init: got %v, want %v", err, unix.EBUSY)
	}
	if err := m.Unlock(); err != unix.EPERM {
		t.Errorf("Unlock of unlocked mutex: got %v, want %v", err, unix.EPERM)
	}

	if err := m.Lock(); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := m.Destroy(); err != unix.EBUSY {
		t.Errorf("Destroy of held mutex: got %v, want %v", err, unix.EBUSY)
	}
	if err := m.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
	if err := m.Destroy(); err != nil {
		t.Fatalf("Destroy failed: %v", err)
	}
	if err := m.Lock(); err != unix.EINVAL {
		t.Errorf("Lock of destroyed mutex: got %v, want %v", err, unix.EINVAL)
	}

	// A destroyed mutex can be constructed again.
	if err := m.Init(); err != nil {
		t.Fatalf("Init after Destroy failed: %v", err)
	}
	if err := m.TryLock(); err != nil {
		t.Fatalf("TryLock after re-Init failed: %v", err)
	}
}

func TestIsBusy(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want bool
	}{
		{nil, false},
		{unix.EBUSY, true},
		{unix.EINVAL, false},
		{unix.EPERM, false},
	} {
		if got := IsBusy(tc.err); got != tc.want {
			t.Errorf("IsBusy(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestBasicLock(t *testing.T) {
	m := newMutex(t)

	m.Lock()

	// Try blocking lock the mutex from a different goroutine. This must
	// not block because the mutex is held.
	ch := make(chan struct{}, 1)
	go func() {
		m.Lock()
		ch <- struct{}{}
		m.Unlock()
		ch <- struct{}{}
	}()

	select {
	case <-ch:
		t.Fatalf("Lock succeeded on locked mutex")
	case <-time.After(100 * time.Millisecond):
	}

	// Unlock the mutex and make sure that the goroutine waiting on Lock()
	// unblocks and succeeds.
	m.Unlock()

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("Lock failed to acquire unlocked mutex")
	}

	// Make sure we can lock and unlock again.
	<-ch
	if err := m.Lock(); err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if err := m.Unlock(); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}
}

func TestTryLock(t *testing.T) {
	m := newMutex(t)

	// Try to lock. It should succeed.
	if err := m.TryLock(); err != nil {
		t.Fatalf("TryLock failed on unlocked mutex: %v", err)
	}

	// Try to lock again, it should now fail.
	if err := m.TryLock(); !IsBusy(err) {
		t.Fatalf("TryLock on locked mutex: got %v, want %v", err, unix.EBUSY)
	}

	// Try blocking lock the mutex from a different goroutine. This must
	// not block because the mutex is held.
	ch := make(chan struct{}, 1)
	go func() {
		m.Lock()
		ch <- struct{}{}
		m.Unlock()
	}()

	select {
	case <-ch:
		t.Fatalf("Lock succeeded on locked mutex")
	case <-time.After(100 * time.Millisecond):
	}

	// Unlock the mutex and make sure that the goroutine waiting on Lock()
	// unblocks and succeeds.
	m.Unlock()

	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("Lock failed to acquire unlocked mutex")
	}
}

func TestMutualExclusion(t *testing.T) {
	m := newMutex(t)

	// Test mutual exclusion by running "gr" goroutines concurrently, and
	// have each one increment a counter "iters" times within the critical
	// section established by the mutex.
	//
	// If at the end the counter is not gr * iters, then we know that
	// goroutines ran concurrently within the critical section.
	//
	// If one of the goroutines doesn't complete, it's likely a bug that
	// causes to it to wait forever.
	const gr = 100
	const iters = 10000
	v := 0
	var wg sync.WaitGroup
	for i := 0; i < gr; i++ {
		wg.Add(1)
		go func() {
			for j := 0; j < iters; j++ {
				m.Lock()
				v++
				m.Unlock()
			}
			wg.Done()
		}()
	}

	wg.Wait()

	if v != gr*iters {
		t.Fatalf("Bad count: got %v, want %v", v, gr*iters)
	}
}

func TestMutualExclusionWithTryLock(t *testing.T) {
	m := newMutex(t)

	// Similar to the previous, with the addition of some goroutines that
	// only increment the count if TryLock succeeds.
	const gr = 100
	const iters = 10000
	total := int64(gr * iters)
	var tryTotal int64
	v := int64(0)
	var wg sync.WaitGroup
	for i := 0; i < gr; i++ {
		wg.Add(2)
		go func() {
			for j := 0; j < iters; j++ {
				m.Lock()
				v++
				m.Unlock()
			}
			wg.Done()
		}()
		go func() {
			local := int64(0)
			for j := 0; j < iters; j++ {
				if m.TryLock() == nil {
					v++
					m.Unlock()
					local++
				}
			}
			atomic.AddInt64(&tryTotal, local)
			wg.Done()
		}()
	}

	wg.Wait()

	t.Logf("tryTotal = %d", tryTotal)
	total += tryTotal

	if v != total {
		t.Fatalf("Bad count: got %v, want %v", v, total)
	}
}

// BenchmarkNativeMutex has a variable number of goroutines, with the maximum
// value depending on GOMAXPROCS, contend on a single mutex. Care is taken to
// ensure that all goroutines participating in the benchmark have been created
// before the benchmark begins.
func BenchmarkNativeMutex(b *testing.B) {
	for n, max := 1, 4*runtime.GOMAXPROCS(0); n > 0 && n <= max; n *= 2 {
		b.Run(fmt.Sprintf("%d", n), func(b *testing.B) {
			m := newMutex(b)

			var ready sync.WaitGroup
			begin := make(chan struct{})
			var end sync.WaitGroup
			for i := 0; i < n; i++ {
				ready.Add(1)
				end.Add(1)
				go func() {
					ready.Done()
					<-begin
					for j := 0; j < b.N; j++ {
						m.Lock()
						m.Unlock()
					}
					end.Done()
				}()
			}

			ready.Wait()
			b.ResetTimer()
			close(begin)
			end.Wait()
		})
	}
}

// BenchmarkSyncMutex is equivalent to BenchmarkNativeMutex, but uses
// sync.Mutex as a comparison point.
func BenchmarkSyncMutex(b *testing.B) {
	for n, max := 1, 4*runtime.GOMAXPROCS(0); n > 0 && n <= max; n *= 2 {
		b.Run(fmt.Sprintf("%d", n), func(b *testing.B) {
			var m sync.Mutex

			var ready sync.WaitGroup
			begin := make(chan struct{})
			var end sync.WaitGroup
			for i := 0; i < n; i++ {
				ready.Add(1)
				end.Add(1)
				go func() {
					ready.Done()
					<-begin
					for j := 0; j < b.N; j++ {
						m.Lock()
						m.Unlock()
					}
					end.Done()
				}()
			}

			ready.Wait()
			b.ResetTimer()
			close(begin)
			end.Wait()
		})
	}
}
