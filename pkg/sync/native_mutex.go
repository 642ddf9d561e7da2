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
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Lifecycle states of a NativeMutex.
const (
	mutexUninitialized int32 = iota
	mutexLive
	mutexDestroyed
)

// NativeMutex is a mutual exclusion primitive with an explicit lifecycle:
// it must be constructed with Init before use and may be torn down with
// Destroy. Every operation reports failure with an errno value in the manner
// of the host's native mutex, and never panics.
//
// The zero value is an unconstructed mutex; locking it fails with EINVAL.
type NativeMutex struct {
	// life is one of mutexUninitialized, mutexLive or mutexDestroyed.
	life int32

	// v is 1 when the mutex is free, 0 when it is held, and negative when it
	// is held and at least one goroutine may be waiting for it.
	v  int32
	ch chan struct{}
}

// Init constructs the mutex. It returns EBUSY if the mutex is already
// constructed. A destroyed mutex may be constructed again.
func (m *NativeMutex) Init() error {
	if atomic.LoadInt32(&m.life) == mutexLive {
		return unix.EBUSY
	}
	m.ch = make(chan struct{}, 1)
	atomic.StoreInt32(&m.v, 1)
	atomic.StoreInt32(&m.life, mutexLive)
	return nil
}

// Destroy tears the mutex down. It returns EINVAL if the mutex is not
// constructed and EBUSY if it is currently held.
func (m *NativeMutex) Destroy() error {
	if atomic.LoadInt32(&m.life) != mutexLive {
		return unix.EINVAL
	}
	if atomic.LoadInt32(&m.v) != 1 {
		return unix.EBUSY
	}
	atomic.StoreInt32(&m.life, mutexDestroyed)
	return nil
}

// Lock acquires the mutex. If it is currently held by another goroutine, Lock
// will wait until it has a chance to acquire it.
func (m *NativeMutex) Lock() error {
	if atomic.LoadInt32(&m.life) != mutexLive {
		return unix.EINVAL
	}

	// Uncontended case.
	if atomic.AddInt32(&m.v, -1) == 0 {
		return nil
	}

	for {
		// Try to acquire the mutex again, at the same time making sure
		// that m.v is negative, which indicates to the owner of the
		// lock that it is contended, which will force it to try to wake
		// someone up when it releases the mutex.
		if v := atomic.LoadInt32(&m.v); v >= 0 && atomic.SwapInt32(&m.v, -1) == 1 {
			return nil
		}

		// Wait for the mutex to be released before trying again.
		<-m.ch
	}
}

// TryLock attempts to acquire the mutex without blocking. It returns nil on
// success and EBUSY if the mutex is currently held.
func (m *NativeMutex) TryLock() error {
	if atomic.LoadInt32(&m.life) != mutexLive {
		return unix.EINVAL
	}
	if v := atomic.LoadInt32(&m.v); v <= 0 {
		return unix.EBUSY
	}
	if !atomic.CompareAndSwapInt32(&m.v, 1, 0) {
		return unix.EBUSY
	}
	return nil
}

// Unlock releases the mutex. It returns EPERM if the mutex is not held.
func (m *NativeMutex) Unlock() error {
	if atomic.LoadInt32(&m.life) != mutexLive {
		return unix.EINVAL
	}

	switch atomic.SwapInt32(&m.v, 1) {
	case 1:
		return unix.EPERM
	case 0:
		// There were no pending waiters.
		return nil
	}

	// Wake some waiter up.
	select {
	case m.ch <- struct{}{}:
	default:
	}
	return nil
}

// IsBusy reports whether err is the "already held" outcome of TryLock, the
// only non-fatal failure of a NativeMutex operation.
func IsBusy(err error) bool {
	return err == unix.EBUSY
}
