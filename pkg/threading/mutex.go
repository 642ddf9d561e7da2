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

package threading

import (
	"gvisor.dev/threading/pkg/sync"
)

// Mutex is a mutual exclusion lock that must be constructed with Init before
// use. Any failure of the underlying native mutex is fatal.
type Mutex struct {
	mu sync.NativeMutex
}

// Init constructs m.
func (m *Mutex) Init() {
	check("NativeMutex.Init", m.mu.Init())
}

// Destroy tears m down. m must not be held.
func (m *Mutex) Destroy() {
	check("NativeMutex.Destroy", m.mu.Destroy())
}

// Lock locks m.
func (m *Mutex) Lock() {
	check("NativeMutex.Lock", m.mu.Lock())
}

// Unlock unlocks m.
func (m *Mutex) Unlock() {
	check("NativeMutex.Unlock", m.mu.Unlock())
}

// TryLock tries to lock m without blocking and reports whether it did.
func (m *Mutex) TryLock() bool {
	return tryLock("NativeMutex.TryLock", &m.mu)
}

// UnsafeLock locks m, ignoring failures. It is meant for contexts such as
// crash reporting where terminating the process is worse than proceeding.
func (m *Mutex) UnsafeLock() {
	_ = m.mu.Lock()
}

// UnsafeUnlock unlocks m, ignoring failures.
func (m *Mutex) UnsafeUnlock() {
	_ = m.mu.Unlock()
}
