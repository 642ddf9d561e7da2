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

// Package atomicbitops provides typed atomic integers whose operations are
// named after the memory ordering their callers depend on.
//
// Go's sync/atomic operations are all sequentially consistent, so every
// method here is at least as strong as its name. The names still matter: they
// record which accesses publish data (release), which consume it (acquire),
// and which only take part in a race for ownership (relaxed). Changing one of
// them is a change to the synchronization protocol of the caller.
package atomicbitops

import (
	"sync/atomic"

	"gvisor.dev/threading/pkg/sync"
)

// Int32 is an atomic int32.
//
// The default value is zero.
//
// Don't add fields to this struct. It is important that it remain the same
// size as its builtin analogue.
type Int32 struct {
	_     sync.NoCopy
	value int32
}

// LoadAcquire loads the value. Writes made before a StoreRelease of the
// observed value happen before the return of this call.
//
//go:nosplit
func (i *Int32) LoadAcquire() int32 {
	return atomic.LoadInt32(&i.value)
}

// StoreRelease stores v, publishing every write made before it to any
// goroutine that later observes v with LoadAcquire.
//
//go:nosplit
func (i *Int32) StoreRelease(v int32) {
	atomic.StoreInt32(&i.value, v)
}

// CompareAndSwapRelaxed swaps oldVal for newVal if the current value is
// oldVal, and reports whether it did. Neither outcome orders other memory
// accesses.
//
//go:nosplit
func (i *Int32) CompareAndSwapRelaxed(oldVal, newVal int32) bool {
	return atomic.CompareAndSwapInt32(&i.value, oldVal, newVal)
}
