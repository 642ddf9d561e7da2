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
	"gvisor.dev/threading/pkg/atomicbitops"
)

// Statistics counts slow-path events since process start. Fast-path calls
// are never counted.
type Statistics struct {
	// LazyMutexInits is the number of native mutexes constructed by
	// LazyMutex.
	LazyMutexInits uint64

	// LazyMutexSpinWaits is the number of LazyMutex calls that spun while
	// another goroutine constructed the mutex.
	LazyMutexSpinWaits uint64

	// OnceInits is the number of RunOnce initializers that ran.
	OnceInits uint64

	// OnceBlockedWaits is the number of RunOnce calls that lost the race
	// for a tag and went to the coordinator to wait for the winner.
	OnceBlockedWaits uint64

	// FatalErrors is the number of fatal native primitive failures. It is
	// only ever observed non-zero when the process exit is intercepted.
	FatalErrors uint64
}

var stats struct {
	lazyMutexInits     atomicbitops.Uint64
	lazyMutexSpinWaits atomicbitops.Uint64
	onceInits          atomicbitops.Uint64
	onceBlockedWaits   atomicbitops.Uint64
	fatalErrors        atomicbitops.Uint64
}

// Stats returns a snapshot of the counters.
func Stats() Statistics {
	return Statistics{
		LazyMutexInits:     stats.lazyMutexInits.Load(),
		LazyMutexSpinWaits: stats.lazyMutexSpinWaits.Load(),
		OnceInits:          stats.onceInits.Load(),
		OnceBlockedWaits:   stats.onceBlockedWaits.Load(),
		FatalErrors:        stats.fatalErrors.Load(),
	}
}

// Sub returns the counters accumulated between prev and s.
func (s Statistics) Sub(prev Statistics) Statistics {
	return Statistics{
		LazyMutexInits:     s.LazyMutexInits - prev.LazyMutexInits,
		LazyMutexSpinWaits: s.LazyMutexSpinWaits - prev.LazyMutexSpinWaits,
		OnceInits:          s.OnceInits - prev.OnceInits,
		OnceBlockedWaits:   s.OnceBlockedWaits - prev.OnceBlockedWaits,
		FatalErrors:        s.FatalErrors - prev.FatalErrors,
	}
}
