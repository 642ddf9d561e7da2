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

// Package threading provides mutexes and run-once gates that are usable
// before, during and after process initialization.
//
// LazyMutex and OnceTag are both driven by a three-state tag:
//
//	uninitialized (0) --[CAS 0->1 wins]--> initializing (1) --[release store]--> initialized (-1)
//
// Exactly one goroutine wins the 0->1 transition and performs the protected
// action. Everybody else waits for -1: a LazyMutex spins, since constructing
// a mutex is short, while RunOnce blocks on a process-wide condition
// variable, since an initializer may take arbitrarily long. Once a tag reads
// -1 with an acquire load, every write made by the winner is visible, and all
// later calls return after that single load.
//
// Failures of the underlying native primitives are fatal: the process logs
// the failing operation and its errno and exits.
package threading

// Tag states. Transitions are strictly uninitialized -> initializing ->
// initialized; initialized is terminal.
const (
	tagUninitialized int32 = 0
	tagInitializing  int32 = 1
	tagInitialized   int32 = -1
)
