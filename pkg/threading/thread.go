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
	"golang.org/x/sys/unix"
)

// ThreadID identifies an OS thread.
//
// Goroutines migrate between threads. The identity of the thread running a
// goroutine is only stable while the goroutine is wired to it with
// runtime.LockOSThread.
type ThreadID int

// mainThread is the thread package initialization ran on. The Go runtime
// keeps the main goroutine on the main thread during initialization.
var mainThread ThreadID

// CurrentThread returns the thread running the caller.
func CurrentThread() ThreadID {
	return ThreadID(unix.Gettid())
}

// ThreadsSame reports whether a and b are the same thread.
func ThreadsSame(a, b ThreadID) bool {
	return a == b
}

// IsMainThread reports whether the caller is running on the main thread.
func IsMainThread() bool {
	return ThreadsSame(CurrentThread(), mainThread)
}
