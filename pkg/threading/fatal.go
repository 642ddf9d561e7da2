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
	"errors"
	"os"

	"golang.org/x/sys/unix"
	"gvisor.dev/threading/pkg/log"
	"gvisor.dev/threading/pkg/sync"
)

// FatalExitStatus is the process exit status after a fatal primitive failure.
const FatalExitStatus = 128

// exit terminates the process. It must not return.
var exit = os.Exit

// fatalf logs the message and a traceback of the calling goroutine, then
// terminates the process.
func fatalf(format string, v ...any) {
	stats.fatalErrors.Add(1)
	log.Traceback("threading: fatal error: "+format, v...)
	exit(FatalExitStatus)
}

// check terminates the process if err, returned by the native operation op,
// is not nil.
func check(op string, err error) {
	if err != nil {
		fatalf("%s failed with error %d (%v)", op, errnoOf(err), err)
	}
}

// tryLock runs TryLock on mu. An already held mutex is reported as false;
// any other failure is fatal.
func tryLock(op string, mu *sync.NativeMutex) bool {
	err := mu.TryLock()
	switch {
	case err == nil:
		return true
	case sync.IsBusy(err):
		return false
	default:
		fatalf("%s failed with error %d (%v)", op, errnoOf(err), err)
		return false
	}
}

func errnoOf(err error) unix.Errno {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno
	}
	return unix.EIO
}
