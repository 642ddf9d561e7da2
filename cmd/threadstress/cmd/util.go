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

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"
	"gvisor.dev/threading/pkg/log"
)

// ErrorLogger is where error messages should be written to. These messages are
// consumed by the caller, and should not include debug information.
var ErrorLogger io.Writer = os.Stderr

// Errorf logs error to the log and to ErrorLogger, and returns
// subcommands.ExitFailure.
func Errorf(format string, args ...any) subcommands.ExitStatus {
	log.WarningfAtDepth(1, format, args...)
	fmt.Fprintf(ErrorLogger, format+"\n", args...)
	return subcommands.ExitFailure
}

// Fatalf logs the same message as Errorf and exits with status 128.
func Fatalf(format string, args ...any) {
	log.WarningfAtDepth(1, "FATAL ERROR: "+format, args...)
	fmt.Fprintf(ErrorLogger, format+"\n", args...)
	os.Exit(128)
}

// outputOrStdout returns w, or os.Stdout if w is nil.
func outputOrStdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
