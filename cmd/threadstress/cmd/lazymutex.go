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
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"
	"gvisor.dev/threading/cmd/threadstress/config"
)

// LazyMutex implements subcommands.Command for the "lazymutex" command.
type LazyMutex struct {
	goroutines int
	iterations int

	// out is where results are printed. Nil means stdout.
	out io.Writer
}

// Name implements subcommands.Command.Name.
func (*LazyMutex) Name() string {
	return "lazymutex"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*LazyMutex) Synopsis() string {
	return "race goroutines to first use of a lazy mutex and count under it"
}

// Usage implements subcommands.Command.Usage.
func (*LazyMutex) Usage() string {
	return `lazymutex [-goroutines=<n>] [-iterations=<m>] - have n goroutines race to
first lock a zero-value LazyMutex, then each increment a shared counter m times
under it. Checks the final count and that the mutex was constructed once.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (l *LazyMutex) SetFlags(f *flag.FlagSet) {
	f.IntVar(&l.goroutines, "goroutines", 0, "number of goroutines to race. Zero uses the global --goroutines value.")
	f.IntVar(&l.iterations, "iterations", 0, "increments per goroutine. Zero uses the global --iterations value.")
}

// Execute implements subcommands.Command.Execute.
func (l *LazyMutex) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	goroutines := conf.Goroutines
	if l.goroutines > 0 {
		goroutines = l.goroutines
	}
	iterations := conf.Iterations
	if l.iterations > 0 {
		iterations = l.iterations
	}

	ctx, cancel := context.WithTimeout(ctx, conf.Timeout)
	defer cancel()
	count, err := runLazyMutexScenario(ctx, goroutines, iterations)
	if err != nil {
		return Errorf("lazymutex: %v", err)
	}
	fmt.Fprintf(outputOrStdout(l.out), "count: %d (%d goroutines x %d iterations)\n", count, goroutines, iterations)
	return subcommands.ExitSuccess
}
