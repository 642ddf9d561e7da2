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

// Once implements subcommands.Command for the "once" command.
type Once struct {
	goroutines int

	// out is where results are printed. Nil means stdout.
	out io.Writer
}

// Name implements subcommands.Command.Name.
func (*Once) Name() string {
	return "once"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Once) Synopsis() string {
	return "race goroutines through a run-once gate and report the winner"
}

// Usage implements subcommands.Command.Usage.
func (*Once) Usage() string {
	return `once [-goroutines=<n>] - race n goroutines through RunOnce on one tag and
check that exactly one of them ran the initializer, and that none returned
before it finished.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (o *Once) SetFlags(f *flag.FlagSet) {
	f.IntVar(&o.goroutines, "goroutines", 0, "number of goroutines to race. Zero uses the global --goroutines value.")
}

// Execute implements subcommands.Command.Execute.
func (o *Once) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	goroutines := conf.Goroutines
	if o.goroutines > 0 {
		goroutines = o.goroutines
	}

	ctx, cancel := context.WithTimeout(ctx, conf.Timeout)
	defer cancel()
	res, err := runOnceScenario(ctx, goroutines, conf.InitDelay)
	if err != nil {
		return Errorf("once: %v", err)
	}
	fmt.Fprintf(outputOrStdout(o.out), "winner: goroutine %d of %d, %d waited\n", res.Winner, goroutines, res.Waiters)
	return subcommands.ExitSuccess
}
