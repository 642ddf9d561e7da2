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
	"io"

	"github.com/google/subcommands"
	"gvisor.dev/threading/cmd/threadstress/config"
	"gvisor.dev/threading/pkg/metric"
	"gvisor.dev/threading/pkg/threading"
)

// Metrics implements subcommands.Command for the "metrics" command.
type Metrics struct {
	delta bool

	// out is where metrics are printed. Nil means stdout.
	out io.Writer
}

// Name implements subcommands.Command.Name.
func (*Metrics) Name() string {
	return "metrics"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Metrics) Synopsis() string {
	return "run every scenario and print threading metrics in Prometheus format"
}

// Usage implements subcommands.Command.Usage.
func (*Metrics) Usage() string {
	return `metrics [-delta] - run the once and lazymutex scenarios, then print the
threading counters in Prometheus text format.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (m *Metrics) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&m.delta, "delta", false, "only report what the scenarios added, instead of all registered metrics.")
}

// Execute implements subcommands.Command.Execute.
func (m *Metrics) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	ctx, cancel := context.WithTimeout(ctx, conf.Timeout)
	defer cancel()

	before := threading.Stats()
	if _, err := runOnceScenario(ctx, conf.Goroutines, conf.InitDelay); err != nil {
		return Errorf("metrics: once scenario: %v", err)
	}
	if _, err := runLazyMutexScenario(ctx, conf.Goroutines, conf.Iterations); err != nil {
		return Errorf("metrics: lazymutex scenario: %v", err)
	}

	out := outputOrStdout(m.out)
	var err error
	if m.delta {
		err = metric.WriteThreadingMetrics(out, threading.Stats().Sub(before))
	} else {
		err = metric.Write(out)
	}
	if err != nil {
		return Errorf("metrics: writing metrics: %v", err)
	}
	return subcommands.ExitSuccess
}
