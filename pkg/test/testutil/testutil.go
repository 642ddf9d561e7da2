// Copyright 2018 The gVisor Authors.
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

// Package testutil contains utility functions for threading tests.
package testutil

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"
)

// Poll is a shorthand function to poll for something with given timeout.
// It returns the last error returned by cb if the timeout expires first.
func Poll(cb func() error, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return PollContext(ctx, cb)
}

// PollContext is like Poll, but takes a context instead of a timeout. The
// interval starts at a millisecond and grows to 50ms.
func PollContext(ctx context.Context, cb func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = time.Millisecond
	eb.MaxInterval = 50 * time.Millisecond
	eb.MaxElapsedTime = 0
	return backoff.Retry(cb, backoff.WithContext(eb, ctx))
}
