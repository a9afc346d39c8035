// Copyright 2026 The Drivefuse Authors
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

// Package clock provides a testable abstraction over wall-clock time, used
// for inode attribute timestamps and for pacing the background token
// refresh loop.
package clock

import "time"

// Clock is the interface through which the rest of the codebase reads the
// current time and waits for durations to elapse. Production code uses
// RealClock; tests use SimulatedClock to make background timing
// deterministic.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the time once the given
	// duration has elapsed.
	After(d time.Duration) <-chan time.Time
}
