// Package assertx provides the handful of invariant checks the spec calls
// out as "assert": conditions that indicate a programming error rather
// than a runtime fault, and are never expected to trigger outside of a bug.
package assertx

import "fmt"

// Assert panics with a formatted message if cond is false.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf("assertion failed: "+format, args...))
	}
}
