// Package bsl runs BSL Language Server analysis and formatting as one-shot
// invocations and turns their output into typed results.
//
// Infrastructure failures (the JVM could not start, the run timed out) are
// returned as errors. A tool that ran and reported failure is a Result whose
// OK method returns false.
package bsl
