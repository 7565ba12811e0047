// Package subprocess manages the language server child processes.
//
// A Process is a persistent handle speaking a line-oriented request/response
// protocol over stdin and stdout. RunOnce and Runner execute self-contained
// one-shot invocations that capture combined output.
package subprocess
