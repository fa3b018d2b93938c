// Package log wraps zerolog with the conventions Sentinel's subsystems use:
// a package-level Logger configured once via Init, and WithComponent /
// WithCollection / WithDocID / WithTxnID helpers that attach structured
// fields instead of formatting them into the message string.
//
// Data written by CLI commands goes to stdout; all logging goes to stderr,
// so `sentinel collection get` output can be piped without log noise mixed
// in.
package log
