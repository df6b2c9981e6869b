// Package toolrun provides a uniform contract for running out-of-process
// tools: launch, stream combined output, retain a bounded diagnostic tail,
// and translate non-zero exits into tagged external-tool errors.
//
// Output volume is surfaced through the OnOutput hook so callers can derive
// best-effort progress estimates without toolrun knowing anything about the
// tool being run.
package toolrun
