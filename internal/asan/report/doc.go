// Package report implements fault classification and reporting: turning a
// poisoned shadow byte plus a faulting address into the same kind of
// structured, human-readable crash report the upstream tooling prints, then
// aborting the process. There is no recovery path; every report this
// package prints ends the program (spec §1, §4.6 — "detect and abort",
// never "detect and continue").
package report
