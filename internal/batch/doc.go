// Package batch runs shot records through normalization, reconciliation, and
// local layout one at a time and aggregates the outcome into a RunReport.
//
// Records are processed strictly in order and never concurrently, and a
// cross-process file lock keeps two runs from racing on the same tracker.
// A failing record is captured in the report and the run moves on. Writes
// made before a record failed are kept.
package batch
