// Package services defines shared utilities consumed by the shot setup
// pipeline and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, record indexes, and stage names for
//     logging.
//   - Structured error markers plus the Wrap and AtStage helpers that name the
//     failing stage (parse, lookup, create, update, filesystem) and classify
//     failures for run reports and retry decisions.
//
// Use these helpers when wiring new pipeline steps so error reporting stays
// uniform across the CLI, the batch runner, and the tracker adapters.
package services
