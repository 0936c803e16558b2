// Package services defines shared utilities consumed by the pipeline
// components and the tool-exposure layers.
//
// Key responsibilities:
//   - Context helpers that stamp project names, build IDs, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so generation, layout,
//     compile, build, preview, and configuration failures can be classified
//     with errors.Is by every caller.
//
// Use these helpers when wiring new components so operational behaviour
// (error classification, observability) stays uniform across the pipeline.
package services
