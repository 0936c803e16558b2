// Package studio is the coordinating layer behind the CLI and the MCP tool
// server. It wires the project store, image generation, sprite slicing,
// background removal, builds and previews together and exposes one method
// per user-facing operation.
package studio
