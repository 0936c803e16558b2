// Command vnforge generates visual novel assets, compiles Ren'Py projects for
// the web and previews them locally.
//
// Each subcommand opens the workspace directly; there is no daemon. "vnforge
// mcp" serves the same operations as MCP tools over stdio for AI agents.
package main
