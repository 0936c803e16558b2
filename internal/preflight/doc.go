// Package preflight provides readiness checks for the filesystem paths,
// credentials and external tools vnforge depends on.
//
// The CLI "vnforge status" command renders every check; the MCP server runs
// RunAll once at startup and logs failures without refusing to serve, since
// project editing works without a compiler or API key.
package preflight
