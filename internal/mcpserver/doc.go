// Package mcpserver exposes the studio operations as Model Context Protocol
// tools over stdio.
//
// Every tool maps one-to-one onto a studio method. Failures come back as tool
// errors (IsError set) whose text starts with the error kind label from
// services.Kind, so agents can tell a busy build from a bad request without
// parsing prose. A failed build still carries its structured result,
// including the verbatim compiler log.
package mcpserver
