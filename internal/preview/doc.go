// Package preview serves compiled web builds over local HTTP.
//
// A Manager owns a registry of at most one server per project. Servers serve
// the project's build/<target> link, so a new build becomes visible without
// restarting the preview. Starting a preview for a build older than the
// project's sources succeeds with a warning and Handle.Stale set.
package preview
