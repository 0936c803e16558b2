// Package deps reports whether the external programs vnforge shells out to
// are installed.
package deps
