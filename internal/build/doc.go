// Package build compiles projects into browser-playable artifacts.
//
// A Manager serialises builds per project with an in-process registry backed
// by a lock file under the project's build directory, so a second build of
// the same project (from this process or another vnforge process) is
// rejected with services.ErrBuildInProgress instead of queueing. Each build
// stages a fresh Ren'Py tree, runs the compiler, publishes the result into
// build/<target>-<build-id>/ and swaps the build/<target> symlink to it.
// Failed builds never touch the published link.
package build
