// Package renpy drives a local Ren'Py SDK as an out-of-process compiler.
//
// A Toolchain locates the SDK launcher, runs the launcher's distribute
// command headlessly through an Executor, and turns the resulting web
// distribution into a browser-playable directory (extracted package, SDK web
// runtime, customised index.html and game.zip). The Executor seam keeps the
// subprocess replaceable in tests; the default implementation runs the
// compiler in its own process group so cancellation reaches every child.
package renpy
