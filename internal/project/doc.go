// Package project owns the on-disk layout of vnforge projects.
//
// Every project lives in its own directory under the workspace:
//
//	<workspace>/<name>/
//	    images/   generated sprites and backgrounds (*.png)
//	    scripts/  Ren'Py sources (*.rpy)
//	    build/    compiled artifacts, one symlink per target
//	    logs/     compiler logs
//
// A project exists exactly when its directory exists. Writers replace files
// atomically so a concurrent build or preview never observes a partial asset.
package project
