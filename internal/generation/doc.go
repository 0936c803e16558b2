// Package generation turns a textual description into one composite image
// through a single call to a generative image provider.
//
// Character requests ask the provider to draw every requested emotion as an
// equally sized cell of one row-major grid. The grid shape is chosen so each
// cell stays close to the 2:3 portrait ratio of a visual novel sprite, given
// the composite aspect ratios the provider supports. The returned Composite
// carries that grid so the spritesheet package can cut it apart.
package generation
