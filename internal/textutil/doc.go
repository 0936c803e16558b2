// Package textutil provides small text helpers shared by the project store and
// the Ren'Py script writers: identifier sanitization and display-name casing.
package textutil
