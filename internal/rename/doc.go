// Package rename brings archived file names into the "<title> [<id>].<ext>"
// form used by sync, so files matched during bootstrap can be recognized by
// id later.
package rename
