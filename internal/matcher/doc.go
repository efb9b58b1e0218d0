// Package matcher pairs local files with remote playlist records by title
// similarity when no stable ids are known yet.
package matcher
