// Package preflight provides readiness checks for the filesystem paths,
// source URL and external binaries plarchive depends on.
//
// The CLI "plarchive doctor" command renders RunAll and CheckSystemDeps as
// tables. Checks never mutate anything: missing directories are reported,
// not created.
package preflight
