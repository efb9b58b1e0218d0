// Package staging tidies the temp directory yt-dlp downloads into.
//
// Sync calls CleanEmpty after each run so finished channel folders do not
// pile up; partial downloads are left in place for yt-dlp to resume. Doctor
// uses ListDirectories to report what is still parked there.
package staging
