// Package storage persists build output on the local filesystem.
//
// A Storage instance owns one directory. The last good holiday snapshot is
// kept as holidays.json so a restarted server can serve the previous feed
// before its first refresh completes. Published artifacts (the .ics feed and
// the landing page) are written through WriteFile, which replaces files
// atomically so subscribers never observe a partially written feed.
package storage
