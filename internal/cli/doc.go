// Package cli implements the command-line interface for vietnam-holidays.
//
// The cli package provides the Cobra-based CLI: generate writes the static
// feed, landing page and snapshot to an output directory; serve runs the
// HTTP feed server with a scheduled refresh; list prints the scraped
// holidays as text or JSON; parse resolves a single date text, which is
// handy when a source page changes its format. It coordinates the config,
// scraper, holiday, feed, storage and server packages.
package cli
