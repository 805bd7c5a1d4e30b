// Package feed keeps the published calendar current.
//
// A Refresher runs the scrape-and-build pipeline and publishes the result to
// a Cache. Refreshes are serialized. A refresh that yields no records leaves
// the previously published snapshot in place, so a temporarily broken source
// never empties a subscriber's calendar.
package feed
