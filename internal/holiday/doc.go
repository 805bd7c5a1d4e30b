// Package holiday turns scraped holiday listings into calendar-ready records.
//
// The holiday package owns the date-text normalizer, which converts localized
// fragments such as "2月14日–2月22日" or "9月1日–2日" into exclusive-end all-day
// spans, and the record builder, which resolves each source page's year, walks
// its entries in order and concatenates the results across pages. Entries whose
// date text cannot be read are skipped (logged at debug level); a page that fails to load
// contributes nothing and never affects the pages around it.
package holiday
