// Package fetcher retrieves HTML pages for the rating scrapers.
//
// A Fetcher waits a fixed delay before every request, sends a browser user
// agent and gives up after a single attempt. Failures are logged and reported
// as "no page" rather than as errors, so a dead site only ever leaves fields
// empty.
package fetcher
