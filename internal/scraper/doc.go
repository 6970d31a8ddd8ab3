// Package scraper locates school-district pages on GreatSchools, Niche and
// SchoolDigger and extracts their ratings.
//
// Each site is a Source with two steps. Locate turns a district name into a
// page URL, either by scanning a search results page for the first matching
// link or, for Niche, by guessing the URL from a slug first. Extract fetches
// that page and pulls a rating and a few secondary metrics out of it with
// regular expressions over the parsed HTML. Matching is first-match-wins
// throughout and a miss simply leaves the field out.
package scraper
