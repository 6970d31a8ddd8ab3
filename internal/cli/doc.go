// Package cli implements the command-line interface for district-ratings.
//
// The cli package provides the Cobra-based commands: collect runs every
// source over a list of districts and writes the result table, lookup prints
// the record for one district without writing anything, and source saves a
// page's raw HTML for inspecting selectors. Summaries can be printed as text
// tables or JSON and sorted by name or rating.
package cli
