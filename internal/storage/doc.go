// Package storage reads district lists and writes result tables.
//
// Input is a CSV (or TSV, by extension) file with a district_name column.
// Output is a CSV with one row per district in the fixed column order, or an
// indented JSON array when the path ends in .json. Long runs also write a
// checkpoint copy of the table next to the output, named temp_<output>.
// Paths starting with ~/ are expanded to the home directory.
package storage
