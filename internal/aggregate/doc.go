// Package aggregate runs every rating source over a list of districts and
// writes the combined table.
//
// Districts are processed one at a time and sources are called in order, so
// each site sees at most one request per its configured delay. After every
// CheckpointEvery records the table so far is written to the checkpoint file
// (temp_<output>), replacing the previous checkpoint; the final table is
// written to the output path when the list is done.
package aggregate
