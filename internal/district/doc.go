// Package district defines the aggregated school-district record.
//
// A Record is created once per input district name and filled in as each
// rating source reports its fields. Every field except the district name and
// the timestamp is optional; a nil field means the source had nothing, not
// that something failed.
package district
