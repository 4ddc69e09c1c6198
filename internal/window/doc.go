// Package window computes the snapshot dates requested for each input row.
//
// A reference date (for example a deal date) is parsed from one of several
// accepted layouts and expanded into a Window: one date a number of calendar
// months before it and one a number of months after. Month arithmetic keeps
// the day of month and clamps it to the length of the target month:
//
//	2016-09-30  -6 months  ->  20160330
//	2016-09-30 +12 months  ->  20170930
//	2016-03-31  -1 month   ->  20160229
//
// Unparsable input never produces an error value; Compute reports ok=false
// and the caller skips the row.
package window
