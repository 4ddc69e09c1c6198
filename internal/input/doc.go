// Package input reads the semicolon-delimited deal sheet.
//
// Only two columns matter: the site URL and the reference date. Both names
// are configurable. A missing column or an empty file is a structural error
// that aborts the run; cell contents are not validated here.
package input
