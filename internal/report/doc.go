// Package report parses the output of BSL Language Server analysis and
// format runs.
//
// Parsing never fails. JSON reports are preferred; when the output holds no
// decodable report a text heuristic fills in what it can and the raw output
// is kept alongside.
package report
