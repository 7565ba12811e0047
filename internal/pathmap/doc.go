// Package pathmap translates paths between the host and the container the
// language server runs in, and classifies what a path points at.
package pathmap
