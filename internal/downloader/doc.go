// Package downloader runs the sequential fetch loop: for every target id it
// skips ids whose tile is already stored, looks up the coordinate, fetches
// the tile, stores it and pauses before the next id.
package downloader
