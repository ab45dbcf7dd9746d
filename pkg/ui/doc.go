// Package ui narrates a fetch run on the terminal.
//
// Console implements downloader.Observer and prints one line per request
// and outcome followed by a summary. Notifier optionally raises a desktop
// notification when the run ends.
package ui
