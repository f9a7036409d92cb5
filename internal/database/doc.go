// Package database stores profiling runs in a local SQLite file so that
// results can be compared over time with "reqprof history".
//
// The driver is modernc.org/sqlite, which is pure Go and needs no CGO. Each
// run is kept as one row holding headline numbers for listing plus the full
// ProfileReport as JSON for re-rendering.
package database
