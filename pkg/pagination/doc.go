// Package pagination splits a wanted number of match ids into API pages and
// fetches the records of a page, optionally in parallel.
//
// match-v5 returns at most 100 ids per request and is addressed by a
// zero-based start offset and a count. Plan cuts a total into windows:
//
//	pagination.Plan(45, 20) // [{0 20} {20 20} {40 5}]
//
// FetchAll fetches one item per id. With a concurrency of 1 it fetches
// strictly one at a time; above that it runs a bounded worker group. Results
// keep the order of the ids either way, and the first error cancels the rest.
package pagination
