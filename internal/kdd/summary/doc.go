// Package summary builds the hierarchical summary document of a KdD
// contribution.
//
// Rows of every table are grouped by their own and parent names, their
// values are folded into per-column accumulators, child groups are adopted
// into their parents, sibling tables are merged into an "_all" bucket and the
// result is consolidated into plain arrays ready for a search index.
//
// Two modes exist. Counts mode (pre-summary) only maintains the "_n_*"
// counters and marks the summary incomplete. Full mode summarizes every value.
package summary
