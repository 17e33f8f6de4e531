/*
Package lsmtable implements the read path of a log-structured merge-tree
storage engine: sorted string tables (SSTs) on disk, their block-level
binary format, and an n-way merge iterator that composes several SSTs (or
any other homogeneous iterator source) into one logical, deduplicated
stream.

This package does not implement a full embedded database. The SST builder,
memtable, compaction, manifest, and write-ahead log are external
collaborators, out of scope here; see the sst, block, filter, and iterator
subpackages for the pieces this module does own.

# Usage

Open each SST file with sst.Open, then either look up individual keys with
Get (newest-SST-wins on a tie) or build a merged iterator over a Snapshot
with NewIterator/Scan.

# Concurrency

A Snapshot and the SSTs it references are safe for concurrent use by
multiple goroutines. Individual iterators returned by NewIterator/Scan are
not; each goroutine driving one should own it exclusively.
*/
package lsmtable
