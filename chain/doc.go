// Package chain implements the ledger core: blocks, Merkle trees,
// proof-of-work mining, chain-integrity validation, and a thread-safe state
// manager for concurrent callers.
//
// Overview:
//   - Blocks bind their transaction list through a Merkle root and link by
//     hash; difficulty counts leading zero bits of the block hash
//   - The Blockchain validates linkage, stored hashes, proof-of-work, and
//     Merkle roots, reporting the first offending block index
//   - The StateManager serializes mutation behind one RWMutex; mining runs
//     outside the lock on a pending-set snapshot and is cancellable
//   - JSON persistence for the chain and configuration, plus a metrics
//     collector for submissions, rejections, and mining timings
//
// The genesis block is created unmined; verification and proof-of-work
// requirements apply from block 1 onward.
package chain
