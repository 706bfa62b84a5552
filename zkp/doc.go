// Package zkp implements the confidential-value layer of the ledger.
//
// Overview:
//   - Pedersen commitments and twisted ElGamal encryption over BN254
//   - Schnorr proofs of discrete-log knowledge, optionally bound to a message
//   - Simulated range proofs composing into confidential transaction bundles
//   - Accounts orchestrating deposit, send, and receive against the engine
//
// Security Model:
//   - The second Pedersen generator H is derived by hashing a fixed seed, so
//     no party knows log_G(H)
//   - Decryption recovers value·G by bounded table lookup; values outside
//     [0, MaxValueRange) are undecryptable by design
//   - Range proofs embed their opening and are verified by re-derivation;
//     they are consistency checks, not zero-knowledge arguments, and must
//     not be mistaken for hardened primitives
//   - All randomness is generated using crypto/rand unless an engine is
//     configured otherwise
//
// Usage:
//   - Build an Engine with Setup, then use NewAccount, Deposit, Send,
//     Receive, and the prove/verify operations directly
//   - See README.md for protocol details and example usage
//
// WARNING: This package is for research and educational purposes. Use with
// caution in production environments.
package zkp
