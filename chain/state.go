// state.go - Thread-safe state manager over the blockchain.
//
// One RWMutex guards the chain and the pending queue: mutations take the
// write lock, queries take the read lock. Mining is the exception to the
// locking rule: the nonce search runs outside the lock on a snapshot of the
// pending set, polls cancellation, and only reacquires the lock for the
// final append. Submitting a transaction cancels any in-flight search, since
// the pending set it was mining is stale.

package chain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Tritonn204/zkledger/curve"
	"github.com/Tritonn204/zkledger/digest"
	"github.com/Tritonn204/zkledger/logger"
	"github.com/Tritonn204/zkledger/zkp"
)

// TxRef locates a transaction inside the chain.
type TxRef struct {
	BlockIndex uint64          `json:"block_index"`
	BlockHash  Digest          `json:"block_hash"`
	Tx         zkp.Transaction `json:"tx"`
}

// Summary is a point-in-time view of the ledger state.
type Summary struct {
	Length     int    `json:"length"`
	HeadHash   Digest `json:"head_hash"`
	Pending    int    `json:"pending"`
	Difficulty uint32 `json:"difficulty"`
	HashAlgo   string `json:"hash_algo"`
}

// Option adjusts state manager construction.
type Option func(*StateManager)

// WithLogger replaces the manager's logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *StateManager) { s.log = l }
}

// WithBlockCallback registers a function invoked synchronously after every
// successful append, outside the state lock.
func WithBlockCallback(fn func(*Block)) Option {
	return func(s *StateManager) { s.onBlock = fn }
}

// WithMetrics shares an external metrics collector.
func WithMetrics(mc *MetricsCollector) Option {
	return func(s *StateManager) { s.metrics = mc }
}

// StateManager serializes all access to one Blockchain and its pending
// transaction queue.
type StateManager struct {
	mu         sync.RWMutex
	mineMu     sync.Mutex
	chain      *Blockchain
	pending    []zkp.Transaction
	pendingIDs map[string]struct{}
	mineCancel context.CancelFunc

	engine  *zkp.Engine
	cfg     Config
	hasher  *digest.Hasher
	log     zerolog.Logger
	onBlock func(*Block)
	metrics *MetricsCollector
}

// NewStateManager builds a manager with a fresh chain holding only the
// genesis block.
func NewStateManager(engine *zkp.Engine, cfg Config, opts ...Option) (*StateManager, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: nil engine", zkp.ErrInvalidInput)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	hasher, err := digest.New(cfg.HashAlgo)
	if err != nil {
		return nil, err
	}

	s := &StateManager{
		chain:      NewBlockchain(hasher, cfg.Difficulty),
		pendingIDs: make(map[string]struct{}),
		engine:     engine,
		cfg:        cfg,
		hasher:     hasher,
		log:        logger.Logger().With().Str("component", "chain").Logger(),
		metrics:    NewMetricsCollector(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SubmitTransaction verifies a transaction's proof bundle and queues it for
// mining. Duplicate IDs are rejected, and any in-flight nonce search is
// cancelled because its pending snapshot is now stale.
func (s *StateManager) SubmitTransaction(tx *zkp.Transaction) error {
	if tx == nil {
		return fmt.Errorf("%w: nil transaction", zkp.ErrInvalidInput)
	}
	if !s.engine.VerifyTransactionProof(tx) {
		s.metrics.IncrementCounter(MetricRejectedTransactions)
		return fmt.Errorf("%w: proof bundle rejected for %s", zkp.ErrInvalidTransaction, tx.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, dup := s.pendingIDs[tx.ID]; dup {
		s.metrics.IncrementCounter(MetricRejectedTransactions)
		return fmt.Errorf("%w: duplicate transaction %s", zkp.ErrInvalidTransaction, tx.ID)
	}
	if s.cfg.MaxPendingTransactions > 0 && len(s.pending) >= s.cfg.MaxPendingTransactions {
		return fmt.Errorf("%w: %d transactions queued", ErrPendingQueueFull, len(s.pending))
	}

	s.pending = append(s.pending, *tx)
	s.pendingIDs[tx.ID] = struct{}{}
	if s.mineCancel != nil {
		s.mineCancel()
	}
	s.metrics.IncrementCounter(MetricSubmittedTransactions)
	s.metrics.SetGauge(MetricPendingTransactions, float64(len(s.pending)))

	s.log.Debug().Str("tx", tx.ID).Int("pending", len(s.pending)).Msg("transaction submitted")
	return nil
}

// MineNow mines the current pending set into a new block. The pending
// snapshot and head are taken under the lock, the nonce search runs without
// it, and the lock is reacquired for the append. Cancellation, via ctx or a
// concurrent submission, returns ErrMiningCancelled with the chain and
// pending queue untouched.
func (s *StateManager) MineNow(ctx context.Context) (*Block, error) {
	s.mineMu.Lock()
	defer s.mineMu.Unlock()

	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return nil, ErrNoPendingTransactions
	}
	snapshot := make([]zkp.Transaction, len(s.pending))
	copy(snapshot, s.pending)
	headHash := s.chain.Head().Hash
	nextIndex := s.chain.Head().Index + 1
	mineCtx, cancel := context.WithCancel(ctx)
	s.mineCancel = cancel
	s.mu.Unlock()
	defer cancel()

	block, err := NewBlock(s.hasher, nextIndex, snapshot, headHash)
	if err != nil {
		s.clearMineCancel()
		return nil, err
	}

	s.log.Info().
		Uint64("index", block.Index).
		Int("transactions", len(snapshot)).
		Uint32("difficulty", s.cfg.Difficulty).
		Msg("mining started")
	start := time.Now()
	mineErr := block.Mine(mineCtx, s.hasher, s.cfg.Difficulty)
	elapsed := time.Since(start)

	if err := s.finalizeMined(block, headHash, snapshot, mineErr, elapsed); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint64("index", block.Index).
		Str("hash", block.Hash.String()).
		Uint64("nonce", block.Nonce).
		Dur("elapsed", elapsed).
		Msg("block mined")

	// The callback sees the block after the lock is released, so it may
	// freely query the manager.
	if s.onBlock != nil {
		s.onBlock(block)
	}
	return block, nil
}

// finalizeMined appends a mined block under the write lock, or records the
// cancellation. The pending queue keeps anything submitted after the mined
// snapshot was taken.
func (s *StateManager) finalizeMined(block *Block, headHash Digest, snapshot []zkp.Transaction, mineErr error, elapsed time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mineCancel = nil

	if mineErr != nil {
		s.metrics.IncrementCounter(MetricMiningCancelled)
		s.log.Info().Uint64("index", block.Index).Dur("elapsed", elapsed).Msg("mining cancelled")
		return mineErr
	}
	if s.chain.Head().Hash != headHash {
		return &IntegrityError{Index: block.Index, Reason: "chain advanced during mining"}
	}
	if err := s.chain.AppendBlock(block); err != nil {
		return err
	}
	s.removePendingLocked(snapshot)
	s.metrics.IncrementCounter(MetricBlocksMined)
	s.metrics.SetGauge(MetricPendingTransactions, float64(len(s.pending)))
	s.metrics.RecordDuration(MetricMiningSeconds, elapsed)
	return nil
}

// clearMineCancel resets the cancel hook under the lock.
func (s *StateManager) clearMineCancel() {
	s.mu.Lock()
	s.mineCancel = nil
	s.mu.Unlock()
}

// removePendingLocked drops exactly the mined transactions from the pending
// queue, keeping later submissions. Caller holds the write lock.
func (s *StateManager) removePendingLocked(mined []zkp.Transaction) {
	minedIDs := make(map[string]struct{}, len(mined))
	for i := range mined {
		minedIDs[mined[i].ID] = struct{}{}
	}
	remaining := s.pending[:0]
	for i := range s.pending {
		if _, ok := minedIDs[s.pending[i].ID]; ok {
			delete(s.pendingIDs, s.pending[i].ID)
			continue
		}
		remaining = append(remaining, s.pending[i])
	}
	s.pending = remaining
}

// Chain returns a snapshot of the block list.
func (s *StateManager) Chain() []*Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Block, len(s.chain.Blocks))
	copy(out, s.chain.Blocks)
	return out
}

// Head returns the latest block.
func (s *StateManager) Head() *Block {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain.Head()
}

// Length returns the chain length including genesis.
func (s *StateManager) Length() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain.Length()
}

// PendingCount returns the number of queued transactions.
func (s *StateManager) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending)
}

// Pending returns a copy of the pending queue.
func (s *StateManager) Pending() []zkp.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]zkp.Transaction, len(s.pending))
	copy(out, s.pending)
	return out
}

// VerifyChain re-validates the whole chain, logging the offending block on
// failure.
func (s *StateManager) VerifyChain() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	err := s.chain.Verify()
	if err != nil {
		var ie *IntegrityError
		if errors.As(err, &ie) {
			s.log.Warn().Uint64("block", ie.Index).Str("reason", ie.Reason).Msg("chain verification failed")
		}
	}
	return err
}

// ScanTransactions walks every mined transaction and collects those matching
// the predicate.
func (s *StateManager) ScanTransactions(pred func(*zkp.Transaction) bool) []TxRef {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []TxRef
	for _, b := range s.chain.Blocks {
		for i := range b.Transactions {
			if pred(&b.Transactions[i]) {
				out = append(out, TxRef{
					BlockIndex: b.Index,
					BlockHash:  b.Hash,
					Tx:         b.Transactions[i],
				})
			}
		}
	}
	return out
}

// ScanForRecipient collects every mined transaction addressed to pk.
func (s *StateManager) ScanForRecipient(pk curve.Point) []TxRef {
	return s.ScanTransactions(func(tx *zkp.Transaction) bool {
		return tx.RecipientPK.Equal(pk)
	})
}

// Summary reports chain length, head hash, pending count, and settings.
func (s *StateManager) Summary() Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Summary{
		Length:     s.chain.Length(),
		HeadHash:   s.chain.Head().Hash,
		Pending:    len(s.pending),
		Difficulty: s.cfg.Difficulty,
		HashAlgo:   s.hasher.Algo(),
	}
}

// Stats returns a snapshot of the manager's metrics.
func (s *StateManager) Stats() MetricsSummary {
	return s.metrics.Summary()
}

// SaveState persists the chain to path.
func (s *StateManager) SaveState(path string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chain.SaveToFile(path)
}

// LoadState replaces the chain with one loaded from path, after verifying
// it. Any in-flight mining is cancelled; the pending queue is kept.
func (s *StateManager) LoadState(path string) error {
	bc, err := LoadBlockchainFromFile(path, s.hasher, s.cfg.Difficulty)
	if err != nil {
		return err
	}
	if err := bc.Verify(); err != nil {
		return fmt.Errorf("loaded chain failed verification: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mineCancel != nil {
		s.mineCancel()
	}
	s.chain = bc
	s.log.Info().Int("blocks", bc.Length()).Str("path", path).Msg("chain state loaded")
	return nil
}
