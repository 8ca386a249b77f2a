package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ardanlabs/servicechain/foundation/blockchain/state"
)

// sealOperations handles sealing.
func (w *Worker) sealOperations() {
	w.evHandler("worker: sealOperations: G started")
	defer w.evHandler("worker: sealOperations: G completed")

	for {
		select {
		case <-w.startSeal:
			if !w.isShutdown() {
				w.runSealOperation()
			}
		case <-w.shut:
			w.evHandler("worker: sealOperations: received shut signal")
			return
		}
	}
}

// tickerOperations signals a seal on every tick of the interval.
func (w *Worker) tickerOperations() {
	w.evHandler("worker: tickerOperations: G started")
	defer w.evHandler("worker: tickerOperations: G completed")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !w.isShutdown() && w.state.QueryMempoolLength() > 0 {
				w.SignalSeal()
			}
		case <-w.shut:
			w.evHandler("worker: tickerOperations: received shut signal")
			return
		}
	}
}

// runSealOperation takes all the transactions from the mempool and writes a
// new block to the database.
func (w *Worker) runSealOperation() {
	w.evHandler("worker: runSealOperation: MINING: started")
	defer w.evHandler("worker: runSealOperation: MINING: completed")

	// Make sure there are transactions in the mempool.
	length := w.state.QueryMempoolLength()
	if length == 0 {
		w.evHandler("worker: runSealOperation: MINING: no transactions to seal: Txs[%d]", length)
		return
	}

	// Drain the cancel channel before starting.
	select {
	case <-w.cancelSeal:
		w.evHandler("worker: runSealOperation: MINING: drained cancel channel")
	default:
	}

	// Create a context so sealing can be cancelled.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Can't return from this function until these G's are complete.
	var wg sync.WaitGroup
	wg.Add(2)

	// This G exists to cancel the sealing operation.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		select {
		case <-w.cancelSeal:
			w.evHandler("worker: runSealOperation: MINING: CANCEL: requested")
		case <-w.shut:
			w.evHandler("worker: runSealOperation: MINING: CANCEL: shutdown")
		case <-ctx.Done():
		}
	}()

	// This G is performing the sealing.
	go func() {
		defer func() {
			cancel()
			wg.Done()
		}()

		t := time.Now()
		block, err := w.state.SealPending(ctx)
		duration := time.Since(t)

		w.evHandler("worker: runSealOperation: MINING: sealing duration[%v]", duration)

		if err != nil {
			switch {
			case errors.Is(err, state.ErrNoTransactions):
				w.evHandler("worker: runSealOperation: MINING: WARNING: no transactions in mempool")
			case ctx.Err() != nil:
				w.evHandler("worker: runSealOperation: MINING: CANCEL: complete")
			default:
				w.evHandler("worker: runSealOperation: MINING: ERROR: %s", err)
			}
			return
		}

		w.evHandler("worker: runSealOperation: MINING: SEALED: blk[%d]: trans[%d]", block.Index, len(block.Transactions))
	}()

	// Wait for both G's to terminate.
	wg.Wait()
}
