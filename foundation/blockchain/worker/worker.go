// Package worker implements background sealing of pending transactions
// into blocks.
package worker

import (
	"sync"
	"time"

	"github.com/ardanlabs/servicechain/foundation/blockchain/state"
)

// Worker manages the sealing workflow for the ledger.
type Worker struct {
	state      *state.State
	wg         sync.WaitGroup
	interval   time.Duration
	shut       chan struct{}
	startSeal  chan bool
	cancelSeal chan bool
	evHandler  state.EventHandler
}

// Run creates a worker, registers the worker with the state package, and
// starts up all the background processes. When the interval is greater
// than zero, pending transactions are also sealed on every tick.
func Run(st *state.State, interval time.Duration, evHandler state.EventHandler) {
	w := Worker{
		state:      st,
		interval:   interval,
		shut:       make(chan struct{}),
		startSeal:  make(chan bool, 1),
		cancelSeal: make(chan bool, 1),
		evHandler:  evHandler,
	}

	// Register this worker with the state package.
	st.Worker = &w

	// Load the set of operations we need to run.
	operations := []func(){
		w.sealOperations,
	}
	if interval > 0 {
		operations = append(operations, w.tickerOperations)
	}

	// Set waitgroup to match the number of G's we need for the set
	// of operations we have.
	g := len(operations)
	w.wg.Add(g)

	// We don't want to return until we know all the G's are up and running.
	hasStarted := make(chan bool)

	// Start all the operational G's.
	for _, op := range operations {
		go func(op func()) {
			defer w.wg.Done()
			hasStarted <- true
			op()
		}(op)
	}

	// Wait for the G's to report they are running.
	for i := 0; i < g; i++ {
		<-hasStarted
	}
}

// =============================================================================
// These methods implement the state.Worker interface.

// Shutdown terminates the goroutines performing work. A seal in progress
// is cancelled and leaves the mempool untouched.
func (w *Worker) Shutdown() {
	w.evHandler("worker: shutdown: started")
	defer w.evHandler("worker: shutdown: completed")

	w.evHandler("worker: shutdown: signal cancel sealing")
	w.SignalCancelSeal()

	w.evHandler("worker: shutdown: terminate goroutines")
	close(w.shut)
	w.wg.Wait()
}

// SignalSeal starts a sealing operation. If there is already a signal
// pending in the channel, just return since a sealing operation will start.
func (w *Worker) SignalSeal() {
	select {
	case w.startSeal <- true:
	default:
	}
	w.evHandler("worker: SignalSeal: sealing signaled")
}

// SignalCancelSeal signals the G executing the runSealOperation function
// to stop immediately.
func (w *Worker) SignalCancelSeal() {
	select {
	case w.cancelSeal <- true:
	default:
	}
	w.evHandler("worker: SignalCancelSeal: MINING: CANCEL: signaled")
}

// =============================================================================

// isShutdown is used to test if a shutdown has been signaled.
func (w *Worker) isShutdown() bool {
	select {
	case <-w.shut:
		return true
	default:
		return false
	}
}
