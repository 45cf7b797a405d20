// Package recorder persists completed turns off the request path.
//
// # Recording Flow
//
// A streamed response is relayed to the client first; only after the final
// chunk has been flushed does the forwarder hand the turn to the recorder:
//
//  1. Forwarder relays the stream and accumulates the assistant content
//  2. Terminal chunk reaches the client
//  3. Forwarder calls Submit with the request messages plus the reply
//  4. Recorder worker writes the turn to the history store
//
// Submit never blocks the caller. When the queue is full the turn waits in
// its own goroutine for up to EnqueueTimeout and is dropped (and counted)
// if no space frees up.
//
// # Basic Usage
//
//	rec := recorder.New(store, cfg.History.Recorder, collector)
//	defer rec.Close()
//
//	rec.Submit(history.Turn{Model: "llama3", Messages: msgs})
//
// The non-streaming path calls Record, which writes synchronously and
// returns the store's error.
//
// # Shutdown
//
// Close stops accepting turns, waits for pending enqueues and drains the
// queue. Each write is still bounded by WriteTimeout.
package recorder
