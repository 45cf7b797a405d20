// Package forwarder runs one chat turn: it sends a validated request to the
// backend, returns the backend's answer to the client unchanged and records
// the completed exchange in the history store.
//
// Streaming is the default. A request is answered with a single JSON body
// only when it carries "stream": false.
//
// On the streaming path the turn is handed to the asynchronous recorder after
// the final chunk has been delivered, so persistence never delays the client.
// On the non-streaming path the turn is written before the body is returned;
// a storage failure fails the request unless best-effort persistence is
// configured.
package forwarder
