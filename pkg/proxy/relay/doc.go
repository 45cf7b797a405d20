// Package relay copies a newline-delimited JSON stream from the backend to
// the client while collecting the assistant's reply.
//
// Every line is written to the client exactly as received, newline included,
// and flushed before the next line is read. Lines are also decoded so their
// partial text can be accumulated; a line that fails to decode is still
// forwarded. The relay reports completion only when a chunk with done set
// and a terminal done_reason has been delivered to the client.
package relay
