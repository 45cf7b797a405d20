package relay

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"harvest-hq/gateway/pkg/proxy/types"
)

// DefaultTerminalReasons are the done_reason values that complete a stream.
var DefaultTerminalReasons = []string{"stop"}

// ErrClientGone is returned when writing to the client fails.
var ErrClientGone = errors.New("client connection lost")

// Writer receives relayed lines. Flush pushes buffered bytes to the client.
type Writer interface {
	io.Writer
	Flush() error
}

// Options configures a Relay.
type Options struct {
	// TerminalReasons lists done_reason values that mark completion.
	// Empty means DefaultTerminalReasons.
	TerminalReasons []string

	// Logger receives per-stream diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// Result describes a finished relay.
type Result struct {
	// Content is the accumulated reply text.
	Content string

	// Completed is true once a terminal chunk was written and flushed.
	Completed bool

	// DoneReason is the done_reason of the first done chunk, if any.
	DoneReason string

	// Chunks counts lines forwarded to the client.
	Chunks int

	// DecodeErrors counts forwarded lines that were not valid chunks.
	DecodeErrors int
}

// Relay forwards one backend stream.
type Relay struct {
	body     *bufio.Reader
	terminal []string
	logger   *slog.Logger
	acc      Accumulator
}

// New creates a relay reading from body.
func New(body io.Reader, opts Options) *Relay {
	terminal := opts.TerminalReasons
	if len(terminal) == 0 {
		terminal = DefaultTerminalReasons
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Relay{
		body:     bufio.NewReader(body),
		terminal: terminal,
		logger:   logger.With("component", "proxy.relay"),
	}
}

// Run copies the stream to out until the backend closes it. A client write
// failure or cancelled ctx stops the relay; the returned Result is then never
// Completed.
func (r *Relay) Run(ctx context.Context, out Writer) (Result, error) {
	var res Result

	for {
		if err := ctx.Err(); err != nil {
			res.Completed = false
			res.Content = r.acc.String()
			return res, err
		}

		line, readErr := r.body.ReadBytes('\n')
		if len(line) > 0 {
			terminal, err := r.forward(out, line, &res)
			if err != nil {
				res.Completed = false
				res.Content = r.acc.String()
				return res, err
			}
			if terminal {
				res.Completed = true
			}
		}

		if readErr != nil {
			res.Content = r.acc.String()
			if errors.Is(readErr, io.EOF) {
				if !res.Completed {
					r.logger.Debug("stream ended without terminal chunk",
						"chunks", res.Chunks,
						"done_reason", res.DoneReason,
					)
				}
				return res, nil
			}
			res.Completed = false
			if ctxErr := ctx.Err(); ctxErr != nil {
				return res, ctxErr
			}
			return res, fmt.Errorf("failed to read backend stream: %w", readErr)
		}
	}
}

// forward writes one line and folds it into the accumulator. It reports
// whether the line was a terminal chunk that reached the client.
func (r *Relay) forward(out Writer, line []byte, res *Result) (bool, error) {
	if _, err := out.Write(line); err != nil {
		return false, fmt.Errorf("%w: %v", ErrClientGone, err)
	}
	if err := out.Flush(); err != nil {
		return false, fmt.Errorf("%w: %v", ErrClientGone, err)
	}
	res.Chunks++

	payload := bytes.TrimSpace(line)
	if len(payload) == 0 {
		return false, nil
	}

	chunk, err := types.DecodeChunk(payload)
	if err != nil {
		res.DecodeErrors++
		r.logger.Debug("forwarded undecodable stream line", "error", err, "bytes", len(payload))
		return false, nil
	}

	if r.acc.Finalized() {
		return false, nil
	}
	r.acc.Append(chunk.Text())

	if !chunk.Done {
		return false, nil
	}

	res.DoneReason = chunk.DoneReason
	r.acc.Finalize()
	if slices.Contains(r.terminal, chunk.DoneReason) {
		return true, nil
	}

	r.logger.Info("stream finished incomplete", "done_reason", chunk.DoneReason)
	return false, nil
}
