// Package stream replays an already-complete model response as a paced
// sequence of word chunks so the client can render it progressively. It is a
// cosmetic replay, not incremental generation: the full text exists before
// the first chunk is written.
package stream

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultDelay is the pause after each emitted chunk.
const DefaultDelay = 5 * time.Millisecond

// Chunks splits text into the relay's emission units. A space flushes the
// accumulated word plus a trailing space; a newline flushes the word (if
// any) and then emits a paragraph break; the final word is flushed at end of
// input. Empty input produces no chunks.
func Chunks(text string) []string {
	var chunks []string
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			chunks = append(chunks, buf.String()+" ")
			buf.Reset()
		}
	}
	for _, ch := range text {
		switch ch {
		case ' ':
			flush()
		case '\n':
			flush()
			chunks = append(chunks, "\n\n")
		default:
			buf.WriteRune(ch)
		}
	}
	flush()
	return chunks
}

type Relay struct {
	delay time.Duration
}

func NewRelay(delay time.Duration) *Relay {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Relay{delay: delay}
}

// Write emits the chunk sequence for text to w, flushing after each chunk
// and sleeping the configured delay in between. It stops early when ctx is
// done or the client goes away mid-write.
func (r *Relay) Write(ctx context.Context, w io.Writer, text string) error {
	flusher, _ := w.(http.Flusher)
	for _, chunk := range Chunks(text) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := io.WriteString(w, chunk); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.delay):
		}
	}
	return nil
}
