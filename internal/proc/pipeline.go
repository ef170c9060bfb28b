package proc

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/dgnsrekt/mediahub/internal/mtypes"
)

// DefaultStartTimeout bounds how long the fetcher may run without
// producing its first byte before the pipeline is torn down.
const DefaultStartTimeout = 30 * time.Second

// Pipeline composes a fetcher session feeding bytes into a decoder
// session for remote stream playback. The decoder is the authoritative
// end: its exit resolves Wait, and teardown stops it first so a fetcher
// outliving its consumer cannot propagate broken-pipe noise.
type Pipeline struct {
	fetcher      *Session
	decoder      *Session
	startTimeout time.Duration
	cancel       context.CancelFunc
}

// NewPipeline composes a fetcher and a decoder. Neither session may
// have been started yet; the stdout-to-stdin wiring happens in Start.
func NewPipeline(fetcher, decoder *Session) *Pipeline {
	return &Pipeline{fetcher: fetcher, decoder: decoder, startTimeout: DefaultStartTimeout}
}

// SetStartTimeout overrides the first-byte bound on the fetcher.
func (p *Pipeline) SetStartTimeout(d time.Duration) {
	if d > 0 {
		p.startTimeout = d
	}
}

// Start wires fetcher stdout into decoder stdin and spawns both. The
// pipe ends are passed to the children as files so neither session's
// exit detection depends on the other still draining; the parent
// relays the stream between them so it can bound the time to the
// fetcher's first byte. The sessions run under a cancellable context
// so a stalled remote fetch can be torn down rather than hanging the
// session forever.
func (p *Pipeline) Start(ctx context.Context) error {
	ctx, p.cancel = context.WithCancel(ctx)

	fetchR, fetchW, err := os.Pipe()
	if err != nil {
		p.cancel()
		return fmt.Errorf("failed to create stream pipe: %w", err)
	}
	decodeR, decodeW, err := os.Pipe()
	if err != nil {
		fetchR.Close()
		fetchW.Close()
		p.cancel()
		return fmt.Errorf("failed to create stream pipe: %w", err)
	}
	p.fetcher.SetStdout(fetchW)
	p.decoder.SetStdin(decodeR)

	closeAll := func() {
		fetchR.Close()
		fetchW.Close()
		decodeR.Close()
		decodeW.Close()
	}
	if err := p.fetcher.Start(ctx); err != nil {
		closeAll()
		p.cancel()
		return err
	}
	if err := p.decoder.Start(ctx); err != nil {
		closeAll()
		_ = p.fetcher.Stop(DefaultGrace)
		p.cancel()
		return err
	}

	// The children hold their own copies of their pipe ends; release
	// ours so EOF and broken-pipe propagate.
	fetchW.Close()
	decodeR.Close()

	go p.relay(fetchR, decodeW)

	// The fetcher's exit is monitored but is not a playback event; only
	// the decoder finishing means the stream ended.
	go func() {
		<-p.fetcher.Done()
		log.Debug("Fetcher exited", "reason", p.fetcher.ExitReason())
	}()

	return nil
}

// relay pumps fetcher output into the decoder. A fetcher that fails
// to produce its first byte within the start timeout gets the whole
// pipeline torn down. Closing both ends on exit propagates EOF to the
// decoder and broken-pipe to the fetcher.
func (p *Pipeline) relay(r io.ReadCloser, w io.WriteCloser) {
	defer r.Close()
	defer w.Close()

	watchdog := time.AfterFunc(p.startTimeout, func() {
		log.Warn("Fetcher produced no output in time, stopping stream", "timeout", p.startTimeout)
		_ = p.Stop(DefaultGrace)
	})

	buf := make([]byte, 32*1024)
	n, err := r.Read(buf)
	watchdog.Stop()
	if n > 0 {
		if _, werr := w.Write(buf[:n]); werr != nil {
			return
		}
	}
	if err != nil {
		return
	}
	_, _ = io.Copy(w, r)
}

// Done is closed when the decoder exits.
func (p *Pipeline) Done() <-chan struct{} { return p.decoder.Done() }

// ExitReason reports why the decoder ended.
func (p *Pipeline) ExitReason() mtypes.ExitReason { return p.decoder.ExitReason() }

// State reports the decoder's lifecycle state.
func (p *Pipeline) State() mtypes.SessionState { return p.decoder.State() }

// Stop tears the pipeline down: decoder first, then fetcher, each with
// its own grace-then-kill escalation. Idempotent.
func (p *Pipeline) Stop(grace time.Duration) error {
	if err := p.decoder.Stop(grace); err != nil {
		log.Warn("Decoder stop failed", "err", err)
	}
	if err := p.fetcher.Stop(grace); err != nil {
		log.Warn("Fetcher stop failed", "err", err)
	}
	if p.cancel != nil {
		p.cancel()
	}
	return nil
}

// Pause suspends the decoder only; the fetcher keeps running so the
// pipe buffers while playback is held.
func (p *Pipeline) Pause() error { return p.decoder.Pause() }

// Resume continues a paused decoder.
func (p *Pipeline) Resume() error { return p.decoder.Resume() }
