package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/take1/internal/editor"
	"github.com/starford/take1/internal/revision"
	"github.com/starford/take1/internal/sse"
)

type pendingEvent struct {
	JobID uint64 `json:"job_id"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

type appliedEvent struct {
	JobID           uint64 `json:"job_id"`
	NoteID          string `json:"note_id"`
	Content         string `json:"content"`
	LastEditedIndex int    `json:"last_edited_index"`
}

type endedEvent struct {
	JobID  uint64 `json:"job_id"`
	Reason string `json:"reason"`
}

// fire runs when the debounce elapses. An ineligible span is not an error;
// nothing happens until the next change re-arms the trigger.
func (s *Session) fire() {
	if !s.armed() {
		return
	}
	boundary := s.note.LastEditedIndex
	content := s.note.Content
	if !revision.Eligible(revision.Candidate(content, boundary), s.opts.MinSpanLength) {
		s.logger.Debug("session: span not eligible", slog.Int("boundary", boundary), slog.Int("length", len(content)))
		return
	}

	job := revision.Capture(content, boundary)
	ctx, cancel := context.WithCancel(context.Background())
	s.lastJobID++
	p := &pendingJob{
		id:     s.lastJobID,
		job:    job,
		span:   editor.Range{Start: len(job.Prefix), End: job.CapturedLength()},
		cancel: cancel,
	}
	s.job = p
	s.startBlink(p.span)
	s.publish(sse.TypeRevisionPending, pendingEvent{JobID: p.id, Start: p.span.Start, End: p.span.End})
	s.logger.Debug("session: revision started", slog.Uint64("job", p.id), slog.Int("start", p.span.Start), slog.Int("end", p.span.End))

	req := revision.Request{
		APIKey:  s.settings.OpenAIAPIKey,
		Text:    job.Body,
		Context: job.Context(s.opts.ContextChars),
	}
	go func(id uint64) {
		out, err := s.reviser.Revise(ctx, req)
		select {
		case s.resultCh <- jobResult{id: id, revised: out, err: err}:
		case <-s.stopped:
		}
	}(p.id)
}

// complete handles a finished request. Results of a job that was cancelled
// or replaced are dropped without touching the buffer.
func (s *Session) complete(res jobResult) {
	if s.job == nil || s.job.id != res.id {
		s.logger.Debug("session: stale revision result dropped", slog.Uint64("job", res.id))
		return
	}
	p := s.job
	s.releaseJob()

	if res.err != nil {
		if errors.Is(res.err, context.Canceled) {
			s.publish(sse.TypeRevisionCancelled, endedEvent{JobID: p.id, Reason: "cancelled"})
			return
		}
		s.logger.Warn("session: revision failed", slog.Uint64("job", p.id), slog.String("error", res.err.Error()))
		s.publish(sse.TypeRevisionFailed, endedEvent{JobID: p.id, Reason: res.err.Error()})
		return
	}

	spliced, err := revision.Splice(s.note.Content, p.job, res.revised)
	if err != nil {
		s.logger.Warn("session: revision not applied", slog.Uint64("job", p.id), slog.String("error", err.Error()))
		s.publish(sse.TypeRevisionFailed, endedEvent{JobID: p.id, Reason: err.Error()})
		return
	}

	s.applySplice(p, spliced)
	s.publish(sse.TypeRevisionApplied, appliedEvent{
		JobID:           p.id,
		NoteID:          s.note.ID,
		Content:         s.note.Content,
		LastEditedIndex: s.note.LastEditedIndex,
	})
	s.scheduleAutosave()
	s.rearm()
}

// applySplice installs the spliced content and moves the selection with it:
// offsets in text typed after the capture shift by the length delta, offsets
// inside the revised span collapse onto the new boundary.
func (s *Session) applySplice(p *pendingJob, spliced revision.Spliced) {
	prefixLen := len(p.job.Prefix)
	captured := p.job.CapturedLength()
	delta := len(spliced.Content) - len(s.note.Content)

	remap := func(pos int) int {
		switch {
		case pos <= prefixLen:
			return pos
		case pos >= captured:
			return pos + delta
		default:
			return spliced.Boundary
		}
	}
	anchor, caret := remap(s.buf.Anchor), remap(s.buf.Caret)

	s.note.Content = spliced.Content
	s.note.LastEditedIndex = spliced.Boundary
	s.buf.SetContent(spliced.Content)
	s.buf.Select(anchor, caret)
}

// releaseJob drops the lock and the highlight without publishing.
func (s *Session) releaseJob() {
	if s.job == nil {
		return
	}
	s.job.cancel()
	s.job = nil
	s.stopBlink()
}

// cancelJob aborts the job in flight, if any. Its result will be dropped
// when it arrives.
func (s *Session) cancelJob(reason string) {
	if s.job == nil {
		return
	}
	id := s.job.id
	s.releaseJob()
	s.logger.Debug("session: revision cancelled", slog.Uint64("job", id), slog.String("reason", reason))
	s.publish(sse.TypeRevisionCancelled, endedEvent{JobID: id, Reason: reason})
}
