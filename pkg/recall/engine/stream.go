package engine

import (
	"context"
	"strings"

	"recall-be/pkg/llm"
)

type streamKind int

const (
	streamPresentation streamKind = iota
	streamTangent
)

// streamBuffer holds the chunks of the latest assistant turn. index counts the
// chunks already delivered to the client.
type streamBuffer struct {
	gen    int
	active bool
	kind   streamKind
	chunks []string
	index  int
}

func (b *streamBuffer) begin(kind streamKind) int {
	b.gen++
	b.active = true
	b.kind = kind
	b.chunks = nil
	b.index = 0
	return b.gen
}

func (b *streamBuffer) text() string {
	return strings.Join(b.chunks, "")
}

type chunkEvent struct {
	gen  int
	text string
}

type streamDoneEvent struct {
	gen int
	err error
}

// startStream runs produce in the background; every chunk it emits is routed
// through the actor before reaching the client.
func (s *Session) startStream(kind streamKind, produce func(ctx context.Context, emit llm.ChunkHandler) error) {
	gen := s.stream.begin(kind)
	ctx := s.ctx

	s.spawn(func() {
		err := produce(ctx, func(chunk string) error {
			if chunk == "" {
				return nil
			}
			if !s.post(chunkEvent{gen: gen, text: chunk}) {
				return ErrSessionClosed
			}
			return nil
		})
		s.post(streamDoneEvent{gen: gen, err: err})
	})
}

func (s *Session) onChunk(e chunkEvent) {
	if e.gen != s.stream.gen || !s.stream.active {
		return
	}
	s.stream.chunks = append(s.stream.chunks, e.text)
	idx := len(s.stream.chunks) - 1
	s.send(TypeAssistantChunk, ChunkPayload{Index: idx, Content: e.text})
	s.stream.index = len(s.stream.chunks)
}

func (s *Session) onStreamDone(e streamDoneEvent) {
	if e.gen != s.stream.gen || !s.stream.active {
		return
	}
	s.stream.active = false

	if e.err != nil {
		s.logger.Warn("Session", "Assistant stream failed", map[string]interface{}{
			"session_id": s.key,
			"chunks":     len(s.stream.chunks),
			"error":      e.err,
		})
		s.send(TypeError, ErrorPayload{
			Code:    CodeUpstreamFailure,
			Kind:    KindUpstream,
			Message: "the assistant reply was interrupted",
		})
	}

	switch s.stream.kind {
	case streamPresentation:
		if len(s.stream.chunks) == 0 {
			s.emitWhole(fallbackPresentation(s.currentPoint().Context))
		}
		s.completePresentation()
	case streamTangent:
		if len(s.stream.chunks) == 0 {
			s.emitWhole("Let's keep exploring. What else would you like to know?")
		}
		s.completeTangentReply()
	}
}

// emitWhole delivers text as a single chunk of the current stream.
func (s *Session) emitWhole(text string) {
	s.stream.chunks = append(s.stream.chunks, text)
	s.send(TypeAssistantChunk, ChunkPayload{Index: len(s.stream.chunks) - 1, Content: text})
	s.stream.index = len(s.stream.chunks)
}

func fallbackPresentation(cue string) string {
	if cue == "" {
		return "Let's move on. Tell me what you remember about the next item."
	}
	return "Let's move on. Tell me what you remember about " + cue + "."
}
