// Package voice drives a speech-to-text session over platform adapters:
// permission prompt, speech synthesis, audio session and recognizer.
//
// Recognizer adapters report results by calling OnPartialResult,
// OnFinalResult, OnEnd and OnError on the Session.
package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stylhelpr/stylhelpr-backend/pkg/logger"
)

type State string

const (
	StateIdle                 State = "idle"
	StateRequestingPermission State = "requesting-permission"
	StateArming               State = "arming"
	StateListening            State = "listening"
	StateEnded                State = "ended"
	StateCommitted            State = "committed"
)

const (
	DefaultCommitDelay = 300 * time.Millisecond
	DefaultLocale      = "en-US"
)

// DefaultStartBackoff is the wait before each retry of arming and starting
// recognition. iOS reports transient audio session errors right after
// playback stops.
var DefaultStartBackoff = []time.Duration{100 * time.Millisecond, 250 * time.Millisecond, 500 * time.Millisecond}

var ErrAlreadyListening = errors.New("voice session is already listening")

type Permissions interface {
	// RequestMicrophone returns false when the user denied access.
	RequestMicrophone(ctx context.Context) (bool, error)
}

type Synthesizer interface {
	Stop(ctx context.Context) error
}

// AudioSession prepares the OS audio session for recording. Platforms that
// need no preparation pass a nil AudioSession.
type AudioSession interface {
	Arm(ctx context.Context) error
}

type Recognizer interface {
	Start(ctx context.Context, locale string) error
	Stop(ctx context.Context) error
}

type Options struct {
	Locale       string
	CommitDelay  time.Duration
	StartBackoff []time.Duration
	// OnCommit is called outside the session lock with the committed text.
	OnCommit func(text string)
}

type Session struct {
	permissions Permissions
	synthesizer Synthesizer
	audio       AudioSession
	recognizer  Recognizer
	opts        Options
	log         *logger.Logger

	mu         sync.Mutex
	state      State
	buffer     string // latest transcript from the recognizer
	speech     string // committed text
	committed  bool   // buffer already committed for this utterance
	generation uint64
	timer      *time.Timer
	sleep      func(ctx context.Context, d time.Duration) error
}

func NewSession(p Permissions, synth Synthesizer, audio AudioSession, rec Recognizer, opts Options) *Session {
	if opts.Locale == "" {
		opts.Locale = DefaultLocale
	}
	if opts.CommitDelay <= 0 {
		opts.CommitDelay = DefaultCommitDelay
	}
	if opts.StartBackoff == nil {
		opts.StartBackoff = DefaultStartBackoff
	}
	return &Session{
		permissions: p,
		synthesizer: synth,
		audio:       audio,
		recognizer:  rec,
		opts:        opts,
		log:         logger.WithContext(map[string]interface{}{"component": "voice"}),
		state:       StateIdle,
		sleep:       sleepContext,
	}
}

// Speech returns the last committed transcript.
func (s *Session) Speech() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speech
}

func (s *Session) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateListening
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// StartListening requests permission, silences synthesis, arms the audio
// session and starts recognition. A denied permission returns nil and
// leaves the session idle.
func (s *Session) StartListening(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateListening, StateRequestingPermission, StateArming:
		s.mu.Unlock()
		return ErrAlreadyListening
	}
	s.generation++
	gen := s.generation
	s.stopTimerLocked()
	s.buffer = ""
	s.committed = false
	s.state = StateRequestingPermission
	s.mu.Unlock()

	granted, err := s.permissions.RequestMicrophone(ctx)
	if err != nil || !granted {
		fields := map[string]interface{}{"granted": granted}
		if err != nil {
			fields["error"] = err.Error()
		}
		s.log.Warn("Microphone permission not granted", fields)
		s.resetIfCurrent(gen)
		return nil
	}

	if s.synthesizer != nil {
		if err := s.synthesizer.Stop(ctx); err != nil {
			s.log.Debug("Stopping speech synthesis failed", map[string]interface{}{"error": err.Error()})
		}
	}

	if !s.transition(gen, StateRequestingPermission, StateArming) {
		return nil
	}

	if err := s.startWithRetry(ctx); err != nil {
		s.log.Error("Failed to start speech recognition", err)
		s.resetIfCurrent(gen)
		return err
	}

	if !s.transition(gen, StateArming, StateListening) {
		// HandleSend ran while starting
		_ = s.recognizer.Stop(ctx)
		return nil
	}
	s.log.Debug("Listening", map[string]interface{}{"locale": s.opts.Locale})
	return nil
}

func (s *Session) startWithRetry(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt <= len(s.opts.StartBackoff); attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.opts.StartBackoff[attempt-1]); err != nil {
				return err
			}
		}

		if s.audio != nil {
			if err := s.audio.Arm(ctx); err != nil {
				lastErr = fmt.Errorf("arm audio session: %w", err)
				s.log.Warn("Audio session arming failed", map[string]interface{}{
					"attempt": attempt + 1,
					"error":   err.Error(),
				})
				continue
			}
		}

		if err := s.recognizer.Start(ctx, s.opts.Locale); err != nil {
			lastErr = fmt.Errorf("start recognizer: %w", err)
			s.log.Warn("Recognizer start failed", map[string]interface{}{
				"attempt": attempt + 1,
				"error":   err.Error(),
			})
			continue
		}
		return nil
	}
	return lastErr
}

// StopListening stops recognition. Buffered text is committed after the
// commit delay unless a final result commits it first.
func (s *Session) StopListening(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateListening {
		s.mu.Unlock()
		return
	}
	s.state = StateEnded
	s.scheduleCommitLocked()
	s.mu.Unlock()

	if err := s.recognizer.Stop(ctx); err != nil {
		s.log.Warn("Stopping speech recognition failed", map[string]interface{}{"error": err.Error()})
	}
}

// HandleSend is called once the caller consumed Speech. It stops listening
// and clears all buffered and committed text.
func (s *Session) HandleSend(ctx context.Context) {
	s.mu.Lock()
	wasActive := s.state == StateListening || s.state == StateArming
	s.generation++
	s.stopTimerLocked()
	s.buffer = ""
	s.speech = ""
	s.committed = false
	s.state = StateIdle
	s.mu.Unlock()

	if wasActive {
		if err := s.recognizer.Stop(ctx); err != nil {
			s.log.Debug("Stopping speech recognition failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// OnPartialResult records an in-progress transcript. A partial arriving
// after recognition ended is committed after the commit delay.
func (s *Session) OnPartialResult(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acceptingResultsLocked() {
		return
	}
	s.buffer = strings.TrimSpace(text)
	s.committed = false
	if s.state != StateListening {
		s.state = StateEnded
		s.scheduleCommitLocked()
	}
}

// OnFinalResult commits text immediately.
func (s *Session) OnFinalResult(text string) {
	s.mu.Lock()
	if !s.acceptingResultsLocked() {
		s.mu.Unlock()
		return
	}
	if t := strings.TrimSpace(text); t != "" {
		s.buffer = t
	}
	s.stopTimerLocked()
	commit := s.commitLocked()
	s.mu.Unlock()

	commit()
}

// OnEnd is called when the recognizer stops on its own.
func (s *Session) OnEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.acceptingResultsLocked() {
		return
	}
	if s.committed {
		s.state = StateCommitted
		return
	}
	s.state = StateEnded
	s.scheduleCommitLocked()
}

// OnError stops listening and falls back to committing partial text.
// Recognition errors are logged, never returned.
func (s *Session) OnError(err error) {
	s.log.Warn("Speech recognition error", map[string]interface{}{"error": fmt.Sprint(err)})

	s.mu.Lock()
	if !s.acceptingResultsLocked() {
		s.mu.Unlock()
		return
	}
	wasListening := s.state == StateListening
	if s.committed {
		s.state = StateCommitted
	} else {
		s.state = StateEnded
		s.scheduleCommitLocked()
	}
	s.mu.Unlock()

	if wasListening {
		_ = s.recognizer.Stop(context.Background())
	}
}

func (s *Session) acceptingResultsLocked() bool {
	return s.state == StateListening || s.state == StateEnded || s.state == StateCommitted
}

func (s *Session) scheduleCommitLocked() {
	s.stopTimerLocked()
	gen := s.generation
	s.timer = time.AfterFunc(s.opts.CommitDelay, func() {
		s.mu.Lock()
		if s.generation != gen || s.committed {
			s.mu.Unlock()
			return
		}
		commit := s.commitLocked()
		s.mu.Unlock()
		commit()
	})
}

// commitLocked moves the buffer into speech and returns the callback to run
// after unlocking.
func (s *Session) commitLocked() func() {
	s.committed = true
	if s.state != StateListening {
		s.state = StateCommitted
	}
	if s.buffer == "" {
		return func() {}
	}
	s.speech = s.buffer
	text := s.speech
	cb := s.opts.OnCommit
	return func() {
		if cb != nil {
			cb(text)
		}
	}
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) transition(gen uint64, from, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen || s.state != from {
		return false
	}
	s.state = to
	return true
}

func (s *Session) resetIfCurrent(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.state = StateIdle
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
