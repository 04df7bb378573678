package discussion

import "errors"

// ErrMicPermission marks a speech-capture failure caused by a denied
// microphone permission, as opposed to a generic capture error.
var ErrMicPermission = errors.New("discussion: microphone permission denied")

// SpeechInput is the narrow capability contract for a speech
// recognizer. Start delivers zero or more transcripts through onResult
// and at most one error through onErr; the recognizer is no longer
// listening after either callback sequence finishes or Stop is called.
type SpeechInput interface {
	Start(onResult func(transcript string), onErr func(err error)) error
	Stop()
}

// Draft returns the current draft input text.
func (s *Session) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// SetDraft replaces the draft input text.
func (s *Session) SetDraft(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = text
}

// appendTranscript adds recognized speech to the draft. An existing
// draft is extended with a separating space, never replaced.
func (s *Session) appendTranscript(transcript string) {
	if transcript == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.draft == "" {
		s.draft = transcript
	} else {
		s.draft += " " + transcript
	}
}

// CaptureVoice starts the recognizer and routes transcripts into the
// draft. The onErr callback receives ErrMicPermission-wrapped errors
// for permission denials so the caller can show a distinct message.
func (s *Session) CaptureVoice(sp SpeechInput, onErr func(error)) error {
	return sp.Start(s.appendTranscript, func(err error) {
		if onErr != nil && err != nil {
			onErr(err)
		}
	})
}
