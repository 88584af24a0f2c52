// Package selection tracks a user's position in the catalog hierarchy.
package selection

import (
	"errors"
	"fmt"

	"github.com/pbaille/syllabus/internal/domain"
)

// ErrInvalidTransition is returned when a transition is not allowed from the
// current phase
var ErrInvalidTransition = errors.New("invalid selection transition")

// Phase is the navigation state
type Phase int

const (
	Unselected Phase = iota
	AuthoritySelected
	LevelExpanded
)

func (p Phase) String() string {
	switch p {
	case Unselected:
		return "unselected"
	case AuthoritySelected:
		return "authority_selected"
	case LevelExpanded:
		return "level_expanded"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// State is an accordion cursor: at most one level is expanded at a time.
// The zero value is Unselected.
type State struct {
	phase     Phase
	authority string
	level     string
	subject   string
}

func (s *State) Phase() Phase      { return s.phase }
func (s *State) Authority() string { return s.authority }
func (s *State) Level() string     { return s.level }
func (s *State) Subject() string   { return s.subject }

// SelectAuthority moves to AuthoritySelected from any phase and collapses
// any expanded level
func (s *State) SelectAuthority(id string) {
	*s = State{phase: AuthoritySelected, authority: id}
}

// ToggleLevel expands level, or collapses it if it is already expanded.
// Expanding a different level replaces the previous one and clears the
// subject.
func (s *State) ToggleLevel(level string) error {
	switch s.phase {
	case Unselected:
		return fmt.Errorf("%w: toggle level %q with no authority", ErrInvalidTransition, level)
	case LevelExpanded:
		if s.level == level {
			s.phase = AuthoritySelected
			s.level = ""
			s.subject = ""
			return nil
		}
	}

	s.phase = LevelExpanded
	s.level = level
	s.subject = ""
	return nil
}

// SelectSubject sets the subject within the expanded level
func (s *State) SelectSubject(subject string) error {
	if s.phase != LevelExpanded {
		return fmt.Errorf("%w: select subject %q while %s", ErrInvalidTransition, subject, s.phase)
	}
	s.subject = subject
	return nil
}

// Reset returns to Unselected. Called when the owning session ends.
func (s *State) Reset() {
	*s = State{}
}

// Context snapshots the selection for the query layer
func (s *State) Context(asOfYear int) domain.SelectionContext {
	return domain.SelectionContext{
		Authority: s.authority,
		Level:     s.level,
		Subject:   s.subject,
		AsOfYear:  asOfYear,
	}
}
