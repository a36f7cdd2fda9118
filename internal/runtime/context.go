package runtime

import (
	"github.com/aretw0/convo/pkg/domain"
	"github.com/aretw0/convo/pkg/script"
)

type location struct {
	thread string
	index  int
	repeat bool
}

// stepContext is the script.StepContext handed to hooks. Redirects are
// recorded and applied by the step loop after the hook returns; the last
// request wins.
type stepContext struct {
	frame  *domain.State
	thread string
	index  int
	target *location
}

var _ script.StepContext = (*stepContext)(nil)

func newStepContext(frame *domain.State, thread string, index int) *stepContext {
	return &stepContext{frame: frame, thread: thread, index: index}
}

func (s *stepContext) Thread() string { return s.thread }
func (s *stepContext) Index() int     { return s.index }

func (s *stepContext) GotoThread(thread string) {
	s.target = &location{thread: thread}
}

func (s *stepContext) Repeat() {
	s.target = &location{thread: s.thread, index: max(s.index-1, 0), repeat: true}
}

func (s *stepContext) SetVariable(key string, value any) {
	s.frame.Variables[key] = value
}

func (s *stepContext) Variable(key string) (any, bool) {
	v, ok := s.frame.Variables[key]
	return v, ok
}

func (s *stepContext) redirected() (location, bool) {
	if s.target == nil {
		return location{}, false
	}
	return *s.target, true
}
