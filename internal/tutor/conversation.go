package tutor

import (
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/gptutor/internal/domain"
	"github.com/felixgeelhaar/gptutor/internal/exercise"
)

// ErrOutOfOrder is returned when a conversation step is taken from the wrong state.
var ErrOutOfOrder = errors.New("conversation step out of order")

// State is a step of the exercise conversation
type State int

const (
	StateIdle State = iota
	StateExerciseRequested
	StateExerciseReceived
	StateTitleRequested
	StateTitleReceived
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExerciseRequested:
		return "exercise_requested"
	case StateExerciseReceived:
		return "exercise_received"
	case StateTitleRequested:
		return "title_requested"
	case StateTitleReceived:
		return "title_received"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Conversation is the fixed exchange that produces one exercise:
// question, exercise, title request, title. Each step is only valid
// from the state the previous step left behind.
type Conversation struct {
	level, topic, duration string

	state      State
	startedAt  time.Time
	transcript domain.Transcript
}

// NewConversation starts an idle conversation for the given options.
func NewConversation(level, topic, duration string) *Conversation {
	return &Conversation{level: level, topic: topic, duration: duration}
}

// State returns the current step.
func (c *Conversation) State() State { return c.state }

// StartedAt is the time the exercise was requested.
func (c *Conversation) StartedAt() time.Time { return c.startedAt }

// Transcript returns a copy of the messages exchanged so far.
func (c *Conversation) Transcript() domain.Transcript {
	out := make(domain.Transcript, len(c.transcript))
	copy(out, c.transcript)
	return out
}

// RequestExercise appends the opening question and records the start time.
// It returns the transcript to send upstream.
func (c *Conversation) RequestExercise(now time.Time) (domain.Transcript, error) {
	if err := c.expect(StateIdle); err != nil {
		return nil, err
	}
	c.startedAt = now
	c.append(domain.RoleUser, exercise.QuestionPrompt(c.level, c.topic, c.duration), domain.KindInitialQuestion)
	c.state = StateExerciseRequested
	return c.Transcript(), nil
}

// ReceiveExercise records the exercise reply.
func (c *Conversation) ReceiveExercise(role domain.Role, text string) error {
	if err := c.expect(StateExerciseRequested); err != nil {
		return err
	}
	c.append(role, text, domain.KindInitialExercise)
	c.state = StateExerciseReceived
	return nil
}

// RequestTitle appends the title instruction and returns the full
// transcript to send upstream.
func (c *Conversation) RequestTitle() (domain.Transcript, error) {
	if err := c.expect(StateExerciseReceived); err != nil {
		return nil, err
	}
	c.append(domain.RoleUser, exercise.AskTitlePrompt, domain.KindAskTitle)
	c.state = StateTitleRequested
	return c.Transcript(), nil
}

// ReceiveTitle records the title reply.
func (c *Conversation) ReceiveTitle(role domain.Role, text string) error {
	if err := c.expect(StateTitleRequested); err != nil {
		return err
	}
	c.append(role, text, domain.KindExerciseTitle)
	c.state = StateTitleReceived
	return nil
}

// Finish marks the conversation complete once the title has arrived.
func (c *Conversation) Finish() error {
	if err := c.expect(StateTitleReceived); err != nil {
		return err
	}
	c.state = StateDone
	return nil
}

// Body is the exercise text, empty until received.
func (c *Conversation) Body() string {
	m, _ := c.transcript.Find(domain.KindInitialExercise)
	return m.Text
}

// RawTitle is the title reply as received.
func (c *Conversation) RawTitle() string {
	m, _ := c.transcript.Find(domain.KindExerciseTitle)
	return m.Text
}

// Title is the cleaned title, or "{level} {topic} exercise" when the
// reply was blank.
func (c *Conversation) Title() string {
	return exercise.DisplayTitle(c.RawTitle(), exercise.FallbackTitle(c.level, c.topic))
}

func (c *Conversation) expect(want State) error {
	if c.state != want {
		return fmt.Errorf("%w: in %s, need %s", ErrOutOfOrder, c.state, want)
	}
	return nil
}

func (c *Conversation) append(role domain.Role, text string, kind domain.MessageKind) {
	c.transcript = append(c.transcript, domain.Message{
		Seq:  len(c.transcript) + 1,
		Role: role,
		Text: text,
		Kind: kind,
	})
}
