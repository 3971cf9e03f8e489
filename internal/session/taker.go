package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/smartexam/smartexam/internal/model"
)

// Phase is the lifecycle state of a live exam session.
type Phase string

const (
	// PhaseInstructions is the pre-exam phase; the clock is not running yet.
	PhaseInstructions Phase = "instructions"
	// PhaseStarted means the student acknowledged the instructions and the countdown runs.
	PhaseStarted Phase = "started"
	// PhaseSubmitted is terminal: answers were collected for scoring.
	PhaseSubmitted Phase = "submitted"
	// PhaseExited is terminal: the student abandoned the session.
	PhaseExited Phase = "exited"
)

// phaseTransitions is the full transition table. Terminal phases have no exits.
var phaseTransitions = map[Phase][]Phase{
	PhaseInstructions: {PhaseStarted, PhaseExited},
	PhaseStarted:      {PhaseSubmitted, PhaseExited},
	PhaseSubmitted:    {},
	PhaseExited:       {},
}

func canTransition(from, to Phase) bool {
	for _, next := range phaseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var (
	// ErrNotStarted is returned for exam actions taken before the instructions are acknowledged.
	ErrNotStarted = errors.New("session not started")
	// ErrFinished is returned once the session reached a terminal phase.
	ErrFinished = errors.New("session already finished")
	// ErrAlreadyStarted is returned for a second acknowledgement of the instructions.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrAnswerRequired rejects Save & Mark for Review on an unanswered question.
	// It is a user-facing validation rejection: state is left untouched.
	ErrAnswerRequired = errors.New("answer required to save and mark for review")
	// ErrBadIndex rejects palette jumps outside the question range.
	ErrBadIndex = errors.New("question index out of range")
	// ErrUnknownOption rejects an option id that does not belong to the current question.
	ErrUnknownOption = errors.New("option does not belong to the current question")
	// ErrWrongAnswerKind rejects answer input that does not match the question type.
	ErrWrongAnswerKind = errors.New("answer kind does not match question type")
)

// Taker drives a single live exam session: navigation, the per-question
// status palette, answer capture, and the countdown. It is safe for use by
// one request goroutine plus the internal timer goroutine.
type Taker struct {
	mu       sync.Mutex
	exam     model.Exam
	index    int
	answers  map[string]string // question id -> option id or numeric string
	status   map[string]model.QuestionStatus
	timeLeft int // seconds
	phase    Phase
	cancel   context.CancelFunc
	onExpire func([]model.StudentAnswer)
}

// NewTaker prepares a taker for a built session. The countdown does not run
// until Begin; every question starts as not_visited.
func NewTaker(exam model.Exam, duration time.Duration) *Taker {
	status := make(map[string]model.QuestionStatus, len(exam.Questions))
	for _, q := range exam.Questions {
		status[q.ID] = model.StatusNotVisited
	}
	return &Taker{
		exam:     exam,
		answers:  make(map[string]string),
		status:   status,
		timeLeft: int(duration / time.Second),
		phase:    PhaseInstructions,
	}
}

// OnExpire registers the callback invoked with the collected answers when the
// countdown reaches zero. It must be set before Begin.
func (t *Taker) OnExpire(fn func([]model.StudentAnswer)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExpire = fn
}

// Exam returns the session-shaped exam this taker runs.
func (t *Taker) Exam() model.Exam {
	return t.exam
}

// Begin is the instructions acknowledgement gate. It is one-way: once the
// session has started it cannot return to the instructions phase. Begin marks
// the first question visited and starts the countdown.
func (t *Taker) Begin() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.phase == PhaseStarted {
		return ErrAlreadyStarted
	}
	if !canTransition(t.phase, PhaseStarted) {
		return ErrFinished
	}
	t.phase = PhaseStarted
	t.visitLocked()

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	go t.runTimer(ctx)
	return nil
}

func (t *Taker) runTimer(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick()
		}
	}
}

// tick advances the countdown by one second and force-submits at zero.
// The phase check makes expiry one-shot: whichever of tick and Submit flips
// the phase first wins, the other becomes a no-op.
func (t *Taker) tick() {
	var answers []model.StudentAnswer
	var expired bool

	t.mu.Lock()
	if t.phase != PhaseStarted {
		t.mu.Unlock()
		return
	}
	t.timeLeft--
	if t.timeLeft <= 0 {
		t.timeLeft = 0
		answers = t.finishLocked(PhaseSubmitted)
		expired = true
	}
	fn := t.onExpire
	t.mu.Unlock()

	if expired && fn != nil {
		fn(answers)
	}
}

// visitLocked applies the one-way visiting rule to the current question.
func (t *Taker) visitLocked() {
	if t.index < 0 || t.index >= len(t.exam.Questions) {
		return
	}
	id := t.exam.Questions[t.index].ID
	if t.status[id] == model.StatusNotVisited {
		t.status[id] = model.StatusNotAnswered
	}
}

func (t *Taker) activeLocked() error {
	switch t.phase {
	case PhaseInstructions:
		return ErrNotStarted
	case PhaseStarted:
		return nil
	default:
		return ErrFinished
	}
}

// currentLocked returns the question under the cursor, or nil when the
// session has no questions. A zero-question exam still starts and submits;
// only per-question actions are rejected.
func (t *Taker) currentLocked() *model.Question {
	if t.index < 0 || t.index >= len(t.exam.Questions) {
		return nil
	}
	return &t.exam.Questions[t.index]
}

// SelectOption stores an option choice for the current question.
func (t *Taker) SelectOption(optionID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.activeLocked(); err != nil {
		return err
	}
	q := t.currentLocked()
	if q == nil {
		return ErrBadIndex
	}
	if q.Type != model.TypeMCQ {
		return ErrWrongAnswerKind
	}
	for _, o := range q.Options {
		if o.ID == optionID {
			t.answers[q.ID] = optionID
			return nil
		}
	}
	return ErrUnknownOption
}

// EnterNumeric stores a numeric input for the current question. An empty
// value removes the stored answer.
func (t *Taker) EnterNumeric(value string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.activeLocked(); err != nil {
		return err
	}
	q := t.currentLocked()
	if q == nil {
		return ErrBadIndex
	}
	if q.Type != model.TypeInteger {
		return ErrWrongAnswerKind
	}
	if value == "" {
		delete(t.answers, q.ID)
	} else {
		t.answers[q.ID] = value
	}
	return nil
}

// SaveAndNext settles the current question's status from its stored answer
// and advances, staying put at the last question.
func (t *Taker) SaveAndNext() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.activeLocked(); err != nil {
		return err
	}
	q := t.currentLocked()
	if q == nil {
		return ErrBadIndex
	}
	if _, ok := t.answers[q.ID]; ok {
		t.status[q.ID] = model.StatusAnswered
	} else {
		t.status[q.ID] = model.StatusNotAnswered
	}
	t.advanceLocked()
	return nil
}

// ClearResponse removes the stored answer for the current question without
// moving.
func (t *Taker) ClearResponse() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.activeLocked(); err != nil {
		return err
	}
	q := t.currentLocked()
	if q == nil {
		return ErrBadIndex
	}
	delete(t.answers, q.ID)
	t.status[q.ID] = model.StatusNotAnswered
	return nil
}

// SaveAndMarkForReview requires a stored answer; without one it rejects with
// ErrAnswerRequired and changes nothing. With one it marks the question
// answered-and-marked and advances.
func (t *Taker) SaveAndMarkForReview() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.activeLocked(); err != nil {
		return err
	}
	q := t.currentLocked()
	if q == nil {
		return ErrBadIndex
	}
	if _, ok := t.answers[q.ID]; !ok {
		return ErrAnswerRequired
	}
	t.status[q.ID] = model.StatusAnsweredMarked
	t.advanceLocked()
	return nil
}

// MarkForReviewAndNext never blocks: the status reflects whether an answer
// exists, and the index advances either way.
func (t *Taker) MarkForReviewAndNext() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.activeLocked(); err != nil {
		return err
	}
	q := t.currentLocked()
	if q == nil {
		return ErrBadIndex
	}
	if _, ok := t.answers[q.ID]; ok {
		t.status[q.ID] = model.StatusAnsweredMarked
	} else {
		t.status[q.ID] = model.StatusMarked
	}
	t.advanceLocked()
	return nil
}

// Next steps forward one question; a no-op at the last question.
func (t *Taker) Next() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.activeLocked(); err != nil {
		return err
	}
	t.advanceLocked()
	return nil
}

// Prev steps back one question; a no-op at the first question.
func (t *Taker) Prev() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.activeLocked(); err != nil {
		return err
	}
	if t.index > 0 {
		t.index--
		t.visitLocked()
	}
	return nil
}

// JumpTo navigates directly to the question at the given index, as from the
// palette. Status only changes through the visiting rule on arrival.
func (t *Taker) JumpTo(index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.activeLocked(); err != nil {
		return err
	}
	if index < 0 || index >= len(t.exam.Questions) {
		return ErrBadIndex
	}
	t.index = index
	t.visitLocked()
	return nil
}

func (t *Taker) advanceLocked() {
	if t.index < len(t.exam.Questions)-1 {
		t.index++
		t.visitLocked()
	}
}

// Submit collects whatever answers are stored and ends the session. It is
// available in any non-terminal phase regardless of per-question status.
func (t *Taker) Submit() ([]model.StudentAnswer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !canTransition(t.phase, PhaseSubmitted) {
		return nil, ErrFinished
	}
	return t.finishLocked(PhaseSubmitted), nil
}

// Exit abandons the session and stops the countdown. Answers are discarded.
func (t *Taker) Exit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !canTransition(t.phase, PhaseExited) {
		return ErrFinished
	}
	t.finishLocked(PhaseExited)
	return nil
}

// finishLocked performs the terminal transition, stops the timer, and
// collects stored answers in session question order.
func (t *Taker) finishLocked(to Phase) []model.StudentAnswer {
	t.phase = to
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}

	answers := make([]model.StudentAnswer, 0, len(t.answers))
	for _, q := range t.exam.Questions {
		raw, ok := t.answers[q.ID]
		if !ok {
			continue
		}
		a := model.StudentAnswer{QuestionID: q.ID}
		if q.Type == model.TypeInteger {
			a.NumericInput = raw
		} else {
			a.SelectedOptionID = raw
		}
		answers = append(answers, a)
	}
	return answers
}

// Snapshot is a consistent copy of the observable session state.
type Snapshot struct {
	Phase     Phase                           `json:"phase"`
	Index     int                             `json:"current_question_index"`
	TimeLeft  int                             `json:"time_left_seconds"`
	Statuses  map[string]model.QuestionStatus `json:"question_status"`
	Counts    map[model.QuestionStatus]int    `json:"status_counts"`
	Answers   map[string]string               `json:"answers"`
	Questions int                             `json:"question_count"`
}

// Snapshot returns the current observable state for rendering the palette.
func (t *Taker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	statuses := make(map[string]model.QuestionStatus, len(t.status))
	counts := map[model.QuestionStatus]int{
		model.StatusNotVisited:     0,
		model.StatusNotAnswered:    0,
		model.StatusAnswered:       0,
		model.StatusMarked:         0,
		model.StatusAnsweredMarked: 0,
	}
	for id, s := range t.status {
		statuses[id] = s
		counts[s]++
	}
	answers := make(map[string]string, len(t.answers))
	for id, v := range t.answers {
		answers[id] = v
	}
	return Snapshot{
		Phase:     t.phase,
		Index:     t.index,
		TimeLeft:  t.timeLeft,
		Statuses:  statuses,
		Counts:    counts,
		Answers:   answers,
		Questions: len(t.exam.Questions),
	}
}
