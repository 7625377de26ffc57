package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"autoscribe/internal/domain"
	"autoscribe/internal/ports"
	"autoscribe/internal/voice"
)

// submitTimeout bounds a submission, which outlives cancellation of Run.
const submitTimeout = 30 * time.Second

var (
	ErrFlowStopped    = errors.New("exam flow is not running")
	ErrFlowRunning    = errors.New("exam flow is already running")
	ErrExamHasNoItems = errors.New("exam has no questions")
)

// FlowConfig controls timing and persistence behaviour of the flow.
type FlowConfig struct {
	// TimeLimit overrides the exam's own limit when positive.
	TimeLimit    time.Duration
	TickInterval time.Duration
	// AutoSubmitOnTimeout skips the submit confirmation when time runs out.
	AutoSubmitOnTimeout bool
	SaveAttempts        int
	SaveBackoff         time.Duration
	Logger              *slog.Logger
}

// FlowPorts are the collaborators the flow drives.
type FlowPorts struct {
	Recognizer ports.Recognizer
	Narrator   ports.Narrator
	Store      ports.AnswerStore
	Submitter  ports.Submitter
	Vocabulary ports.VocabularyRules
	Events     ports.EventSink
}

// ExamFlowController sequences narration, listening, answer editing,
// confirmation dialogs and submission for one exam attempt. All state is
// owned by the goroutine running Run; every input is an event posted to it.
type ExamFlowController struct {
	exam      domain.Exam
	arbiter   *micArbiter
	editor    *AnswerEditor
	saver     answerSaver
	submitter ports.Submitter
	events    ports.EventSink
	logger    *slog.Logger
	cfg       FlowConfig

	inbox   chan flowEvent
	stopped chan struct{}
	running atomic.Bool

	ctx       context.Context
	state     flowState
	timedOut  bool
	countdown *countdown
	// submitting is closed once an in-flight Submit has returned with
	// submitErr. It is nil when no submission awaits reporting.
	submitting chan struct{}
	submitErr  error
}

func NewExamFlowController(exam domain.Exam, p FlowPorts, cfg FlowConfig) *ExamFlowController {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = exam.TimeLimit()
	}

	c := &ExamFlowController{
		exam:      exam,
		editor:    NewAnswerEditor(p.Vocabulary),
		saver:     newAnswerSaver(p.Store, cfg.SaveAttempts, cfg.SaveBackoff, logger),
		submitter: p.Submitter,
		events:    p.Events,
		logger:    logger,
		cfg:       cfg,
		inbox:     make(chan flowEvent, 128),
		stopped:   make(chan struct{}),
		ctx:       context.Background(),
		state:     newFlowState(),
	}
	c.arbiter = newMicArbiter(p.Recognizer, p.Narrator, c, logger, c.post)
	c.arbiter.startFailed = func(err error) {
		c.events.FlowError(domain.ErrorCodeRecognizer, err.Error())
	}
	return c
}

// Run presents the first question and processes events until ctx is done.
// It may be called once.
func (c *ExamFlowController) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrFlowRunning
	}
	defer close(c.stopped)

	if len(c.exam.Questions) == 0 {
		c.events.FlowError(domain.ErrorCodeStartup, promptNoExam)
		return ErrExamHasNoItems
	}

	c.ctx = ctx
	c.arbiter.ctx = ctx
	c.countdown = startCountdown(ctx, c.cfg.TimeLimit, c.cfg.TickInterval, c.post)
	defer c.countdown.Stop()
	defer c.arbiter.StopListening()

	c.handle(startEvent{})
	for {
		select {
		case <-ctx.Done():
			c.awaitSubmit()
			return nil
		case event := <-c.inbox:
			c.handle(event)
		}
	}
}

// RecognitionResult implements ports.RecognitionSink.
func (c *ExamFlowController) RecognitionResult(result domain.RecognitionResult) {
	c.post(recognitionEvent{result: result})
}

// RecognitionEnded implements ports.RecognitionSink.
func (c *ExamFlowController) RecognitionEnded() {
	c.post(recognizerEnded{})
}

// Next asks to move to the next question, as the spoken command would.
func (c *ExamFlowController) Next() { c.post(commandEvent{command: commandNext}) }

// Previous asks to move to the previous question.
func (c *ExamFlowController) Previous() { c.post(commandEvent{command: commandPrevious}) }

// Submit asks to submit the exam.
func (c *ExamFlowController) Submit() { c.post(commandEvent{command: commandSubmit}) }

// PauseListening turns the microphone off until ResumeListening.
func (c *ExamFlowController) PauseListening() {
	c.post(commandEvent{command: commandPauseListening})
}

// ResumeListening turns the microphone back on.
func (c *ExamFlowController) ResumeListening() {
	c.post(commandEvent{command: commandResumeListening})
}

// Snapshot returns the flow state after every previously posted event has
// been handled.
func (c *ExamFlowController) Snapshot(ctx context.Context) (domain.FlowSnapshot, error) {
	reply := make(chan domain.FlowSnapshot, 1)
	select {
	case c.inbox <- snapshotReq{reply: reply}:
	case <-c.stopped:
		return domain.FlowSnapshot{}, ErrFlowStopped
	case <-ctx.Done():
		return domain.FlowSnapshot{}, ctx.Err()
	}
	select {
	case snapshot := <-reply:
		return snapshot, nil
	case <-c.stopped:
		return domain.FlowSnapshot{}, ErrFlowStopped
	case <-ctx.Done():
		return domain.FlowSnapshot{}, ctx.Err()
	}
}

// Status summarizes the flow for UI polling.
func (c *ExamFlowController) Status(ctx context.Context) domain.Status {
	snapshot, err := c.Snapshot(ctx)
	if err != nil {
		return domain.Status{Phase: domain.FlowPhaseIdle, Message: err.Error()}
	}
	return domain.Status{Phase: snapshot.Phase, Index: snapshot.Index, Listening: snapshot.Listening}
}

func (c *ExamFlowController) post(event flowEvent) {
	select {
	case c.inbox <- event:
	case <-c.stopped:
	}
}

func (c *ExamFlowController) handle(event flowEvent) {
	switch ev := event.(type) {
	case startEvent:
		c.loadItem(0)
	case recognitionEvent:
		c.onRecognition(ev.result)
	case recognizerEnded:
		c.arbiter.RecognizerEnded()
	case narrationDone:
		if c.arbiter.NarrationDone(ev.utterance) && c.state.phase == domain.FlowPhasePresenting {
			c.setPhase(domain.FlowPhaseListening, domain.FlowReasonNarrationFinished)
		}
	case saveDone:
		c.onSaved(ev)
	case submitDone:
		if c.submitting == nil {
			return
		}
		c.submitting = nil
		if ev.err != nil {
			c.logger.Warn("exam submission failed", "error", ev.err)
			c.events.FlowError(domain.ErrorCodeSubmission, ev.err.Error())
		}
	case commandEvent:
		c.onCommand(ev.command)
	case tickEvent:
		if c.state.phase != domain.FlowPhaseSubmitted {
			c.events.TimeRemaining(ev.remaining)
		}
	case timeoutEvent:
		c.onTimeout()
	case snapshotReq:
		ev.reply <- c.snapshot()
	}
}

func (c *ExamFlowController) current() domain.Question {
	return c.exam.Questions[c.state.index]
}

// loadItem caches the answer of the question being left, restores any
// cached answer of the target, and presents it.
func (c *ExamFlowController) loadItem(index int) {
	if index < 0 || index >= len(c.exam.Questions) {
		return
	}
	s := &c.state
	if s.phase != domain.FlowPhaseIdle {
		c.cacheAnswer(s.index, c.currentAnswer())
	}

	s.index = index
	s.locked = false
	s.pending = domain.ConfirmNone
	s.navigating = false
	s.selected = -1
	s.saved = false
	c.editor.Reset("")

	q := c.current()
	if cached, ok := s.answers[index]; ok {
		s.saved = true
		switch {
		case q.IsMCQ() && cached.Kind == domain.AnswerKindOption:
			s.selected = cached.Option
		case !q.IsMCQ() && cached.Kind == domain.AnswerKindText:
			c.editor.Reset(cached.Text)
		}
	}

	c.setPhase(domain.FlowPhasePresenting, domain.FlowReasonQuestionPresented)
	c.render()
	c.ask(questionPrompt(index, q))
}

func (c *ExamFlowController) onRecognition(result domain.RecognitionResult) {
	final, interim := splitResult(result)
	raw := strings.ToLower(final)
	if raw == "" {
		raw = strings.ToLower(interim)
	}
	if raw == "" {
		return
	}
	c.logger.Debug("voice input captured", "transcript", raw, "final", final != "")

	s := &c.state
	if s.phase == domain.FlowPhaseSubmitted || s.navigating {
		return
	}

	intent := voice.Classify(raw, voice.Context{
		Pending: s.pending,
		Mode:    c.current().Mode(),
		Locked:  s.locked,
	})
	c.apply(intent, final, interim)
}

// apply performs one classified intent. Edits and dictation appends act on
// final hypotheses only; interim ones refresh the live display. A locked
// answer is never mutated.
func (c *ExamFlowController) apply(intent voice.Intent, final, interim string) {
	s := &c.state
	isFinal := final != ""

	switch intent.Kind {
	case voice.IntentConfirmYes:
		s.pending = domain.ConfirmNone
		if intent.Confirmation == domain.ConfirmSubmit {
			c.beginSave(saveThenSubmit)
		} else {
			c.beginSave(saveThenAdvance)
		}

	case voice.IntentConfirmNo:
		s.pending = domain.ConfirmNone
		c.setPhase(domain.FlowPhaseListening, domain.FlowReasonConfirmDeclined)
		c.render()
		if intent.Confirmation == domain.ConfirmSubmit {
			c.ask(continuingPrompt(s.index))
		} else {
			c.ask(promptContinueEditing)
		}

	case voice.IntentReviewAnswer:
		summary := c.answerSummary()
		if summary == "" {
			c.say(promptNoAnswerReview)
			return
		}
		c.say(reviewPrompt(summary))

	case voice.IntentClearAnswer:
		if !isFinal || s.locked {
			return
		}
		c.editor.Clear()
		s.saved = false
		c.render()
		c.say(promptCleared)

	case voice.IntentDeleteLastWord:
		if !isFinal || s.locked {
			return
		}
		removed, err := c.editor.DeleteLastWord()
		if err != nil {
			c.events.FlowError(domain.ErrorCodeEdit, err.Error())
			c.say(promptNothingToDelete)
			return
		}
		s.saved = false
		c.render()
		c.say(removedPrompt(removed))

	case voice.IntentReplace:
		if !isFinal || s.locked {
			return
		}
		if err := c.editor.Replace(intent.Target, intent.Replacement); err != nil {
			c.events.FlowError(domain.ErrorCodeEdit, err.Error())
			c.say(targetNotFoundPrompt(intent.Target))
			return
		}
		s.saved = false
		c.render()
		c.say(replacedPrompt(intent.Target, intent.Replacement))

	case voice.IntentNavigateNext:
		c.logger.Info("voice command", "intent", intent.Kind)
		c.requestAdvance(navForward)

	case voice.IntentNavigatePrev:
		c.logger.Info("voice command", "intent", intent.Kind)
		c.requestAdvance(navBackward)

	case voice.IntentSubmitExam:
		c.logger.Info("voice command", "intent", intent.Kind)
		c.requestSubmit(domain.FlowReasonConfirmSubmit)

	case voice.IntentLockAnswer:
		c.logger.Info("voice command", "intent", intent.Kind)
		s.locked = true
		c.render()
		c.say(promptLocked)

	case voice.IntentSelectOption:
		q := c.current()
		index := intent.OptionIndex()
		if index < 0 || index >= len(q.Options) {
			return
		}
		s.selected = index
		s.saved = false
		c.render()
		c.say(selectedPrompt(intent.Letter))

	case voice.IntentDictation:
		if isFinal && c.editor.Append(final) {
			s.saved = false
		}
		c.renderAnswer(c.editor.LiveDisplay(interim))
	}
}

// requestAdvance opens the confirmation dialog that precedes navigation.
func (c *ExamFlowController) requestAdvance(direction navDirection) {
	s := &c.state
	if s.navigating || s.phase == domain.FlowPhaseSubmitted {
		return
	}
	if direction == navBackward && s.index == 0 {
		c.say(promptFirstQuestion)
		return
	}

	s.pending = domain.ConfirmAdvance
	s.direction = direction
	c.setPhase(domain.FlowPhaseConfirming, domain.FlowReasonConfirmAdvance)
	c.render()

	summary := c.answerSummary()
	if summary == "" {
		c.ask(noAnswerPrompt(direction))
		return
	}
	c.ask(confirmAnswerPrompt(summary))
}

func (c *ExamFlowController) requestSubmit(reason domain.FlowReason) {
	s := &c.state
	if s.navigating || s.phase == domain.FlowPhaseSubmitted {
		return
	}
	s.pending = domain.ConfirmSubmit
	c.setPhase(domain.FlowPhaseConfirming, reason)
	c.render()
	c.ask(promptConfirmSubmit)
}

// beginSave persists the current answer off-loop. Until saveDone arrives
// every transcript and control intent is discarded.
func (c *ExamFlowController) beginSave(intent saveIntent) {
	s := &c.state
	if s.navigating {
		return
	}
	s.navigating = true
	c.arbiter.StopListening()
	c.setPhase(domain.FlowPhaseSaving, domain.FlowReasonSavingAnswer)

	index := s.index
	questionID := c.current().ID
	answer := c.currentAnswer()
	direction := s.direction
	c.cacheAnswer(index, answer)

	ctx := c.ctx
	go func() {
		err := c.saver.Save(ctx, index, questionID, answer)
		c.post(saveDone{intent: intent, direction: direction, index: index, err: err})
	}()
}

func (c *ExamFlowController) onSaved(ev saveDone) {
	s := &c.state
	if s.phase == domain.FlowPhaseSubmitted {
		return
	}
	if ev.err != nil {
		s.navigating = false
		c.events.FlowError(domain.ErrorCodePersistence, ev.err.Error())
		c.setPhase(domain.FlowPhaseListening, domain.FlowReasonSaveFailed)
		c.render()
		c.ask(promptSaveFailed)
		return
	}

	s.saved = true
	if ev.intent == saveThenSubmit || (c.timedOut && c.cfg.AutoSubmitOnTimeout) {
		c.submit()
		return
	}
	if c.timedOut {
		s.navigating = false
		c.requestSubmit(domain.FlowReasonTimedOut)
		return
	}

	switch {
	case ev.direction == navBackward:
		c.loadItem(ev.index - 1)
	case ev.index < len(c.exam.Questions)-1:
		c.loadItem(ev.index + 1)
	default:
		s.navigating = false
		c.requestSubmit(domain.FlowReasonConfirmSubmit)
	}
}

func (c *ExamFlowController) submit() {
	s := &c.state
	s.pending = domain.ConfirmNone
	c.countdown.Stop()
	c.arbiter.StopListening()
	c.setPhase(domain.FlowPhaseSubmitted, domain.FlowReasonExamSubmitted)
	c.render()
	c.say(promptSubmitted)

	answers := s.copyAnswers()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.ctx), submitTimeout)
	done := make(chan struct{})
	c.submitting = done
	go func() {
		defer cancel()
		err := c.submitter.Submit(ctx, answers)
		c.submitErr = err
		close(done)
		c.post(submitDone{err: err})
	}()
}

// awaitSubmit blocks until an in-flight submission has returned, so the
// attempt is final once Run returns. Its outcome is still reported.
func (c *ExamFlowController) awaitSubmit() {
	if c.submitting == nil {
		return
	}
	<-c.submitting
	c.handle(submitDone{err: c.submitErr})
}

func (c *ExamFlowController) onTimeout() {
	s := &c.state
	if s.phase == domain.FlowPhaseSubmitted || c.timedOut {
		return
	}
	c.timedOut = true
	c.logger.Info("exam time limit reached", "autoSubmit", c.cfg.AutoSubmitOnTimeout)
	if s.navigating {
		// onSaved picks the timeout up.
		return
	}
	if c.cfg.AutoSubmitOnTimeout {
		c.beginSave(saveThenSubmit)
		return
	}
	c.requestSubmit(domain.FlowReasonTimedOut)
}

func (c *ExamFlowController) onCommand(command uiCommand) {
	switch command {
	case commandNext:
		c.requestAdvance(navForward)
	case commandPrevious:
		c.requestAdvance(navBackward)
	case commandSubmit:
		c.requestSubmit(domain.FlowReasonConfirmSubmit)
	case commandPauseListening:
		c.arbiter.Mute()
		c.events.PhaseChanged(c.state.phase, domain.FlowReasonListeningPaused)
	case commandResumeListening:
		if c.state.phase == domain.FlowPhaseSubmitted {
			return
		}
		c.arbiter.Unmute()
		c.events.PhaseChanged(c.state.phase, domain.FlowReasonListeningResumed)
	}
}

func (c *ExamFlowController) currentAnswer() domain.AnswerRecord {
	if c.current().IsMCQ() {
		if c.state.selected < 0 {
			return domain.AnswerRecord{}
		}
		return domain.OptionAnswer(c.state.selected)
	}
	text := c.editor.Display()
	if text == "" {
		return domain.AnswerRecord{}
	}
	return domain.TextAnswer(text)
}

func (c *ExamFlowController) cacheAnswer(index int, answer domain.AnswerRecord) {
	if answer.IsEmpty() {
		delete(c.state.answers, index)
		return
	}
	c.state.answers[index] = answer
}

func (c *ExamFlowController) answerSummary() string {
	q := c.current()
	if q.IsMCQ() {
		return optionSummary(q, c.state.selected)
	}
	return c.editor.Display()
}

func (c *ExamFlowController) setPhase(phase domain.FlowPhase, reason domain.FlowReason) {
	c.state.phase = phase
	c.events.PhaseChanged(phase, reason)
}

// say narrates without changing the listening intent.
func (c *ExamFlowController) say(text string) {
	c.events.Narrated(text)
	c.arbiter.Speak(text)
}

// ask narrates and listens for the reply once narration has finished.
func (c *ExamFlowController) ask(text string) {
	c.events.Narrated(text)
	c.arbiter.SpeakThenListen(text)
}

func (c *ExamFlowController) render() {
	c.renderAnswer(c.editor.Display())
}

func (c *ExamFlowController) renderAnswer(answerText string) {
	s := &c.state
	q := c.current()
	view := domain.QuestionView{
		QuestionIndex:   s.index,
		QuestionCount:   len(c.exam.Questions),
		QuestionID:      q.ID,
		QuestionText:    q.Text,
		Marks:           q.MarksOrDefault(),
		Mode:            q.Mode(),
		ProgressPercent: float64(s.index+1) / float64(len(c.exam.Questions)) * 100,
		Locked:          s.locked,
		Saved:           s.saved,
		Phase:           s.phase,
		Pending:         s.pending,
	}
	if q.IsMCQ() {
		view.Options = append([]string(nil), q.Options...)
		if s.selected >= 0 {
			selected := s.selected
			view.SelectedOption = &selected
		}
	} else {
		view.AnswerText = answerText
	}
	c.events.QuestionRendered(view)
}

func (c *ExamFlowController) snapshot() domain.FlowSnapshot {
	s := &c.state
	q := c.exam.Questions[s.index]
	return domain.FlowSnapshot{
		Phase:      s.phase,
		Index:      s.index,
		Mode:       q.Mode(),
		Locked:     s.locked,
		Listening:  c.arbiter.Listening(),
		Speaking:   c.arbiter.Speaking(),
		Pending:    s.pending,
		Navigating: s.navigating,
		Selected:   s.selected,
		AnswerText: c.answerSummary(),
		Answers:    s.copyAnswers(),
	}
}

// splitResult joins the final and interim hypotheses from ResultIndex on.
func splitResult(result domain.RecognitionResult) (final string, interim string) {
	start := result.ResultIndex
	if start < 0 {
		start = 0
	}
	var finals, interims []string
	for i := start; i < len(result.Results); i++ {
		text := strings.TrimSpace(result.Results[i].Transcript)
		if text == "" {
			continue
		}
		if result.Results[i].IsFinal {
			finals = append(finals, text)
		} else {
			interims = append(interims, text)
		}
	}
	return strings.Join(finals, " "), strings.Join(interims, " ")
}

func noAnswerPrompt(direction navDirection) string {
	if direction == navBackward {
		return promptNoAnswerBack
	}
	return promptNoAnswerAdvance
}
