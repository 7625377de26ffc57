package domain

import "time"

// QuestionKind selects option-based or free-text answer capture.
type QuestionKind string

const (
	QuestionKindMCQ         QuestionKind = "mcq"
	QuestionKindDescriptive QuestionKind = "descriptive"
)

// DefaultMarks is narrated and rendered when a question carries no marks.
const DefaultMarks = 2

// Question is one immutable exam item.
type Question struct {
	ID      string       `json:"id" yaml:"id" validate:"required"`
	Kind    QuestionKind `json:"type" yaml:"type" validate:"omitempty,oneof=mcq descriptive"`
	Text    string       `json:"text" yaml:"text" validate:"required"`
	Marks   int          `json:"marks,omitempty" yaml:"marks" validate:"gte=0"`
	Options []string     `json:"options,omitempty" yaml:"options" validate:"omitempty,max=4,dive,required"`
	// CorrectAnswer is the index of the right option, kept for grading
	// exports. The flow never reads it.
	CorrectAnswer *int `json:"correctAnswer,omitempty" yaml:"correctAnswer" validate:"omitempty,gte=0"`
}

// IsMCQ reports whether the question is answered by choosing an option.
func (q Question) IsMCQ() bool {
	return q.Kind == QuestionKindMCQ || len(q.Options) > 0
}

// Mode derives the capture mode for the question.
func (q Question) Mode() QuestionKind {
	if q.IsMCQ() {
		return QuestionKindMCQ
	}
	return QuestionKindDescriptive
}

// MarksOrDefault returns the question marks, falling back to DefaultMarks.
func (q Question) MarksOrDefault() int {
	if q.Marks <= 0 {
		return DefaultMarks
	}
	return q.Marks
}

// Exam is the read-only question source for one attempt.
type Exam struct {
	ID               string     `json:"id" yaml:"id" validate:"required"`
	Name             string     `json:"name" yaml:"name"`
	Description      string     `json:"description,omitempty" yaml:"description"`
	Status           string     `json:"status,omitempty" yaml:"status"`
	DurationMinutes  int        `json:"duration,omitempty" yaml:"duration" validate:"gte=0"`
	TimeLimitSeconds int        `json:"timeLimit,omitempty" yaml:"timeLimit" validate:"gte=0"`
	Vocabulary       []string   `json:"vocabulary,omitempty" yaml:"vocabulary"`
	Questions        []Question `json:"questions" yaml:"questions" validate:"required,min=1,dive"`
}

// TimeLimit resolves the countdown duration for the exam.
func (e Exam) TimeLimit() time.Duration {
	switch {
	case e.TimeLimitSeconds > 0:
		return time.Duration(e.TimeLimitSeconds) * time.Second
	case e.DurationMinutes > 0:
		return time.Duration(e.DurationMinutes) * time.Minute
	default:
		return time.Hour
	}
}

// AnswerKind identifies the shape of an AnswerRecord.
type AnswerKind string

const (
	AnswerKindNone   AnswerKind = ""
	AnswerKindOption AnswerKind = "option"
	AnswerKindText   AnswerKind = "text"
)

// AnswerRecord is the answer captured for one question index.
type AnswerRecord struct {
	Kind   AnswerKind `json:"kind"`
	Option int        `json:"option,omitempty"`
	Text   string     `json:"text,omitempty"`
}

func OptionAnswer(index int) AnswerRecord {
	return AnswerRecord{Kind: AnswerKindOption, Option: index}
}

func TextAnswer(text string) AnswerRecord {
	return AnswerRecord{Kind: AnswerKindText, Text: text}
}

// IsEmpty reports whether nothing was answered.
func (a AnswerRecord) IsEmpty() bool {
	switch a.Kind {
	case AnswerKindOption:
		return a.Option < 0
	case AnswerKindText:
		return a.Text == ""
	default:
		return true
	}
}

// OptionLetter maps an option index to its spoken letter (0 -> 'A').
func OptionLetter(index int) string {
	if index < 0 || index > 25 {
		return ""
	}
	return string(rune('A' + index))
}

// Confirmation is the pending yes/no sub-dialog, if any.
type Confirmation string

const (
	ConfirmNone    Confirmation = ""
	ConfirmAdvance Confirmation = "confirm_advance"
	ConfirmSubmit  Confirmation = "confirm_submit"
)

// FlowPhase models the exam turn lifecycle.
type FlowPhase string

const (
	FlowPhaseIdle       FlowPhase = "idle"
	FlowPhasePresenting FlowPhase = "presenting"
	FlowPhaseListening  FlowPhase = "listening"
	FlowPhaseConfirming FlowPhase = "confirming"
	FlowPhaseSaving     FlowPhase = "saving"
	FlowPhaseSubmitted  FlowPhase = "submitted"
)

// FlowReason provides a structured reason for phase transitions.
type FlowReason string

const (
	FlowReasonQuestionPresented FlowReason = "question_presented"
	FlowReasonNarrationFinished FlowReason = "narration_finished"
	FlowReasonConfirmAdvance    FlowReason = "confirm_advance"
	FlowReasonConfirmSubmit     FlowReason = "confirm_submit"
	FlowReasonConfirmDeclined   FlowReason = "confirm_declined"
	FlowReasonSavingAnswer      FlowReason = "saving_answer"
	FlowReasonSaveFailed        FlowReason = "save_failed"
	FlowReasonListeningPaused   FlowReason = "listening_paused"
	FlowReasonListeningResumed  FlowReason = "listening_resumed"
	FlowReasonTimedOut          FlowReason = "timed_out"
	FlowReasonExamSubmitted     FlowReason = "exam_submitted"
)

// ErrorCode identifies non-fatal flow errors surfaced to the UI.
type ErrorCode string

const (
	ErrorCodeStartup     ErrorCode = "startup"
	ErrorCodeRecognizer  ErrorCode = "recognizer"
	ErrorCodePersistence ErrorCode = "persistence"
	ErrorCodeSubmission  ErrorCode = "submission"
	ErrorCodeEdit        ErrorCode = "edit"
)

// QuestionView is the declarative render instruction for the current question.
type QuestionView struct {
	QuestionIndex   int          `json:"questionIndex"`
	QuestionCount   int          `json:"questionCount"`
	QuestionID      string       `json:"questionId"`
	QuestionText    string       `json:"questionText"`
	Marks           int          `json:"marks"`
	Mode            QuestionKind `json:"mode"`
	Options         []string     `json:"options,omitempty"`
	SelectedOption  *int         `json:"selectedOptionIndex,omitempty"`
	ProgressPercent float64      `json:"progressPercent"`
	AnswerText      string       `json:"displayAnswerText,omitempty"`
	Locked          bool         `json:"locked"`
	Saved           bool         `json:"saved"`
	Phase           FlowPhase    `json:"phase"`
	Pending         Confirmation `json:"pending,omitempty"`
}

// FlowSnapshot is a point-in-time copy of the controller state.
type FlowSnapshot struct {
	Phase      FlowPhase
	Index      int
	Mode       QuestionKind
	Locked     bool
	Listening  bool
	Speaking   bool
	Pending    Confirmation
	Navigating bool
	Selected   int
	AnswerText string
	Answers    map[int]AnswerRecord
}

// Hypothesis is one recognizer alternative for a result slot.
type Hypothesis struct {
	Transcript string  `json:"transcript"`
	IsFinal    bool    `json:"isFinal"`
	Confidence float64 `json:"confidence"`
}

// RecognitionResult mirrors a continuous recognizer result event: results
// before ResultIndex are unchanged since the previous event.
type RecognitionResult struct {
	ResultIndex int          `json:"resultIndex"`
	Results     []Hypothesis `json:"results"`
}

// TranscriptKind identifies whether a stream event is partial or final text.
type TranscriptKind string

const (
	TranscriptKindPartial TranscriptKind = "partial"
	TranscriptKindFinal   TranscriptKind = "final"
)

// TranscriptEvent represents incremental transcription output from a provider.
type TranscriptEvent struct {
	Kind          TranscriptKind `json:"kind"`
	Text          string         `json:"text"`
	Confidence    float64        `json:"confidence"`
	IsSpeechFinal bool           `json:"isSpeechFinal"`
}

// Status summarizes the current runtime status.
type Status struct {
	Phase     FlowPhase `json:"phase"`
	Index     int       `json:"index"`
	Listening bool      `json:"listening"`
	Message   string    `json:"message,omitempty"`
}
