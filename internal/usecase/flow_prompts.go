package usecase

import (
	"fmt"
	"strings"

	"autoscribe/internal/domain"
)

const (
	promptContinueEditing = "Okay, you can continue speaking to edit your answer."
	promptNoAnswerAdvance = "You haven't provided an answer. Are you sure you want to move to the next question?"
	promptNoAnswerBack    = "You haven't provided an answer. Are you sure you want to move to the previous question?"
	promptNoAnswerReview  = "You haven't provided an answer yet. Please speak your answer first."
	promptConfirmSubmit   = "Are you sure you want to submit the exam? Say yes to confirm or no to continue working."
	promptSubmitted       = "Exam submitted successfully. Your answers have been saved."
	promptLocked          = "Answer locked. Say next to proceed."
	promptCleared         = "Answer cleared."
	promptNothingToDelete = "Nothing to delete."
	promptFirstQuestion   = "You are already on the first question."
	promptSaveFailed      = "Your answer could not be saved. Please try again."
	promptNoExam          = "Exam content not loaded."
)

func questionPrompt(index int, q domain.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question %d. %d marks. %s. ", index+1, q.MarksOrDefault(), strings.TrimRight(q.Text, ".?! "))
	if q.IsMCQ() {
		b.WriteString("The options are: ")
		for i, option := range q.Options {
			fmt.Fprintf(&b, "Option %s: %s. ", domain.OptionLetter(i), option)
		}
		b.WriteString("Select your option.")
	} else {
		b.WriteString("Please speak your answer.")
	}
	return b.String()
}

func confirmAnswerPrompt(summary string) string {
	return fmt.Sprintf("Your answer is: %s. Say yes to proceed or no to edit.", summary)
}

func reviewPrompt(summary string) string {
	return fmt.Sprintf("Your current answer is: %s. You can say 'next' to proceed, or continue speaking to edit your answer.", summary)
}

func continuingPrompt(index int) string {
	return fmt.Sprintf("Okay, continuing the exam. You are on question %d", index+1)
}

func selectedPrompt(letter string) string {
	return fmt.Sprintf("Selected %s.", letter)
}

func removedPrompt(word string) string {
	return fmt.Sprintf("Removed %s.", strings.TrimRight(word, ".,!?;:"))
}

func replacedPrompt(target, replacement string) string {
	return fmt.Sprintf("Replaced %s with %s.", target, replacement)
}

func targetNotFoundPrompt(target string) string {
	return fmt.Sprintf("I couldn't find the word %s in your answer.", target)
}

// optionSummary describes a chosen option, or "" when none is chosen.
func optionSummary(q domain.Question, selected int) string {
	if selected < 0 || selected >= len(q.Options) {
		return ""
	}
	return fmt.Sprintf("Option %s, %s", domain.OptionLetter(selected), q.Options[selected])
}
