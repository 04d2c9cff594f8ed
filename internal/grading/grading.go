// Package grading scores objective answers against an assessment's
// question key. Theory answers are left for human grading and only reserve
// a placeholder in the result.
package grading

import "github.com/eduverge/eduverge-backend/internal/model"

// Result is the outcome of auto-grading one answer set.
type Result struct {
	// ObjectiveScore is the percentage of objective marks obtained.
	ObjectiveScore float64
	// ObtainedMarks is the sum of marks for correctly answered objective
	// questions.
	ObtainedMarks float64
	// TotalMarks is the sum of marks across all objective questions.
	TotalMarks int
	// TheoryPending reports whether the assessment contains theory
	// questions still awaiting a human grader.
	TheoryPending bool
}

// Score grades the answer map against the question set. Answers are keyed
// by question ID string; unanswered or wrong objective answers score zero.
func Score(questions []model.Question, answers map[string]string) Result {
	var res Result
	for _, q := range questions {
		if q.QuestionType != model.QuestionTypeMultipleChoice {
			res.TheoryPending = true
			continue
		}
		res.TotalMarks += q.Marks
		if ans, ok := answers[q.ID.String()]; ok && ans == q.CorrectOption {
			res.ObtainedMarks += float64(q.Marks)
		}
	}
	if res.TotalMarks > 0 {
		res.ObjectiveScore = res.ObtainedMarks / float64(res.TotalMarks) * 100
	}
	return res
}
