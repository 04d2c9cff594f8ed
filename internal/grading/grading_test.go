package grading

import (
	"testing"

	"github.com/eduverge/eduverge-backend/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func question(qt model.QuestionType, correct string, marks int) model.Question {
	return model.Question{
		ID:            uuid.New(),
		QuestionType:  qt,
		CorrectOption: correct,
		Marks:         marks,
	}
}

func TestScoreAllCorrect(t *testing.T) {
	q1 := question(model.QuestionTypeMultipleChoice, "A", 5)
	q2 := question(model.QuestionTypeMultipleChoice, "C", 10)

	res := Score([]model.Question{q1, q2}, map[string]string{
		q1.ID.String(): "A",
		q2.ID.String(): "C",
	})

	assert.Equal(t, 100.0, res.ObjectiveScore)
	assert.Equal(t, 15.0, res.ObtainedMarks)
	assert.Equal(t, 15, res.TotalMarks)
	assert.False(t, res.TheoryPending)
}

func TestScoreWeightedByMarks(t *testing.T) {
	q1 := question(model.QuestionTypeMultipleChoice, "A", 2)
	q2 := question(model.QuestionTypeMultipleChoice, "B", 8)

	// Only the high-mark question is correct.
	res := Score([]model.Question{q1, q2}, map[string]string{
		q1.ID.String(): "D",
		q2.ID.String(): "B",
	})

	assert.Equal(t, 80.0, res.ObjectiveScore)
	assert.Equal(t, 8.0, res.ObtainedMarks)
}

func TestScoreUnansweredAndUnknownAnswers(t *testing.T) {
	q := question(model.QuestionTypeMultipleChoice, "A", 5)

	// Unanswered scores zero.
	res := Score([]model.Question{q}, map[string]string{})
	assert.Equal(t, 0.0, res.ObjectiveScore)

	// Answers for unknown question IDs are ignored.
	res = Score([]model.Question{q}, map[string]string{
		uuid.NewString(): "A",
	})
	assert.Equal(t, 0.0, res.ObjectiveScore)
}

func TestScoreTheoryExcludedFromObjective(t *testing.T) {
	mc := question(model.QuestionTypeMultipleChoice, "B", 5)
	theory := question(model.QuestionTypeTheory, "", 20)

	res := Score([]model.Question{mc, theory}, map[string]string{
		mc.ID.String():     "B",
		theory.ID.String(): "a long hand-written answer",
	})

	// Theory marks never dilute the objective percentage.
	assert.Equal(t, 100.0, res.ObjectiveScore)
	assert.Equal(t, 5, res.TotalMarks)
	assert.True(t, res.TheoryPending)
}

func TestScoreNoObjectiveQuestions(t *testing.T) {
	theory := question(model.QuestionTypeTheory, "", 20)

	res := Score([]model.Question{theory}, nil)

	assert.Equal(t, 0.0, res.ObjectiveScore)
	assert.Equal(t, 0, res.TotalMarks)
	assert.True(t, res.TheoryPending)
}
