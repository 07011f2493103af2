package quiz

import (
	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/apierr"
)

const (
	StatusPassed = "passed"
	StatusRetry  = "retry"

	failPenalty = -2
)

// Grade is the position-wise outcome of one submission.
type Grade struct {
	Correct      int
	Wrong        int
	WrongIndices []int
	Passed       bool
}

func (g Grade) Status() string {
	if g.Passed {
		return StatusPassed
	}
	return StatusRetry
}

// GradeAnswers compares answers to questions by position. A pass allows at most two wrong answers.
func GradeAnswers(questions []domain.QuizQuestion, answers []int) (Grade, error) {
	if len(answers) != len(questions) {
		return Grade{}, apierr.InvalidInput("answer_count_mismatch", "got %d answers for %d questions", len(answers), len(questions))
	}
	g := Grade{WrongIndices: []int{}}
	for i, q := range questions {
		if answers[i] == q.CorrectAnswer {
			g.Correct++
			continue
		}
		g.Wrong++
		g.WrongIndices = append(g.WrongIndices, i)
	}
	g.Passed = g.Wrong <= domain.QuizPassMaxWrong
	return g, nil
}

// ScoreDelta is the tech score change for an attempt. Earlier passes earn more; every fail costs the same.
func ScoreDelta(passed bool, attemptNumber int) int {
	if !passed {
		return failPenalty
	}
	switch {
	case attemptNumber <= 1:
		return 10
	case attemptNumber == 2:
		return 6
	default:
		return 3
	}
}
