package quiz

import (
	"errors"
	"testing"

	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/platform/apierr"
)

func questionsWithAnswers(correct ...int) []domain.QuizQuestion {
	out := make([]domain.QuizQuestion, 0, len(correct))
	for _, c := range correct {
		out = append(out, domain.QuizQuestion{Question: "q", Options: []string{"a", "b", "c", "d"}, CorrectAnswer: c})
	}
	return out
}

func TestGradeAnswers_WorkedExamples(t *testing.T) {
	qs := questionsWithAnswers(0, 1, 2, 3, 0)
	cases := []struct {
		answers []int
		correct int
		wrong   int
		passed  bool
	}{
		{[]int{0, 1, 2, 3, 0}, 5, 0, true},
		{[]int{1, 1, 2, 3, 0}, 4, 1, true},
		{[]int{1, 0, 2, 3, 0}, 3, 2, true},
		{[]int{1, 0, 0, 3, 0}, 2, 3, false},
		{[]int{1, 0, 2, 0, 1}, 1, 4, false},
	}
	for _, tc := range cases {
		g, err := GradeAnswers(qs, tc.answers)
		if err != nil {
			t.Fatalf("GradeAnswers(%v): %v", tc.answers, err)
		}
		if g.Correct != tc.correct || g.Wrong != tc.wrong || g.Passed != tc.passed {
			t.Fatalf("GradeAnswers(%v) = %+v", tc.answers, g)
		}
		if len(g.WrongIndices) != g.Wrong {
			t.Fatalf("wrong indices %v vs count %d", g.WrongIndices, g.Wrong)
		}
	}

	g, _ := GradeAnswers(qs, []int{1, 0, 2, 0, 1})
	want := []int{0, 1, 3, 4}
	for i := range want {
		if g.WrongIndices[i] != want[i] {
			t.Fatalf("WrongIndices=%v want %v", g.WrongIndices, want)
		}
	}
	if g.Status() != StatusRetry {
		t.Fatalf("status=%s", g.Status())
	}
}

func TestGradeAnswers_CountMismatch(t *testing.T) {
	_, err := GradeAnswers(questionsWithAnswers(0, 1, 2), []int{0, 1})
	if !errors.Is(err, apierr.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestScoreDelta(t *testing.T) {
	cases := []struct {
		passed  bool
		attempt int
		want    int
	}{
		{true, 1, 10},
		{true, 2, 6},
		{true, 3, 3},
		{true, 9, 3},
		{false, 1, -2},
		{false, 2, -2},
		{false, 7, -2},
	}
	for _, tc := range cases {
		if got := ScoreDelta(tc.passed, tc.attempt); got != tc.want {
			t.Fatalf("ScoreDelta(%v,%d)=%d want %d", tc.passed, tc.attempt, got, tc.want)
		}
	}
}
