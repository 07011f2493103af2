package quiz

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/pulseloop-backend/internal/domain"
	"github.com/yungbote/pulseloop-backend/internal/modules/prompts"
)

// remediation is what a failed attempt produces besides its grade.
type remediation struct {
	Hints     domain.ReviewHints
	NextQuiz  *domain.Quiz
	Generated bool
}

// remediate builds review hints and a new retry quiz for a failed attempt.
// Completion failures degrade. The hints are returned even when the retry quiz
// could not be stored; that store failure is the only error.
func (u Usecases) remediate(ctx context.Context, userID uuid.UUID, item *domain.ContentItem, prior *domain.Quiz, g Grade) (remediation, error) {
	ctx, span := u.span(ctx, "remediate")
	defer span.End()

	rctx, cancel := context.WithTimeout(ctx, u.deps.Config.RemediationTimeout)
	defer cancel()

	var cands []Candidate
	if item.Type.IsTimeBased() && len(item.TranscriptSegments) > 0 {
		missed := missedTexts(prior.Questions, g.WrongIndices)
		if u.deps.Config.PerQuestionSegments > 0 {
			cands = MatchSegmentsPerQuestion(missed, item.TranscriptSegments, u.deps.Config.PerQuestionSegments, u.deps.Config.MaxCandidateSegments)
		} else {
			cands = MatchSegments(missed, item.TranscriptSegments, u.deps.Config.MaxCandidateSegments)
		}
	}

	hints, fromModel := u.synthesizeHints(rctx, hintRequest{Item: item, Quiz: prior, Grade: g, Candidates: cands})
	rem := remediation{Hints: hints}

	next, generated, err := u.spawnRetryQuiz(rctx, ctx, userID, item, prior, hints.Concepts)
	if err != nil {
		return rem, err
	}
	hintSrc, questionSrc := "fallback", "reused"
	if fromModel {
		hintSrc = "model"
	}
	if generated {
		questionSrc = "generated"
	}
	u.deps.Metrics.ObserveRemediation(hintSrc, questionSrc)
	rem.NextQuiz, rem.Generated = next, generated
	return rem, nil
}

// spawnRetryQuiz stores a new quiz, version prior.Version+1, written for userID
// around the concepts this attempt missed. When generation fails or yields
// nothing the prior questions are carried forward. genCtx bounds the completion
// call; storeCtx is used for persistence so a slow completion cannot starve the insert.
func (u Usecases) spawnRetryQuiz(genCtx, storeCtx context.Context, userID uuid.UUID, item *domain.ContentItem, prior *domain.Quiz, concepts []string) (*domain.Quiz, bool, error) {
	version := prior.Version + 1

	in := contentInput(item)
	in.ConceptsCSV = strings.Join(concepts, ", ")
	in.QuestionsJSON = questionsJSON(prior.Questions)

	generated := true
	questions, genErr := u.generateQuestions(genCtx, prompts.RetryQuestions, in)
	if genErr != nil || len(questions) == 0 {
		u.logWarn("retry quiz generation degraded, reusing prior questions",
			"user_id", userID, "content_id", item.ID, "quiz_id", prior.ID, "version", version, "error", genErr)
		questions = append([]domain.QuizQuestion(nil), prior.Questions...)
		generated = false
	}

	owner := userID
	q, err := u.insert(storeCtx, &domain.Quiz{ContentID: item.ID, Version: version, UserID: &owner, Questions: questions})
	if err != nil {
		return nil, false, err
	}
	return q, generated, nil
}
