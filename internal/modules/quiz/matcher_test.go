package quiz

import (
	"testing"

	"github.com/yungbote/pulseloop-backend/internal/domain"
)

func seg(text string, startMS, endMS int64) domain.TranscriptSegment {
	return domain.TranscriptSegment{Text: text, StartMS: startMS, EndMS: endMS}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("The GPU shortage hit data-centers in 2024, AI labs said.")
	for _, want := range []string{"shortage", "data", "centers", "labs", "said"} {
		if _, ok := got[want]; !ok {
			t.Fatalf("missing token %q in %v", want, got)
		}
	}
	for _, skip := range []string{"the", "gpu", "hit", "in", "ai", "2024"} {
		if _, ok := got[skip]; ok {
			t.Fatalf("unexpected token %q", skip)
		}
	}
}

func TestMatchSegments_RanksByOverlapThenTime(t *testing.T) {
	segments := []domain.TranscriptSegment{
		seg("welcome to the show", 0, 9_000),
		seg("kubernetes scheduling basics", 10_000, 19_000),
		seg("kubernetes scheduling and autoscaling limits", 20_000, 29_000),
		seg("scheduling again", 30_000, 39_000),
		seg("kubernetes recap", 40_000, 49_000),
	}
	got := MatchSegments([]string{"How does Kubernetes scheduling handle autoscaling?"}, segments, 10)
	wantOrder := []int{2, 1, 3, 4}
	if len(got) != len(wantOrder) {
		t.Fatalf("len=%d want %d: %+v", len(got), len(wantOrder), got)
	}
	for i, idx := range wantOrder {
		if got[i].Index != idx {
			t.Fatalf("position %d: index=%d want %d (%+v)", i, got[i].Index, idx, got)
		}
	}
	if got[0].Score != 3 {
		t.Fatalf("top score=%d want 3", got[0].Score)
	}
}

func TestMatchSegments_DedupesTimeBuckets(t *testing.T) {
	segments := []domain.TranscriptSegment{
		seg("latency budget", 1_000, 4_000),
		seg("latency budget tradeoffs", 2_000, 5_000),
		seg("latency", 12_000, 15_000),
	}
	got := MatchSegments([]string{"latency budget tradeoffs"}, segments, 20)
	if len(got) != 2 {
		t.Fatalf("len=%d want 2: %+v", len(got), got)
	}
	if got[0].Index != 1 {
		t.Fatalf("best of the shared bucket should survive, got index %d", got[0].Index)
	}
	seen := map[bucket]bool{}
	for _, c := range got {
		b := bucketOf(c.Segment)
		if seen[b] {
			t.Fatalf("duplicate bucket %+v", b)
		}
		seen[b] = true
	}
}

func TestMatchSegments_FallsBackToLeadingSegments(t *testing.T) {
	segments := []domain.TranscriptSegment{
		seg("intro music", 0, 10_000),
		seg("sponsor read", 10_000, 20_000),
		seg("news roundup", 20_000, 30_000),
	}
	got := MatchSegments([]string{"quantum cryptography"}, segments, 2)
	if len(got) != 2 || got[0].Index != 0 || got[1].Index != 1 {
		t.Fatalf("fallback: %+v", got)
	}
	if got[0].Score != 0 {
		t.Fatalf("fallback candidates are unscored")
	}
	if MatchSegments([]string{"x"}, nil, 5) != nil {
		t.Fatalf("no segments should yield nil")
	}
}

func TestMatchSegments_CapsResult(t *testing.T) {
	var segments []domain.TranscriptSegment
	for i := int64(0); i < 50; i++ {
		segments = append(segments, seg("pricing model", i*bucketMS, i*bucketMS+5_000))
	}
	if got := MatchSegments([]string{"pricing model"}, segments, 0); len(got) != DefaultMaxCandidates {
		t.Fatalf("len=%d want %d", len(got), DefaultMaxCandidates)
	}
}

func TestMatchSegmentsPerQuestion(t *testing.T) {
	segments := []domain.TranscriptSegment{
		seg("interest rates rose", 0, 5_000),
		seg("interest rates again", 10_000, 15_000),
		seg("interest rates third", 20_000, 25_000),
		seg("semiconductor exports fell", 30_000, 35_000),
	}
	got := MatchSegmentsPerQuestion([]string{"Why did interest rates move?", "What happened to semiconductor exports?"}, segments, 2, 10)
	if len(got) != 3 {
		t.Fatalf("len=%d want 3: %+v", len(got), got)
	}
	var sawExports bool
	for _, c := range got {
		if c.Index == 2 {
			t.Fatalf("per-question cap exceeded: %+v", got)
		}
		if c.Index == 3 {
			sawExports = true
		}
	}
	if !sawExports {
		t.Fatalf("second question got no excerpt: %+v", got)
	}
}

func TestMissedTexts(t *testing.T) {
	qs := []domain.QuizQuestion{
		{Question: "Q0", Explanation: "because zero"},
		{Question: "Q1"},
	}
	got := missedTexts(qs, []int{1, 0, 7})
	if len(got) != 2 || got[0] != "Q1" || got[1] != "Q0 because zero" {
		t.Fatalf("missedTexts=%q", got)
	}
}
