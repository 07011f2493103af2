package quiz

import (
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/pulseloop-backend/internal/domain"
)

func TestParseTimeRange(t *testing.T) {
	cases := []struct {
		in         string
		start, end int64
		ok         bool
	}{
		{"00:45-01:20", 45_000, 80_000, true},
		{" 3:10 - 3:40 ", 190_000, 220_000, true},
		{"1:02:03-1:02:30", 3_723_000, 3_750_000, true},
		{"01:20-00:45", 0, 0, false},
		{"00:75-01:00", 0, 0, false},
		{"45", 0, 0, false},
		{"aa:bb-cc:dd", 0, 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseTimeRange(tc.in)
		if ok != tc.ok {
			t.Fatalf("ParseTimeRange(%q) ok=%v want %v", tc.in, ok, tc.ok)
		}
		if ok && (got.StartMS != tc.start || got.EndMS != tc.end) {
			t.Fatalf("ParseTimeRange(%q)=%+v", tc.in, got)
		}
	}
	if got, _ := ParseTimeRange("1:02:03-1:02:30"); got.Label != "1:02:03-1:02:30" {
		t.Fatalf("label=%q", got.Label)
	}
}

func TestParseHints_AcceptsMixedTimestampShapes(t *testing.T) {
	raw := "Sure! Here you go:\n" + `{"timestamps":["00:10-00:20",{"start_ms":30000,"end_ms":42000},{"start_ms":9,"end_ms":1}],"concepts":[" rate limits ",""],"articleHighlights":[{"paragraphIndex":-1},{"paragraphIndex":2}]}`
	h, err := parseHints(raw)
	if err != nil {
		t.Fatalf("parseHints: %v", err)
	}
	if len(h.Timestamps) != 2 || h.Timestamps[1].Label != "00:30-00:42" {
		t.Fatalf("timestamps: %+v", h.Timestamps)
	}
	if len(h.Concepts) != 1 || h.Concepts[0] != "rate limits" {
		t.Fatalf("concepts: %q", h.Concepts)
	}
	if len(h.ArticleHighlights) != 1 || h.ArticleHighlights[0].ParagraphIndex != 2 {
		t.Fatalf("highlights: %+v", h.ArticleHighlights)
	}
	if _, err := parseHints("no json here"); err == nil {
		t.Fatalf("expected error without json")
	}
}

func TestFinalizeHints_ArticleKeepsParagraphsInRange(t *testing.T) {
	item := &domain.ContentItem{Type: domain.ContentArticle, Summary: "First.\n\nSecond.\n\nThird."}
	qz := &domain.Quiz{Questions: questionsWithAnswers(0, 0)}
	qz.Questions[1].Question = "Which paragraph?"
	in := hintRequest{Item: item, Quiz: qz, Grade: Grade{Wrong: 1, WrongIndices: []int{1}}}

	h := finalizeHints(domain.ReviewHints{
		ArticleHighlights: []domain.ParagraphRef{{ParagraphIndex: 0}, {ParagraphIndex: 5}},
		Timestamps:        []domain.TimeRange{{StartMS: 0, EndMS: 1000}},
	}, in, 3)
	if len(h.ArticleHighlights) != 1 || h.ArticleHighlights[0].ParagraphIndex != 0 {
		t.Fatalf("highlights: %+v", h.ArticleHighlights)
	}
	if len(h.Timestamps) != 0 {
		t.Fatalf("articles carry no timestamps: %+v", h.Timestamps)
	}
	if len(h.Concepts) != 1 || h.Concepts[0] != "Which paragraph?" {
		t.Fatalf("concepts: %q", h.Concepts)
	}
}

func TestFallbackTimestamps(t *testing.T) {
	cands := []Candidate{
		{Segment: domain.TranscriptSegment{StartMS: 70_000, EndMS: 80_000}, Score: 3},
		{Segment: domain.TranscriptSegment{StartMS: 10_000, EndMS: 20_000}, Score: 2},
		{Segment: domain.TranscriptSegment{StartMS: 90_000, EndMS: 95_000}, Score: 1},
	}
	got := fallbackTimestamps(cands, 2)
	if len(got) != 2 || got[0].Label != "01:10-01:20" || got[1].StartMS != 10_000 {
		t.Fatalf("fallback: %+v", got)
	}
}

func TestParseQuestions_BareArrayAndLimit(t *testing.T) {
	raw := `[
		{"question":" A ","options":[" w","x","y","z"],"correct_answer":1,"explanation":"e"},
		{"question":"B","options":["w","x","y","z"],"correct_answer":"2"},
		{"question":"C","options":["w","x","y","z"],"correct_answer":2},
		{"question":"D","options":["w","x","y",""],"correct_answer":2}
	]`
	got, dropped := parseQuestions(validator.New(), raw, 1)
	if len(got) != 1 || got[0].Question != "A" || got[0].Options[0] != "w" {
		t.Fatalf("questions: %+v", got)
	}
	if dropped != 2 {
		t.Fatalf("dropped=%d want 2", dropped)
	}
	if got, _ := parseQuestions(validator.New(), "garbage", 5); got == nil || len(got) != 0 {
		t.Fatalf("garbage should give an empty, non-nil slice: %#v", got)
	}
}
