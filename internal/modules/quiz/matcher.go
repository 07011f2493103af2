package quiz

import (
	"sort"
	"strings"

	"github.com/yungbote/pulseloop-backend/internal/domain"
)

const (
	bucketMS = 10_000

	// DefaultMaxCandidates caps the holistic pass.
	DefaultMaxCandidates = 20
	// DefaultPerQuestion caps each question in the per-question pass.
	DefaultPerQuestion = 2

	minTokenLen = 4
)

// Candidate is a transcript segment chosen as likely review material.
type Candidate struct {
	Index   int
	Segment domain.TranscriptSegment
	Score   int
}

type bucket struct{ start, end int64 }

func bucketOf(s domain.TranscriptSegment) bucket {
	return bucket{start: s.StartMS / bucketMS, end: s.EndMS / bucketMS}
}

// Tokenize returns the set of lowercase ASCII-letter words longer than three characters.
func Tokenize(text string) map[string]struct{} {
	out := map[string]struct{}{}
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r < 'a' || r > 'z'
	})
	for _, w := range words {
		if len(w) >= minTokenLen {
			out[w] = struct{}{}
		}
	}
	return out
}

func overlap(tokens map[string]struct{}, text string) int {
	if len(tokens) == 0 {
		return 0
	}
	n := 0
	for w := range Tokenize(text) {
		if _, ok := tokens[w]; ok {
			n++
		}
	}
	return n
}

// rank scores every segment against tokens and returns those with a positive score,
// best first, earliest first among equals, one per time bucket.
func rank(tokens map[string]struct{}, segments []domain.TranscriptSegment) []Candidate {
	scored := make([]Candidate, 0, len(segments))
	for i, seg := range segments {
		if s := overlap(tokens, seg.Text); s > 0 {
			scored = append(scored, Candidate{Index: i, Segment: seg, Score: s})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Index < scored[j].Index
	})
	return dedupe(scored, nil, 0)
}

// dedupe keeps the first candidate per bucket, skipping buckets already in seen. limit <= 0 means no cap.
func dedupe(in []Candidate, seen map[bucket]struct{}, limit int) []Candidate {
	if seen == nil {
		seen = map[bucket]struct{}{}
	}
	out := make([]Candidate, 0, len(in))
	for _, c := range in {
		if limit > 0 && len(out) >= limit {
			break
		}
		b := bucketOf(c.Segment)
		if _, dup := seen[b]; dup {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, c)
	}
	return out
}

// leading returns up to limit unscored segments in transcript order.
func leading(segments []domain.TranscriptSegment, limit int) []Candidate {
	all := make([]Candidate, 0, len(segments))
	for i, seg := range segments {
		all = append(all, Candidate{Index: i, Segment: seg})
	}
	return dedupe(all, nil, limit)
}

// MatchSegments ranks segments against the union of the missed texts and returns at most limit.
// When no segment shares a token with the texts the leading segments are returned unscored.
func MatchSegments(missed []string, segments []domain.TranscriptSegment, limit int) []Candidate {
	if len(segments) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = DefaultMaxCandidates
	}
	union := map[string]struct{}{}
	for _, text := range missed {
		for w := range Tokenize(text) {
			union[w] = struct{}{}
		}
	}
	ranked := rank(union, segments)
	if len(ranked) == 0 {
		return leading(segments, limit)
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// MatchSegmentsPerQuestion takes the best perQuestion segments for each missed text separately,
// so every missed question gets its own excerpt. Results are capped at limit overall.
func MatchSegmentsPerQuestion(missed []string, segments []domain.TranscriptSegment, perQuestion, limit int) []Candidate {
	if len(segments) == 0 {
		return nil
	}
	if perQuestion <= 0 {
		perQuestion = DefaultPerQuestion
	}
	if limit <= 0 {
		limit = DefaultMaxCandidates
	}
	seen := map[bucket]struct{}{}
	var out []Candidate
	for _, text := range missed {
		picked := dedupe(rank(Tokenize(text), segments), seen, perQuestion)
		out = append(out, picked...)
	}
	if len(out) == 0 {
		return leading(segments, limit)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Index < out[j].Index
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// missedTexts joins question and explanation for each wrong index.
func missedTexts(questions []domain.QuizQuestion, wrong []int) []string {
	out := make([]string, 0, len(wrong))
	for _, i := range wrong {
		if i < 0 || i >= len(questions) {
			continue
		}
		q := questions[i]
		out = append(out, strings.TrimSpace(q.Question+" "+q.Explanation))
	}
	return out
}
