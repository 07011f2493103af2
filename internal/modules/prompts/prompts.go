package prompts

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/pulseloop-backend/internal/platform/openai"
)

type Name string

const (
	QuizQuestions  Name = "quiz_questions"
	RetryQuestions Name = "retry_questions"
	ReviewHints    Name = "review_hints"
	Storyboard     Name = "storyboard"
)

// Input is a superset of the fields any prompt renders.
// Missing fields render empty (missingkey=zero).
type Input struct {
	Title         string
	ContentType   string
	Summary       string
	QuestionCount int

	// Retry + hints
	ConceptsCSV   string
	QuestionsJSON string
	MissedJSON    string
	WrongCount    int
	SegmentsText  string
}

// Entry is one prompt: templates plus sampling settings.
type Entry struct {
	System      string  `yaml:"system"`
	User        string  `yaml:"user"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	ExpectJSON  bool    `yaml:"expect_json"`

	system *template.Template
	user   *template.Template
}

//go:embed prompts.yaml
var catalogYAML []byte

var (
	loadOnce sync.Once
	catalog  map[Name]*Entry
	loadErr  error
)

func load() (map[Name]*Entry, error) {
	loadOnce.Do(func() {
		raw := map[Name]*Entry{}
		if err := yaml.Unmarshal(catalogYAML, &raw); err != nil {
			loadErr = fmt.Errorf("parse prompt catalog: %w", err)
			return
		}
		for name, entry := range raw {
			if entry == nil {
				loadErr = fmt.Errorf("prompt %s: empty entry", name)
				return
			}
			var err error
			if entry.system, err = template.New(string(name) + ".system").Option("missingkey=zero").Parse(entry.System); err != nil {
				loadErr = fmt.Errorf("prompt %s system: %w", name, err)
				return
			}
			if entry.user, err = template.New(string(name) + ".user").Option("missingkey=zero").Parse(entry.User); err != nil {
				loadErr = fmt.Errorf("prompt %s user: %w", name, err)
				return
			}
		}
		catalog = raw
	})
	return catalog, loadErr
}

// Get returns the catalog entry for name.
func Get(name Name) (*Entry, error) {
	entries, err := load()
	if err != nil {
		return nil, err
	}
	entry, ok := entries[name]
	if !ok {
		return nil, fmt.Errorf("unknown prompt %q", name)
	}
	return entry, nil
}

// Build renders name with in into a completion request.
func Build(name Name, in Input) (openai.ChatRequest, error) {
	entry, err := Get(name)
	if err != nil {
		return openai.ChatRequest{}, err
	}
	system, err := render(entry.system, in)
	if err != nil {
		return openai.ChatRequest{}, fmt.Errorf("render %s: %w", name, err)
	}
	user, err := render(entry.user, in)
	if err != nil {
		return openai.ChatRequest{}, fmt.Errorf("render %s: %w", name, err)
	}
	return openai.ChatRequest{
		System:      system,
		User:        user,
		Temperature: entry.Temperature,
		MaxTokens:   entry.MaxTokens,
		ExpectJSON:  entry.ExpectJSON,
	}, nil
}

func render(t *template.Template, in Input) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, in); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
