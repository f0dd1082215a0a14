package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Input defaults and bounds
const (
	DefaultCount    = 2
	MinCount        = 1
	MaxCount        = 10
	DefaultLang     = "en"
	DefaultStyle    = "poetic"
	MaxStyles       = 10
	MaxFieldLength  = 64
	MaxStoryRunes   = 150
	MaxErrorMessage = 500
)

// Gender preferences accepted in TaskInput.Genders.
var validGenders = map[string]bool{
	"male":    true,
	"female":  true,
	"neutral": true,
}

// SlugPattern is the format every task slug satisfies.
var SlugPattern = regexp.MustCompile(`^[a-z0-9-]{1,64}$`)

// Task-specific validation errors
var (
	ErrInvalidSlug         = errors.New("task slug must match ^[a-z0-9-]{1,64}$")
	ErrInvalidTaskStatus   = errors.New("invalid task status")
	ErrInconsistentOutcome = errors.New("task outcome does not match its status")
	ErrTaskNotPending      = errors.New("task already reached a final status")
	ErrEmptyResultName     = errors.New("name result must include a name")
)

// TaskInput holds the validated creation parameters of a task.
// It is immutable once the task is created.
type TaskInput struct {
	Style    string   `json:"style,omitempty"`
	YourName string   `json:"yourName,omitempty"`
	Genders  []string `json:"genders,omitempty"`
	Styles   []string `json:"styles,omitempty"`
	Count    int      `json:"count"`
	Lang     string   `json:"lang"`
}

// Normalized returns a copy with surrounding whitespace trimmed and defaults
// applied for count and lang.
func (in TaskInput) Normalized() TaskInput {
	out := TaskInput{
		Style:    strings.TrimSpace(in.Style),
		YourName: strings.TrimSpace(in.YourName),
		Count:    in.Count,
		Lang:     strings.TrimSpace(in.Lang),
	}
	for _, g := range in.Genders {
		out.Genders = append(out.Genders, strings.ToLower(strings.TrimSpace(g)))
	}
	for _, s := range in.Styles {
		out.Styles = append(out.Styles, strings.TrimSpace(s))
	}
	if out.Count == 0 {
		out.Count = DefaultCount
	}
	if out.Lang == "" {
		out.Lang = DefaultLang
	}
	return out
}

// Validate checks the input against the accepted value ranges.
// All failures wrap ErrValidation.
func (in TaskInput) Validate() error {
	if in.Count < MinCount || in.Count > MaxCount {
		return fmt.Errorf("%w: count must be between %d and %d", ErrValidation, MinCount, MaxCount)
	}
	for _, g := range in.Genders {
		if !validGenders[g] {
			return fmt.Errorf("%w: unsupported gender %q", ErrValidation, g)
		}
	}
	if len(in.Styles) > MaxStyles {
		return fmt.Errorf("%w: at most %d styles are allowed", ErrValidation, MaxStyles)
	}
	for _, s := range in.Styles {
		if s == "" {
			return fmt.Errorf("%w: styles must not contain empty values", ErrValidation)
		}
		if utf8.RuneCountInString(s) > MaxFieldLength {
			return fmt.Errorf("%w: style is too long", ErrValidation)
		}
	}
	if utf8.RuneCountInString(in.Style) > MaxFieldLength {
		return fmt.Errorf("%w: style is too long", ErrValidation)
	}
	if utf8.RuneCountInString(in.YourName) > MaxFieldLength {
		return fmt.Errorf("%w: yourName is too long", ErrValidation)
	}
	if in.Lang == "" || len(in.Lang) > 16 {
		return fmt.Errorf("%w: lang must be a short language code", ErrValidation)
	}
	return nil
}

// PreferredStyle returns the explicit style, the first listed style, or the default.
func (in TaskInput) PreferredStyle() string {
	if in.Style != "" {
		return in.Style
	}
	if len(in.Styles) > 0 {
		return in.Styles[0]
	}
	return DefaultStyle
}

// SlugHint is the human-readable seed used when allocating the task slug:
// the requested name when given, otherwise the preferred style.
func (in TaskInput) SlugHint() string {
	if in.YourName != "" {
		return in.YourName
	}
	if in.Style != "" {
		return in.Style
	}
	if len(in.Styles) > 0 {
		return in.Styles[0]
	}
	return ""
}

// NameResult is the payload produced by the generation engine.
type NameResult struct {
	Style   string `json:"style"`
	Name    string `json:"name"`
	Meaning string `json:"meaning"`
	Story   string `json:"story"`
}

// Validate checks that the result carries a name.
func (r *NameResult) Validate() error {
	if r == nil || strings.TrimSpace(r.Name) == "" {
		return ErrEmptyResultName
	}
	return nil
}

// Outcome is the single final mutation applied to a pending task.
type Outcome struct {
	Status TaskStatus
	Result *NameResult
	Error  string
}

// Completed builds a successful outcome.
func Completed(result *NameResult) Outcome {
	return Outcome{Status: TaskStatusCompleted, Result: result}
}

// Failed builds a failure outcome with a human-readable cause.
func Failed(cause string) Outcome {
	cause = strings.TrimSpace(cause)
	if cause == "" {
		cause = "generation failed"
	}
	if utf8.RuneCountInString(cause) > MaxErrorMessage {
		cause = string([]rune(cause)[:MaxErrorMessage])
	}
	return Outcome{Status: TaskStatusFailed, Error: cause}
}

// Validate checks that the outcome is final and internally consistent.
func (o Outcome) Validate() error {
	switch o.Status {
	case TaskStatusCompleted:
		if o.Error != "" {
			return ErrInconsistentOutcome
		}
		return o.Result.Validate()
	case TaskStatusFailed:
		if o.Result != nil || o.Error == "" {
			return ErrInconsistentOutcome
		}
		return nil
	default:
		return fmt.Errorf("%w: outcome status must be final, got %q", ErrInvalidTaskStatus, o.Status)
	}
}

// Task is a persisted generation request and its outcome, addressed by slug.
type Task struct {
	Slug      string      `json:"slug"`
	Status    TaskStatus  `json:"status"`
	Input     TaskInput   `json:"input"`
	Result    *NameResult `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Now returns the current UTC time at the precision every store can round-trip.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// NewTask creates a pending task for the given slug and input.
// Returns an error if validation fails.
func NewTask(slug string, input TaskInput) (*Task, error) {
	now := Now()
	task := &Task{
		Slug:      slug,
		Status:    TaskStatusPending,
		Input:     input,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if !SlugPattern.MatchString(t.Slug) {
		return ErrInvalidSlug
	}
	if err := t.Input.Validate(); err != nil {
		return err
	}

	switch t.Status {
	case TaskStatusPending:
		if t.Result != nil || t.Error != "" {
			return ErrInconsistentOutcome
		}
	case TaskStatusCompleted, TaskStatusFailed:
		if err := (Outcome{Status: t.Status, Result: t.Result, Error: t.Error}).Validate(); err != nil {
			return err
		}
	default:
		return ErrInvalidTaskStatus
	}
	return nil
}

// Apply records the final outcome on a pending task and bumps UpdatedAt.
// It fails with ErrTaskNotPending if the task has already been finalised.
func (t *Task) Apply(outcome Outcome, at time.Time) error {
	if t.Status != TaskStatusPending {
		return ErrTaskNotPending
	}
	if err := outcome.Validate(); err != nil {
		return err
	}

	t.Status = outcome.Status
	t.Result = outcome.Result
	t.Error = outcome.Error
	t.UpdatedAt = at.UTC().Truncate(time.Microsecond)
	return nil
}

// Clone returns a deep copy so callers cannot mutate store-owned records.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Input.Genders = append([]string(nil), t.Input.Genders...)
	c.Input.Styles = append([]string(nil), t.Input.Styles...)
	if t.Result != nil {
		r := *t.Result
		c.Result = &r
	}
	return &c
}

// IsValidSlug reports whether s could be a task slug.
func IsValidSlug(s string) bool {
	return SlugPattern.MatchString(s)
}
