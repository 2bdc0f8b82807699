// Package extractor produces decision and task suggestions from meeting
// transcripts using phrase heuristics. It is the suggestion producer in
// front of the review queue: nothing it emits is actionable until a human
// approves it. A model-backed extractor can replace this one behind the
// same interface.
package extractor

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/reviewq/reviewq/internal/clock"
	"github.com/reviewq/reviewq/model/suggestion"
)

// Attendee identifies a meeting participant for assignee matching.
type Attendee struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// Extractor turns a transcript into suggestions.
type Extractor interface {
	ExtractDecisions(ctx context.Context, transcript, meetingID string) ([]*suggestion.Decision, error)
	ExtractTasks(ctx context.Context, transcript, meetingID string, attendees []Attendee) ([]*suggestion.Task, error)
}

type decisionPattern struct {
	re         *regexp.Regexp
	confidence int
}

var decisionPatterns = []decisionPattern{
	{regexp.MustCompile(`(?i)we('ve| have)? decided to`), 85},
	{regexp.MustCompile(`(?i)final decision[:\s]`), 85},
	{regexp.MustCompile(`(?i)the decision is`), 80},
	{regexp.MustCompile(`(?i)it('s| is) agreed that`), 75},
	{regexp.MustCompile(`(?i)we('ll| will) (go with|proceed with)`), 70},
	{regexp.MustCompile(`(?i)let's go with`), 65},
	{regexp.MustCompile(`(?i)approved[:\s]`), 60},
}

type taskPattern struct {
	re         *regexp.Regexp
	confidence int
}

var taskPatterns = []taskPattern{
	{regexp.MustCompile(`(?i)action item[:\s]`), 80},
	{regexp.MustCompile(`(?i)\w+ will (handle|take care of|complete|do|prepare|send|review)`), 75},
	{regexp.MustCompile(`(?i)please (send|prepare|review|complete)`), 70},
	{regexp.MustCompile(`(?i)we need to`), 60},
	{regexp.MustCompile(`(?i)by (monday|tuesday|wednesday|thursday|friday|next week|end of week)`), 55},
}

var dueDateRe = regexp.MustCompile(`(?i)by (monday|tuesday|wednesday|thursday|friday|next week|end of week)`)

// Heuristic is the phrase-pattern extractor.
type Heuristic struct {
	minConfidence int
}

var _ Extractor = (*Heuristic)(nil)

// Option customises the extractor.
type Option func(*Heuristic)

// WithMinConfidence drops suggestions scoring below the threshold.
func WithMinConfidence(min int) Option {
	return func(h *Heuristic) { h.minConfidence = min }
}

// New creates a heuristic extractor. Without options every detected
// suggestion is emitted.
func New(options ...Option) *Heuristic {
	ret := &Heuristic{}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// ExtractDecisions scans the transcript line by line for decision phrases.
// Each matching line yields at most one suggestion carrying the line as
// decision text and the surrounding lines as excerpt.
func (h *Heuristic) ExtractDecisions(ctx context.Context, transcript, meetingID string) ([]*suggestion.Decision, error) {
	source := suggestion.SourceReference{Kind: suggestion.SourceMeeting, SourceID: meetingID}
	lines := strings.Split(transcript, "\n")

	var out []*suggestion.Decision
	for i, line := range lines {
		for _, pattern := range decisionPatterns {
			if !pattern.re.MatchString(line) {
				continue
			}
			if pattern.confidence < h.minConfidence {
				break
			}
			d, err := suggestion.NewDecision("", strings.TrimSpace(line),
				"Discussion leading to this decision", excerpt(lines, i), pattern.confidence, source)
			if err != nil {
				return nil, err
			}
			out = append(out, d)
			break
		}
	}
	return out, nil
}

// ExtractTasks scans the transcript for action-item phrases, matching
// assignees against attendee display names and picking up simple due-date
// mentions ("by friday", "by next week", "by end of week").
func (h *Heuristic) ExtractTasks(ctx context.Context, transcript, meetingID string, attendees []Attendee) ([]*suggestion.Task, error) {
	source := suggestion.SourceReference{Kind: suggestion.SourceMeeting, SourceID: meetingID}
	lines := strings.Split(transcript, "\n")

	var out []*suggestion.Task
	for _, line := range lines {
		for _, pattern := range taskPatterns {
			if !pattern.re.MatchString(line) {
				continue
			}
			if pattern.confidence < h.minConfidence {
				break
			}
			assignee := matchAssignee(line, attendees)
			dueDate := detectDueDate(line, clock.Now())
			task, err := suggestion.NewTask("", strings.TrimSpace(line), assignee, dueDate, pattern.confidence, source)
			if err != nil {
				return nil, err
			}
			out = append(out, task)
			break
		}
	}
	return out, nil
}

// excerpt returns the line plus up to two lines of context on either side.
func excerpt(lines []string, i int) string {
	start := i - 2
	if start < 0 {
		start = 0
	}
	end := i + 3
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

func matchAssignee(line string, attendees []Attendee) string {
	lower := strings.ToLower(line)
	for _, attendee := range attendees {
		if attendee.DisplayName == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(attendee.DisplayName)) {
			return attendee.UserID
		}
	}
	return ""
}

// detectDueDate resolves a "by <day>" mention to the next occurrence of that
// day, "next week" to seven days out and "end of week" to the coming Friday.
func detectDueDate(line string, now time.Time) *time.Time {
	match := dueDateRe.FindStringSubmatch(line)
	if match == nil {
		return nil
	}
	mention := strings.ToLower(match[1])

	var due time.Time
	switch mention {
	case "next week":
		due = now.AddDate(0, 0, 7)
	case "end of week":
		due = nextWeekday(now, time.Friday)
	default:
		weekdays := map[string]time.Weekday{
			"monday":    time.Monday,
			"tuesday":   time.Tuesday,
			"wednesday": time.Wednesday,
			"thursday":  time.Thursday,
			"friday":    time.Friday,
		}
		due = nextWeekday(now, weekdays[mention])
	}
	due = time.Date(due.Year(), due.Month(), due.Day(), 17, 0, 0, 0, due.Location())
	return &due
}

func nextWeekday(now time.Time, day time.Weekday) time.Time {
	offset := (int(day) - int(now.Weekday()) + 7) % 7
	if offset == 0 {
		offset = 7
	}
	return now.AddDate(0, 0, offset)
}
