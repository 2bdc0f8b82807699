package reviewq

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/reviewq/reviewq/model/suggestion"
	"github.com/reviewq/reviewq/policy"
	"github.com/reviewq/reviewq/service/archive"
	afs "github.com/reviewq/reviewq/service/archive/fs"
	amemory "github.com/reviewq/reviewq/service/archive/memory"
	"github.com/reviewq/reviewq/service/escalation"
	"github.com/reviewq/reviewq/service/extractor"
	"github.com/reviewq/reviewq/service/messaging"
	mmemory "github.com/reviewq/reviewq/service/messaging/memory"
	"github.com/reviewq/reviewq/service/notifier"
	snotifier "github.com/reviewq/reviewq/service/notifier/slack"
	"github.com/reviewq/reviewq/service/queue"
	qfs "github.com/reviewq/reviewq/service/queue/fs"
	qmemory "github.com/reviewq/reviewq/service/queue/memory"
	"github.com/reviewq/reviewq/service/tasksink"
	tmemory "github.com/reviewq/reviewq/service/tasksink/memory"
	"github.com/reviewq/reviewq/service/workflow"
)

// Service is the top-level façade wiring the review pipeline together:
// extractor → intake policy → queue → workflow → (on approval) archive and
// task sink, with the escalation monitor sweeping the queue.
type Service struct {
	config    *Config
	store     queue.Store
	events    messaging.Queue[workflow.Event]
	workflow  *workflow.Service
	archive   archive.Service
	taskSink  tasksink.Sink
	notifier  notifier.Notifier
	extractor extractor.Extractor
	monitor   *escalation.Monitor
	intake    *policy.Policy
}

// New creates a service. Without options everything runs in memory.
func New(options ...Option) *Service {
	ret := &Service{config: DefaultConfig()}
	ret.init(options)
	return ret
}

// NewFromConfig creates a service from a validated configuration plus
// optional overrides.
func NewFromConfig(cfg *Config, options ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return New(append([]Option{WithConfig(cfg)}, options...)...), nil
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()
	s.workflow = workflow.New(s.store, workflow.WithEventQueue(s.events))
	s.monitor = escalation.New(s.store,
		escalation.WithThreshold(s.config.Escalation.ThresholdDuration()),
		escalation.WithNotifier(s.notifier),
		escalation.WithEventQueue(s.events),
	)
}

func (s *Service) ensureBaseSetup() {
	if s.store == nil {
		if s.config.Queue.BasePath != "" {
			s.store = qfs.New(s.config.Queue.BasePath)
		} else {
			s.store = qmemory.New()
		}
	}
	if s.events == nil {
		s.events = mmemory.NewQueue[workflow.Event](mmemory.DefaultConfig())
	}
	if s.archive == nil {
		if s.config.Archive.BasePath != "" {
			s.archive = afs.New(s.config.Archive.BasePath)
		} else {
			s.archive = amemory.New()
		}
	}
	if s.taskSink == nil {
		s.taskSink = tmemory.New()
	}
	if s.notifier == nil {
		if s.config.Notifier.SlackBotToken != "" {
			s.notifier = snotifier.New(s.config.Notifier.SlackBotToken, s.config.Notifier.SlackChannelID)
		} else {
			s.notifier = notifier.Log{}
		}
	}
	if s.extractor == nil {
		s.extractor = extractor.New()
	}
	if s.intake == nil {
		s.intake = s.config.Intake
	}
}

// Workflow returns the approval workflow service.
func (s *Service) Workflow() *workflow.Service { return s.workflow }

// Queue returns the underlying queue store.
func (s *Service) Queue() queue.Store { return s.store }

// Events returns the workflow event queue.
func (s *Service) Events() messaging.Queue[workflow.Event] { return s.events }

// Archive returns the decision archive.
func (s *Service) Archive() archive.Service { return s.archive }

// TaskSink returns the task tracker sink.
func (s *Service) TaskSink() tasksink.Sink { return s.taskSink }

// Monitor returns the escalation monitor.
func (s *Service) Monitor() *escalation.Monitor { return s.monitor }

// ProcessTranscript extracts suggestions from a meeting transcript, applies
// the intake policy and enqueues what passes for human review. Nothing is
// auto-approved.
func (s *Service) ProcessTranscript(ctx context.Context, transcript, meetingID string, attendees []extractor.Attendee) ([]*queue.Item, error) {
	decisions, err := s.extractor.ExtractDecisions(ctx, transcript, meetingID)
	if err != nil {
		return nil, fmt.Errorf("failed to extract decisions: %w", err)
	}
	tasks, err := s.extractor.ExtractTasks(ctx, transcript, meetingID, attendees)
	if err != nil {
		return nil, fmt.Errorf("failed to extract tasks: %w", err)
	}
	return s.ProcessSuggestions(ctx, decisions, tasks, meetingID)
}

// ProcessSuggestions applies the intake policy and submits the admitted
// suggestions. The context policy, when present, overrides the configured
// one.
func (s *Service) ProcessSuggestions(ctx context.Context, decisions []*suggestion.Decision, tasks []*suggestion.Task, meetingID string) ([]*queue.Item, error) {
	intake := policy.FromContext(ctx)
	if intake == nil {
		intake = s.intake
	}

	admittedDecisions := make([]*suggestion.Decision, 0, len(decisions))
	for _, d := range decisions {
		if intake.AdmitsDecision(d) {
			admittedDecisions = append(admittedDecisions, d)
		}
	}
	admittedTasks := make([]*suggestion.Task, 0, len(tasks))
	for _, t := range tasks {
		if intake.AdmitsTask(t) {
			admittedTasks = append(admittedTasks, t)
		}
	}
	return s.workflow.Submit(ctx, admittedDecisions, admittedTasks, meetingID)
}

// StartDispatcher consumes workflow events until the context is cancelled,
// routing approved decisions to the archive and approved tasks to the task
// sink. Each event is handled exactly once; failures are nacked so the
// message queue retries them.
func (s *Service) StartDispatcher(ctx context.Context) {
	go func() {
		for {
			message, err := s.events.Consume(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				log.Printf("dispatcher: consume failed: %v", err)
				continue
			}
			event := message.T()
			if err := s.dispatch(ctx, event); err != nil {
				log.Printf("dispatcher: failed to handle %s for %s: %v", event.Topic, event.Item.ID, err)
				_ = message.Nack(err)
				continue
			}
			_ = message.Ack()
		}
	}()
}

// dispatch routes one committed event. Only approvals have side effects; the
// remaining topics are informational.
func (s *Service) dispatch(ctx context.Context, event *workflow.Event) error {
	if event.Topic != workflow.TopicItemApproved || event.Item == nil {
		return nil
	}
	switch event.Item.Kind {
	case queue.KindDecision:
		entry, err := s.archive.Archive(ctx, event.Item.Decision, event.Item.MeetingID)
		if err != nil {
			return fmt.Errorf("failed to archive decision: %w", err)
		}
		log.Printf("archived decision %s as %s", event.Item.ID, entry.ID)
	case queue.KindTask:
		req, err := tasksink.FromSuggestion(event.Item.Task, event.Item.MeetingID)
		if err != nil {
			return fmt.Errorf("failed to build task request: %w", err)
		}
		created, err := s.taskSink.CreateTask(ctx, req)
		if err != nil {
			return fmt.Errorf("failed to create task: %w", err)
		}
		log.Printf("created task %s from %s", created.ID, event.Item.ID)
	}
	return nil
}

// StartEscalation runs the escalation sweep on the configured cron schedule
// until the context is cancelled. A no-op when the schedule is empty.
func (s *Service) StartEscalation(ctx context.Context) error {
	schedule := s.config.Escalation.Schedule
	if schedule == "" {
		log.Println("escalation sweep disabled (no schedule configured)")
		return nil
	}
	return s.monitor.Start(ctx, schedule)
}
