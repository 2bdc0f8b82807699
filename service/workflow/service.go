package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/reviewq/reviewq/internal/clock"
	"github.com/reviewq/reviewq/model/suggestion"
	"github.com/reviewq/reviewq/service/dao"
	"github.com/reviewq/reviewq/service/messaging"
	"github.com/reviewq/reviewq/service/queue"
	"github.com/reviewq/reviewq/tracing"
)

// Service is the approval workflow – the only component permitted to apply
// suggestion-level transitions. It validates preconditions, applies the
// transition functions, keeps the queue envelope and the wrapped suggestion
// in sync and returns structured Results for every expected failure.
//
// Every mutating operation runs its read-validate-write sequence under a
// store-wide mutex: the queue's UpdateStatus primitive performs no
// compare-and-swap, so without the lock two concurrent approvals of the same
// item could both succeed from a stale Pending read.
type Service struct {
	store  queue.Store
	events messaging.Queue[Event]
	mu     sync.Mutex
}

// Option customises the workflow service.
type Option func(*Service)

// WithEventQueue attaches a queue on which the service publishes an Event
// after every committed transition.
func WithEventQueue(q messaging.Queue[Event]) Option {
	return func(s *Service) { s.events = q }
}

// New creates a workflow service on top of the supplied queue store.
func New(store queue.Store, options ...Option) *Service {
	ret := &Service{store: store}
	for _, option := range options {
		option(ret)
	}
	return ret
}

/* ---------------- submission -------------------------------------------- */

// SubmitDecision enqueues a decision suggestion for review.
func (s *Service) SubmitDecision(ctx context.Context, d *suggestion.Decision, meetingID string) (*queue.Item, error) {
	item, err := s.store.AddDecision(ctx, d, meetingID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, TopicItemSubmitted, item, "")
	return item, nil
}

// SubmitTask enqueues a task suggestion for review.
func (s *Service) SubmitTask(ctx context.Context, t *suggestion.Task, meetingID string) (*queue.Item, error) {
	item, err := s.store.AddTask(ctx, t, meetingID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, TopicItemSubmitted, item, "")
	return item, nil
}

// Submit enqueues a whole batch for one meeting and returns the created
// envelopes in submission order: decisions first, then tasks.
func (s *Service) Submit(ctx context.Context, decisions []*suggestion.Decision, tasks []*suggestion.Task, meetingID string) ([]*queue.Item, error) {
	items := make([]*queue.Item, 0, len(decisions)+len(tasks))
	for _, d := range decisions {
		item, err := s.SubmitDecision(ctx, d, meetingID)
		if err != nil {
			return items, fmt.Errorf("failed to submit decision %s: %w", d.ID, err)
		}
		items = append(items, item)
	}
	for _, t := range tasks {
		item, err := s.SubmitTask(ctx, t, meetingID)
		if err != nil {
			return items, fmt.Errorf("failed to submit task %s: %w", t.ID, err)
		}
		items = append(items, item)
	}
	return items, nil
}

/* ---------------- review operations ------------------------------------- */

// ApproveDecisionRequest carries the input of ApproveDecision. ModifiedText,
// when set and different from the original, is applied as an edit before the
// approval so both versions survive in the audit trail.
type ApproveDecisionRequest struct {
	ItemID       string `json:"itemId"`
	ApprovedBy   string `json:"approvedBy"`
	ModifiedText string `json:"modifiedText,omitempty"`
}

// ApproveDecision approves a pending decision item.
func (s *Service) ApproveDecision(ctx context.Context, req ApproveDecisionRequest) (Result, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.approveDecision", "INTERNAL")
	defer span.OnDone()

	s.mu.Lock()
	defer s.mu.Unlock()

	item, result, err := s.pending(ctx, req.ItemID)
	if item == nil {
		return result, err
	}
	if item.Kind != queue.KindDecision {
		return failed(MsgNotDecision), nil
	}

	d := item.Decision
	if req.ModifiedText != "" && req.ModifiedText != d.DecisionText {
		d = d.ApproveModified(req.ApprovedBy, req.ModifiedText)
	} else {
		d = d.Approve(req.ApprovedBy)
	}

	item.Decision = d
	updated, err := s.commit(ctx, item, queue.StatusApproved)
	if err != nil {
		span.SetStatus(err)
		return Result{}, err
	}
	s.publish(ctx, TopicItemApproved, updated, req.ApprovedBy)
	return succeeded(updated), nil
}

// ApproveTaskRequest carries the input of ApproveTask. FinalAssignee is
// mandatory; FinalDueDate defaults to the suggested due date when nil.
type ApproveTaskRequest struct {
	ItemID              string     `json:"itemId"`
	ApprovedBy          string     `json:"approvedBy"`
	FinalAssignee       string     `json:"finalAssignee"`
	FinalDueDate        *time.Time `json:"finalDueDate,omitempty"`
	ModifiedDescription string     `json:"modifiedDescription,omitempty"`
}

// ApproveTask approves a pending task item.
func (s *Service) ApproveTask(ctx context.Context, req ApproveTaskRequest) (Result, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.approveTask", "INTERNAL")
	defer span.OnDone()

	s.mu.Lock()
	defer s.mu.Unlock()

	item, result, err := s.pending(ctx, req.ItemID)
	if item == nil {
		return result, err
	}
	if item.Kind != queue.KindTask {
		return failed(MsgNotTask), nil
	}
	if strings.TrimSpace(req.FinalAssignee) == "" {
		return failed(MsgAssigneeRequired), nil
	}

	t := item.Task
	if req.ModifiedDescription != "" && req.ModifiedDescription != t.Description {
		t = t.Modify(req.ModifiedDescription, req.FinalAssignee, req.FinalDueDate)
	}
	t = t.Approve(req.ApprovedBy, req.FinalAssignee, req.FinalDueDate)

	item.Task = t
	updated, err := s.commit(ctx, item, queue.StatusApproved)
	if err != nil {
		span.SetStatus(err)
		return Result{}, err
	}
	s.publish(ctx, TopicItemApproved, updated, req.ApprovedBy)
	return succeeded(updated), nil
}

// RejectRequest carries the input of Reject, which works uniformly for both
// item kinds. The rejection reason is mandatory.
type RejectRequest struct {
	ItemID          string `json:"itemId"`
	RejectedBy      string `json:"rejectedBy"`
	RejectionReason string `json:"rejectionReason"`
}

// Reject rejects a pending item of either kind. The acting reviewer is
// recorded in the suggestion's ApprovedBy field (inherited audit-field
// naming – see the suggestion package).
func (s *Service) Reject(ctx context.Context, req RejectRequest) (Result, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.reject", "INTERNAL")
	defer span.OnDone()

	// Reason validation precedes everything else so the failure is stable
	// regardless of item state.
	if strings.TrimSpace(req.RejectionReason) == "" {
		return failed(MsgReasonRequired), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, result, err := s.pending(ctx, req.ItemID)
	if item == nil {
		return result, err
	}

	switch item.Kind {
	case queue.KindDecision:
		item.Decision = item.Decision.Reject(req.RejectedBy, req.RejectionReason)
	case queue.KindTask:
		item.Task = item.Task.Reject(req.RejectedBy, req.RejectionReason)
	}

	updated, err := s.commit(ctx, item, queue.StatusRejected)
	if err != nil {
		span.SetStatus(err)
		return Result{}, err
	}
	s.publish(ctx, TopicItemRejected, updated, req.RejectedBy)
	return succeeded(updated), nil
}

// ModifyDecisionRequest carries the input of ModifyDecision.
type ModifyDecisionRequest struct {
	ItemID       string `json:"itemId"`
	ModifiedText string `json:"modifiedText"`
}

// ModifyDecision edits a pending decision without deciding it: the item
// stays Pending, the original text is preserved and only ModifiedText is
// populated.
func (s *Service) ModifyDecision(ctx context.Context, req ModifyDecisionRequest) (Result, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.modifyDecision", "INTERNAL")
	defer span.OnDone()

	s.mu.Lock()
	defer s.mu.Unlock()

	item, result, err := s.pending(ctx, req.ItemID)
	if item == nil {
		return result, err
	}
	if item.Kind != queue.KindDecision {
		return failed(MsgNotDecision), nil
	}

	item.Decision = item.Decision.Modify(req.ModifiedText)
	item.UpdatedAt = clock.Now()
	if err := s.store.Save(ctx, item); err != nil {
		span.SetStatus(err)
		return Result{}, err
	}
	s.publish(ctx, TopicItemModified, item, "")
	return succeeded(item), nil
}

// ModifyTaskRequest carries the input of ModifyTask. Assignee and due date
// fall back to the previously suggested values when not set.
type ModifyTaskRequest struct {
	ItemID              string     `json:"itemId"`
	ModifiedDescription string     `json:"modifiedDescription"`
	ModifiedAssignee    string     `json:"modifiedAssignee,omitempty"`
	ModifiedDueDate     *time.Time `json:"modifiedDueDate,omitempty"`
}

// ModifyTask edits a pending task without deciding it.
func (s *Service) ModifyTask(ctx context.Context, req ModifyTaskRequest) (Result, error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.modifyTask", "INTERNAL")
	defer span.OnDone()

	s.mu.Lock()
	defer s.mu.Unlock()

	item, result, err := s.pending(ctx, req.ItemID)
	if item == nil {
		return result, err
	}
	if item.Kind != queue.KindTask {
		return failed(MsgNotTask), nil
	}

	item.Task = item.Task.Modify(req.ModifiedDescription, req.ModifiedAssignee, req.ModifiedDueDate)
	item.UpdatedAt = clock.Now()
	if err := s.store.Save(ctx, item); err != nil {
		span.SetStatus(err)
		return Result{}, err
	}
	s.publish(ctx, TopicItemModified, item, "")
	return succeeded(item), nil
}

/* ---------------- queries ------------------------------------------------ */

// PendingForMeeting returns pending items belonging to one meeting.
func (s *Service) PendingForMeeting(ctx context.Context, meetingID string) ([]*queue.Item, error) {
	return s.store.List(ctx, &queue.Filter{Status: queue.StatusPending, MeetingID: meetingID})
}

// AllPending returns every pending item in insertion order.
func (s *Service) AllPending(ctx context.Context) ([]*queue.Item, error) {
	return s.store.List(ctx, &queue.Filter{Status: queue.StatusPending})
}

// PendingDecisions returns pending decision items.
func (s *Service) PendingDecisions(ctx context.Context) ([]*queue.Item, error) {
	return s.store.List(ctx, &queue.Filter{Status: queue.StatusPending, Kind: queue.KindDecision})
}

// PendingTasks returns pending task items.
func (s *Service) PendingTasks(ctx context.Context) ([]*queue.Item, error) {
	return s.store.List(ctx, &queue.Filter{Status: queue.StatusPending, Kind: queue.KindTask})
}

/* ---------------- batch -------------------------------------------------- */

// BatchApprove approves each listed item independently: a missing item,
// wrong state, or missing task assignee fails only that id's Result. The
// batch is not atomic, so reviewers can retry just the failed subset.
func (s *Service) BatchApprove(ctx context.Context, itemIDs []string, approvedBy string, taskAssignees map[string]string) ([]Result, error) {
	results := make([]Result, 0, len(itemIDs))
	for _, itemID := range itemIDs {
		item, err := s.store.Get(ctx, itemID)
		if err != nil {
			if errors.Is(err, dao.ErrNotFound) {
				results = append(results, failed(MsgNotFound))
				continue
			}
			return results, err
		}

		var result Result
		switch item.Kind {
		case queue.KindDecision:
			result, err = s.ApproveDecision(ctx, ApproveDecisionRequest{ItemID: itemID, ApprovedBy: approvedBy})
		case queue.KindTask:
			assignee, ok := taskAssignees[itemID]
			if !ok || strings.TrimSpace(assignee) == "" {
				results = append(results, failed(MsgAssigneeRequired))
				continue
			}
			result, err = s.ApproveTask(ctx, ApproveTaskRequest{ItemID: itemID, ApprovedBy: approvedBy, FinalAssignee: assignee})
		}
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

/* ---------------- internals ---------------------------------------------- */

// pending loads an item and checks the common precondition: it must exist
// and still be Pending. On a business failure it returns a nil item plus the
// Result to hand back.
func (s *Service) pending(ctx context.Context, id string) (*queue.Item, Result, error) {
	item, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) || errors.Is(err, dao.ErrInvalidID) {
			return nil, failed(MsgNotFound), nil
		}
		return nil, Result{}, err
	}
	if item.Status != queue.StatusPending {
		return nil, failed(MsgAlreadyProcessed), nil
	}
	return item, Result{}, nil
}

// commit persists the transitioned suggestion and flips the envelope status
// through the queue's low-level primitive. Both writes happen under the
// service mutex, giving the read-validate-write sequence its required
// atomicity.
func (s *Service) commit(ctx context.Context, item *queue.Item, status queue.Status) (*queue.Item, error) {
	if err := s.store.Save(ctx, item); err != nil {
		return nil, err
	}
	return s.store.UpdateStatus(ctx, item.ID, status)
}

func (s *Service) publish(ctx context.Context, topic string, item *queue.Item, actor string) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(ctx, &Event{Topic: topic, Item: item, Actor: actor, At: clock.Now()})
}
