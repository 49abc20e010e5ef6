package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"autopost/domain/model"

	"github.com/stretchr/testify/mock"
)

// memJobs is an in-memory job store with the same conditional transitions as the mongo one.
type memJobs struct {
	mu   sync.Mutex
	jobs map[string]*model.GroupPostJob

	saveErr     error
	completeErr error
	saves       int
	onSave      func(id string)
}

func newMemJobs() *memJobs { return &memJobs{jobs: map[string]*model.GroupPostJob{}} }

func cloneJob(j *model.GroupPostJob) *model.GroupPostJob {
	c := *j
	c.Targets = append([]string(nil), j.Targets...)
	c.Results = append([]model.TargetResult{}, j.Results...)
	return &c
}

func (m *memJobs) put(j *model.GroupPostJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[j.ID] = cloneJob(j)
}

func (m *memJobs) get(id string) *model.GroupPostJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil
	}
	return cloneJob(j)
}

func (m *memJobs) setStatus(id string, status model.JobStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[id].Status = status
}

func (m *memJobs) Create(_ context.Context, job *model.GroupPostJob) error {
	m.put(job)
	return nil
}

func (m *memJobs) GetByID(_ context.Context, id string) (*model.GroupPostJob, error) {
	if j := m.get(id); j != nil {
		return j, nil
	}
	return nil, model.ErrJobNotFound
}

func (m *memJobs) ListByOwner(_ context.Context, owner string) ([]*model.GroupPostJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.GroupPostJob{}
	for _, j := range m.jobs {
		if j.Owner == owner {
			out = append(out, cloneJob(j))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	return out, nil
}

func (m *memJobs) active(id string, statuses ...model.JobStatus) (*model.GroupPostJob, bool) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	for _, s := range statuses {
		if j.Status == s {
			return j, true
		}
	}
	return nil, false
}

func (m *memJobs) MarkProcessing(_ context.Context, id string, startedAt time.Time) (*model.GroupPostJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.active(id, model.JobStatusPending)
	if !ok {
		return nil, model.ErrJobNotActive
	}
	j.Status = model.JobStatusProcessing
	j.StartedAt = &startedAt
	return cloneJob(j), nil
}

func (m *memJobs) IsProcessing(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active(id, model.JobStatusProcessing)
	return ok, nil
}

func (m *memJobs) SaveProgress(_ context.Context, id string, p model.Progress) error {
	m.mu.Lock()
	if m.saveErr != nil {
		m.mu.Unlock()
		return m.saveErr
	}
	j, ok := m.active(id, model.JobStatusProcessing)
	if !ok {
		m.mu.Unlock()
		return model.ErrJobNotActive
	}
	j.Results, j.SuccessCount, j.FailureCount = p.Results, p.SuccessCount, p.FailureCount
	m.saves++
	hook := m.onSave
	m.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	return nil
}

func (m *memJobs) Complete(_ context.Context, id string, p model.Progress, completedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.completeErr != nil {
		return m.completeErr
	}
	j, ok := m.active(id, model.JobStatusProcessing)
	if !ok {
		return model.ErrJobNotActive
	}
	j.Results, j.SuccessCount, j.FailureCount = p.Results, p.SuccessCount, p.FailureCount
	j.Status = model.JobStatusCompleted
	j.CompletedAt = &completedAt
	return nil
}

func (m *memJobs) Fail(_ context.Context, id string, p model.Progress, completedAt time.Time) (*model.GroupPostJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.active(id, model.JobStatusPending, model.JobStatusProcessing)
	if !ok {
		return nil, model.ErrJobNotActive
	}
	j.Results, j.SuccessCount, j.FailureCount = p.Results, p.SuccessCount, p.FailureCount
	j.Status = model.JobStatusFailed
	j.CompletedAt = &completedAt
	return cloneJob(j), nil
}

func (m *memJobs) MarkCanceled(_ context.Context, id string) (*model.GroupPostJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.active(id, model.JobStatusPending, model.JobStatusProcessing)
	if !ok {
		return nil, model.ErrJobNotActive
	}
	j.Status = model.JobStatusCanceled
	return cloneJob(j), nil
}

func (m *memJobs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[id]; !ok {
		return model.ErrJobNotFound
	}
	delete(m.jobs, id)
	return nil
}

func (m *memJobs) DeleteFinishedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, j := range m.jobs {
		finished := j.Status == model.JobStatusCompleted || j.Status == model.JobStatusFailed
		if finished && j.CompletedAt != nil && j.CompletedAt.Before(cutoff) {
			delete(m.jobs, id)
			n++
		}
	}
	return n, nil
}

// memUsers holds balances and applies the same guard as the conditional update.
type memUsers struct {
	mu       sync.Mutex
	balances map[string]int
	incErr   error
}

func newMemUsers(balances map[string]int) *memUsers { return &memUsers{balances: balances} }

func (m *memUsers) balance(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[id]
}

func (m *memUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return &model.User{ID: id, Balance: b}, nil
}

func (m *memUsers) DecrementBalance(_ context.Context, id string, amount int) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.balances[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	if b < amount {
		return nil, model.ErrInsufficientBalance
	}
	m.balances[id] = b - amount
	return &model.User{ID: id, Balance: b - amount}, nil
}

func (m *memUsers) IncrementBalance(ctx context.Context, id string, amount int) (*model.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incErr != nil {
		return nil, m.incErr
	}
	b, ok := m.balances[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	m.balances[id] = b + amount
	return &model.User{ID: id, Balance: b + amount}, nil
}

type memTransactions struct {
	mu   sync.Mutex
	list []*model.PointTransaction
	err  error
}

func (m *memTransactions) Create(_ context.Context, tx *model.PointTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.list = append(m.list, tx)
	return nil
}

func (m *memTransactions) ListByOwner(_ context.Context, owner string, limit int) ([]*model.PointTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.PointTransaction{}
	for i := len(m.list) - 1; i >= 0 && len(out) < limit; i-- {
		if m.list[i].Owner == owner {
			out = append(out, m.list[i])
		}
	}
	return out, nil
}

// refunds sums the refund rows of a job.
func (m *memTransactions) refunds(jobID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, tx := range m.list {
		if tx.JobID == jobID && tx.Kind == model.TransactionRefund {
			total += tx.Amount
		}
	}
	return total
}

type memAudits struct {
	mu      sync.Mutex
	actions []*model.AuditAction
	err     error
}

func (m *memAudits) Create(_ context.Context, a *model.AuditAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.actions = append(m.actions, a)
	return nil
}

func (m *memAudits) byAction(action string) []*model.AuditAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AuditAction
	for _, a := range m.actions {
		if a.Action == action {
			out = append(out, a)
		}
	}
	return out
}

type memHistory struct {
	mu      sync.Mutex
	entries []*model.PostHistory
	err     error
}

func (m *memHistory) Create(_ context.Context, e *model.PostHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memHistory) ListByOwner(_ context.Context, owner string, limit int) ([]*model.PostHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.PostHistory{}
	for _, e := range m.entries {
		if e.Owner == owner && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memHistory) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	var n int64
	for _, e := range m.entries {
		if e.CreatedAt.Before(cutoff) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.entries = kept
	return n, nil
}

type posterCall struct {
	GroupID string
	Message string
	Link    string
}

// scriptedPoster answers each call with the next scripted reply; the last reply repeats.
type scriptedPoster struct {
	mu      sync.Mutex
	replies []func(ctx context.Context) (model.PostResult, error)
	calls   []posterCall
}

func (p *scriptedPoster) Post(ctx context.Context, groupID string, content model.PostContent, _ string) (model.PostResult, error) {
	p.mu.Lock()
	p.calls = append(p.calls, posterCall{GroupID: groupID, Message: content.Message, Link: content.Link})
	idx := len(p.calls) - 1
	if idx >= len(p.replies) {
		idx = len(p.replies) - 1
	}
	reply := p.replies[idx]
	p.mu.Unlock()
	return reply(ctx)
}

func (p *scriptedPoster) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

func okReply(id string) func(context.Context) (model.PostResult, error) {
	return func(context.Context) (model.PostResult, error) {
		return model.PostResult{Success: true, PostID: id, StatusCode: 200}, nil
	}
}

func providerErrReply(status int, msg string) func(context.Context) (model.PostResult, error) {
	return func(context.Context) (model.PostResult, error) {
		return model.PostResult{StatusCode: status, Error: msg}, nil
	}
}

func transportErrReply(err error) func(context.Context) (model.PostResult, error) {
	return func(context.Context) (model.PostResult, error) {
		return model.PostResult{}, err
	}
}

var errDatabaseDown = errors.New("database down")

type MockEventSink struct {
	mock.Mock
}

func (m *MockEventSink) Name() string { return "mock" }

func (m *MockEventSink) Handle(ctx context.Context, event model.JobFinishedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) Start(jobID string) {
	m.Called(jobID)
}

func (m *MockRunner) Stop(ctx context.Context, jobID string) bool {
	args := m.Called(ctx, jobID)
	return args.Bool(0)
}

func (m *MockRunner) Shutdown(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockCancelBus struct {
	mock.Mock
}

func (m *MockCancelBus) Publish(ctx context.Context, jobID string) error {
	args := m.Called(ctx, jobID)
	return args.Error(0)
}

func (m *MockCancelBus) Subscribe(ctx context.Context, handle func(jobID string)) error {
	args := m.Called(ctx, handle)
	return args.Error(0)
}
