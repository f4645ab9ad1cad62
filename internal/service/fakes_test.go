package service

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/ignatzorin/dispute-backend/internal/goroutine"
	"github.com/ignatzorin/dispute-backend/internal/models"
	"github.com/ignatzorin/dispute-backend/internal/pkg/apperror"
)

// memStore хранилище в памяти с теми же уникальными ограничениями, что и схема.
// Транзакции сериализуются и откатываются снимком при ошибке.
type memStore struct {
	mu   sync.Mutex
	txMu sync.Mutex

	nextID       int64
	codeSeq      int64
	disputes     map[int64]models.Dispute
	messages     map[int64]models.NegotiationMessage
	evidence     map[int64]models.Evidence
	arbitrations map[int64]models.Arbitration
	orders       map[int64]models.OrderContext

	failOn map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		disputes:     map[int64]models.Dispute{},
		messages:     map[int64]models.NegotiationMessage{},
		evidence:     map[int64]models.Evidence{},
		arbitrations: map[int64]models.Arbitration{},
		orders:       map[int64]models.OrderContext{},
		failOn:       map[string]error{},
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) fail(op string) error {
	return s.failOn[op]
}

func (s *memStore) addOrder(orderID, buyerID, sellerID int64, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[orderID] = models.OrderContext{OrderID: orderID, BuyerID: buyerID, SellerID: sellerID, OrderStatus: status}
}

func (s *memStore) dispute(id int64) models.Dispute {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disputes[id]
}

func (s *memStore) setDispute(d models.Dispute) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disputes[d.ID] = d
}

// WithinTransaction реализует Transactor.
func (s *memStore) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := struct {
		nextID, codeSeq int64
		disputes        map[int64]models.Dispute
		messages        map[int64]models.NegotiationMessage
		evidence        map[int64]models.Evidence
		arbitrations    map[int64]models.Arbitration
	}{s.nextID, s.codeSeq, maps.Clone(s.disputes), maps.Clone(s.messages), maps.Clone(s.evidence), maps.Clone(s.arbitrations)}
	s.mu.Unlock()

	if err := fn(ctx); err != nil {
		s.mu.Lock()
		s.nextID, s.codeSeq = snapshot.nextID, snapshot.codeSeq
		s.disputes, s.messages = snapshot.disputes, snapshot.messages
		s.evidence, s.arbitrations = snapshot.evidence, snapshot.arbitrations
		s.mu.Unlock()
		return err
	}
	return nil
}

// Resolve реализует OrderContext.
func (s *memStore) Resolve(_ context.Context, orderID int64) (*models.OrderContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, apperror.ErrOrderNotFound
	}
	return &o, nil
}

type memDisputes struct{ *memStore }

func (r memDisputes) NextCodeSequence(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codeSeq++
	return r.codeSeq, nil
}

func (r memDisputes) Create(_ context.Context, d *models.Dispute) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.disputes {
		if existing.OrderID == d.OrderID && existing.Status != models.DisputeStatusClosed {
			return apperror.ErrActiveDisputeExists
		}
	}
	d.ID = r.id()
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt
	r.disputes[d.ID] = *d
	return nil
}

func (r memDisputes) GetByID(_ context.Context, id int64) (*models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.disputes[id]
	if !ok {
		return nil, apperror.ErrDisputeNotFound
	}
	return &d, nil
}

func (r memDisputes) GetByIDForUpdate(ctx context.Context, id int64) (*models.Dispute, error) {
	return r.GetByID(ctx, id)
}

func (r memDisputes) FindActiveByOrderID(_ context.Context, orderID int64) (*models.Dispute, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.disputes {
		if d.OrderID == orderID && d.Status != models.DisputeStatusClosed {
			return &d, nil
		}
	}
	return nil, nil
}

func (r memDisputes) Update(_ context.Context, d *models.Dispute) error {
	if err := r.fail("dispute.update"); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.disputes[d.ID]; !ok {
		return apperror.ErrDisputeNotFound
	}
	d.UpdatedAt = time.Now()
	r.disputes[d.ID] = *d
	return nil
}

func (r memDisputes) ListByUser(_ context.Context, userID int64, limit, offset int) ([]models.Dispute, error) {
	items := r.filter(func(d models.Dispute) bool { return d.InitiatorID == userID || d.RespondentID == userID })
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	if offset >= len(items) {
		return []models.Dispute{}, nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (r memDisputes) ListByArbitrator(_ context.Context, arbitratorID int64) ([]models.Dispute, error) {
	return r.filter(func(d models.Dispute) bool { return d.ArbitratorID != nil && *d.ArbitratorID == arbitratorID }), nil
}

func (r memDisputes) LockExpiredNegotiations(_ context.Context, now time.Time) ([]models.Dispute, error) {
	return r.filter(func(d models.Dispute) bool {
		return d.Status == models.DisputeStatusNegotiating && d.NegotiationDeadline.Before(now)
	}), nil
}

func (r memDisputes) EscalateBatch(_ context.Context, ids []int64, deadline time.Time) ([]models.Dispute, error) {
	if err := r.fail("dispute.escalateBatch"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	updated := make([]models.Dispute, 0, len(ids))
	for _, id := range ids {
		d, ok := r.disputes[id]
		if !ok || d.Status != models.DisputeStatusNegotiating {
			continue
		}
		d.Status = models.DisputeStatusPendingArbitration
		d.ArbitrationDeadline = &deadline
		r.disputes[id] = d
		updated = append(updated, d)
	}
	return updated, nil
}

func (r memDisputes) LockExpiredArbitrations(_ context.Context, now time.Time) ([]models.Dispute, error) {
	return r.filter(func(d models.Dispute) bool {
		return d.Status == models.DisputeStatusArbitrating &&
			d.ArbitrationDeadline != nil && d.ArbitrationDeadline.Before(now) &&
			!r.hasArbitration(d.ID)
	}), nil
}

func (r memDisputes) CloseBatch(_ context.Context, ids []int64, reason string, closedAt time.Time) ([]models.Dispute, error) {
	if err := r.fail("dispute.closeBatch"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	updated := make([]models.Dispute, 0, len(ids))
	for _, id := range ids {
		d, ok := r.disputes[id]
		if !ok || d.Status != models.DisputeStatusArbitrating || r.hasArbitrationLocked(id) {
			continue
		}
		d.Status = models.DisputeStatusClosed
		d.CloseReason = &reason
		d.ClosedAt = &closedAt
		r.disputes[id] = d
		updated = append(updated, d)
	}
	return updated, nil
}

func (r memDisputes) filter(keep func(models.Dispute) bool) []models.Dispute {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.disputes))
	for id := range r.disputes {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items := make([]models.Dispute, 0)
	for _, id := range ids {
		r.mu.Lock()
		d := r.disputes[id]
		r.mu.Unlock()
		if keep(d) {
			items = append(items, d)
		}
	}
	return items
}

func (r memDisputes) hasArbitration(disputeID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasArbitrationLocked(disputeID)
}

func (r memDisputes) hasArbitrationLocked(disputeID int64) bool {
	for _, a := range r.arbitrations {
		if a.DisputeID == disputeID {
			return true
		}
	}
	return false
}

type memMessages struct{ *memStore }

func (r memMessages) Create(_ context.Context, m *models.NegotiationMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.IsPending() {
		for _, existing := range r.messages {
			if existing.DisputeID == m.DisputeID && existing.IsPending() {
				return apperror.ErrPendingProposal
			}
		}
	}
	m.ID = r.id()
	m.CreatedAt = time.Now()
	r.messages[m.ID] = *m
	return nil
}

func (r memMessages) GetByID(_ context.Context, id int64) (*models.NegotiationMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[id]
	if !ok {
		return nil, apperror.ErrProposalNotFound
	}
	return &m, nil
}

func (r memMessages) GetByIDForUpdate(ctx context.Context, id int64) (*models.NegotiationMessage, error) {
	return r.GetByID(ctx, id)
}

func (r memMessages) FindProposal(_ context.Context, disputeID int64, status models.ProposalStatus) (*models.NegotiationMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var found *models.NegotiationMessage
	for _, m := range r.messages {
		m := m
		if m.DisputeID != disputeID || !m.IsProposal() || m.ProposalStatus == nil || *m.ProposalStatus != status {
			continue
		}
		if found == nil || m.ID > found.ID {
			found = &m
		}
	}
	if found == nil {
		return nil, apperror.ErrProposalNotFound
	}
	return found, nil
}

func (r memMessages) ListByDispute(_ context.Context, disputeID int64) ([]models.NegotiationMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]models.NegotiationMessage, 0)
	for _, m := range r.messages {
		if m.DisputeID == disputeID {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r memMessages) SaveResponse(_ context.Context, m *models.NegotiationMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.messages[m.ID]
	if !ok || !current.IsPending() {
		return apperror.ErrProposalAnswered
	}
	r.messages[m.ID] = *m
	return nil
}

type memEvidence struct{ *memStore }

func (r memEvidence) Create(_ context.Context, e *models.Evidence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.Stored {
		for _, existing := range r.evidence {
			if existing.Stored && existing.FileURL == e.FileURL {
				return apperror.ErrEvidenceFileAttached
			}
		}
	}
	e.ID = r.id()
	e.CreatedAt = time.Now()
	r.evidence[e.ID] = *e
	return nil
}

func (r memEvidence) GetByID(_ context.Context, id int64) (*models.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.evidence[id]
	if !ok {
		return nil, apperror.ErrEvidenceNotFound
	}
	return &e, nil
}

func (r memEvidence) GetByIDForUpdate(ctx context.Context, id int64) (*models.Evidence, error) {
	return r.GetByID(ctx, id)
}

func (r memEvidence) ListByDispute(_ context.Context, disputeID int64, role models.PartyRole) ([]models.Evidence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]models.Evidence, 0)
	for _, e := range r.evidence {
		if e.DisputeID == disputeID && (role == "" || e.UploaderRole == role) {
			items = append(items, e)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r memEvidence) SaveEvaluation(_ context.Context, e *models.Evidence) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.evidence[e.ID]
	if !ok || current.IsEvaluated() {
		return apperror.ErrEvidenceEvaluated
	}
	r.evidence[e.ID] = *e
	return nil
}

func (r memEvidence) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.evidence[id]
	if !ok || current.IsEvaluated() {
		return apperror.ErrEvaluatedUndeletable
	}
	delete(r.evidence, id)
	return nil
}

func (r memEvidence) Summary(_ context.Context, disputeID int64) (*models.EvidenceSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary := &models.EvidenceSummary{DisputeID: disputeID}
	for _, e := range r.evidence {
		if e.DisputeID != disputeID {
			continue
		}
		summary.Total++
		if e.UploaderRole == models.PartyRoleBuyer {
			summary.Buyer++
		} else {
			summary.Seller++
		}
		switch {
		case e.Validity == nil:
			summary.Unevaluated++
		case *e.Validity == models.ValidityValid:
			summary.Valid++
		case *e.Validity == models.ValidityInvalid:
			summary.Invalid++
		default:
			summary.Doubtful++
		}
	}
	return summary, nil
}

type memArbitrations struct{ *memStore }

func (r memArbitrations) Create(_ context.Context, a *models.Arbitration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.arbitrations {
		if existing.DisputeID == a.DisputeID {
			return apperror.ErrArbitrationExists
		}
	}
	a.ID = r.id()
	a.CreatedAt = time.Now()
	r.arbitrations[a.ID] = *a
	return nil
}

func (r memArbitrations) GetByID(_ context.Context, id int64) (*models.Arbitration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.arbitrations[id]
	if !ok {
		return nil, apperror.ErrArbitrationNotFound
	}
	return &a, nil
}

func (r memArbitrations) FindByDisputeID(_ context.Context, disputeID int64) (*models.Arbitration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.arbitrations {
		if a.DisputeID == disputeID {
			return &a, nil
		}
	}
	return nil, nil
}

func (r memArbitrations) ListPendingExecutions(context.Context) ([]models.Arbitration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]models.Arbitration, 0)
	for _, a := range r.arbitrations {
		if !a.Executed {
			items = append(items, a)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (r memArbitrations) MarkExecuted(_ context.Context, id int64, note string, executedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.arbitrations[id]
	if !ok || a.Executed {
		return apperror.ErrAlreadyExecuted
	}
	a.Executed = true
	a.ExecutedAt = &executedAt
	a.ExecutionNote = &note
	r.arbitrations[id] = a
	return nil
}

// recorder собирает опубликованные аудит и уведомления.
type recorder struct {
	mu            sync.Mutex
	audits        []models.AuditEntry
	notifications []models.NotificationRequest
}

func (r *recorder) Record(_ context.Context, entry models.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, entry)
	return nil
}

func (r *recorder) Send(_ context.Context, req models.NotificationRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, req)
}

func (r *recorder) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.audits))
	for _, a := range r.audits {
		out = append(out, a.Action)
	}
	return out
}

func (r *recorder) notifiedUsers(kind string) []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, 0)
	for _, n := range r.notifications {
		if n.Type == kind {
			out = append(out, n.UserID)
		}
	}
	return out
}

type mockFileRemover struct {
	mock.Mock
}

func (m *mockFileRemover) Remove(fileURL string) error {
	return m.Called(fileURL).Error(0)
}

// fixture собирает сервисы поверх одного memStore с фиксированным временем.
type fixture struct {
	store        *memStore
	events       *recorder
	clock        time.Time
	disputes     *DisputeService
	negotiation  *NegotiationService
	evidence     *EvidenceService
	arbitration  *ArbitrationService
	files        *mockFileRemover
	buyerID      int64
	sellerID     int64
	arbitratorID int64
	orderID      int64
}

func newFixture() *fixture {
	f := &fixture{
		store:        newMemStore(),
		events:       &recorder{},
		clock:        time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
		files:        new(mockFileRemover),
		buyerID:      101,
		sellerID:     202,
		arbitratorID: 909,
		orderID:      5001,
	}
	f.store.addOrder(f.orderID, f.buyerID, f.sellerID, models.OrderStatusCompleted)

	publisher := NewPublisher(f.events, f.events, goroutine.Inline{})
	now := func() time.Time { return f.clock }

	f.disputes = NewDisputeService(f.store, memDisputes{f.store}, f.store, publisher, DefaultWindows)
	f.disputes.now = now
	f.negotiation = NewNegotiationService(f.store, memDisputes{f.store}, memMessages{f.store}, publisher)
	f.negotiation.now = now
	f.evidence = NewEvidenceService(f.store, memDisputes{f.store}, memEvidence{f.store}, f.files, publisher)
	f.evidence.now = now
	f.arbitration = NewArbitrationService(f.store, memDisputes{f.store}, memArbitrations{f.store}, publisher, DefaultWindows)
	f.arbitration.now = now
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func (f *fixture) submit(initiatorID int64) *models.Dispute {
	d, err := f.disputes.SubmitDispute(context.Background(), SubmitDisputeInput{
		OrderID:     f.orderID,
		InitiatorID: initiatorID,
		Type:        models.DisputeTypeNotAsDescribed,
		Description: "товар не соответствует описанию",
	})
	if err != nil {
		panic(err)
	}
	return d
}

// toArbitrating проводит спор до рассмотрения арбитром.
func (f *fixture) toArbitrating() *models.Dispute {
	ctx := context.Background()
	d := f.submit(f.buyerID)
	if _, err := f.negotiation.SendTextMessage(ctx, d.ID, f.buyerID, "верните деньги"); err != nil {
		panic(err)
	}
	if _, err := f.disputes.EscalateToArbitration(ctx, d.ID, f.buyerID); err != nil {
		panic(err)
	}
	d, err := f.arbitration.AssignArbitrator(ctx, d.ID, f.arbitratorID, 1)
	if err != nil {
		panic(err)
	}
	return d
}
