//go:build unit

package commands_test

import (
	"context"
	"sort"
	"time"

	"stayhub/internal/domain/booking"
	"stayhub/internal/domain/payment"
	"stayhub/internal/infra"
	"stayhub/internal/infra/db"
	"stayhub/internal/usecase/commands"
	"stayhub/internal/usecase/shared"

	"github.com/google/uuid"
)

// In-memory stand-in for the postgres unit of work. Mutations apply
// immediately; the reconciler's success path fails its booking CAS before any
// other write, so the missing rollback does not change observable behavior.

type paymentRow struct {
	id           uuid.UUID
	bookingID    uuid.UUID
	amountCents  int64
	currency     string
	intentID     string
	clientSecret string
	status       payment.Status
	lastEventID  string
	paidAt       *time.Time
	createdAt    time.Time
}

type fakeState struct {
	listings  map[uuid.UUID]shared.ListingSnapshot
	bookings  map[uuid.UUID]*shared.BookingSnapshot
	payments  map[uuid.UUID]*paymentRow
	conflicts []shared.ReconciliationConflict
	idem      map[string]*shared.IdempotencyRecord
}

func newFakeState() *fakeState {
	return &fakeState{
		listings: make(map[uuid.UUID]shared.ListingSnapshot),
		bookings: make(map[uuid.UUID]*shared.BookingSnapshot),
		payments: make(map[uuid.UUID]*paymentRow),
		idem:     make(map[string]*shared.IdempotencyRecord),
	}
}

func (s *fakeState) addListing(priceCents int64) shared.ListingSnapshot {
	l := shared.ListingSnapshot{
		ID:                 uuid.New(),
		HostID:             uuid.New(),
		PricePerNightCents: priceCents,
		Currency:           "usd",
	}
	s.listings[l.ID] = l
	return l
}

func (s *fakeState) addBooking(l shared.ListingSnapshot, guestID uuid.UUID, checkIn, checkOut time.Time, status booking.Status, createdAt time.Time) *shared.BookingSnapshot {
	b := &shared.BookingSnapshot{
		ID:         uuid.New(),
		ListingID:  l.ID,
		GuestID:    guestID,
		HostID:     l.HostID,
		CheckIn:    checkIn,
		CheckOut:   checkOut,
		Status:     status,
		TotalCents: l.PricePerNightCents * int64(checkOut.Sub(checkIn).Hours()/24),
		Currency:   l.Currency,
		CreatedAt:  createdAt,
	}
	s.bookings[b.ID] = b
	return b
}

func (s *fakeState) addPayment(b *shared.BookingSnapshot, intentID string, status payment.Status) *paymentRow {
	p := &paymentRow{
		id:           uuid.New(),
		bookingID:    b.ID,
		amountCents:  b.TotalCents,
		currency:     b.Currency,
		intentID:     intentID,
		clientSecret: intentID + "_secret",
		status:       status,
		createdAt:    b.CreatedAt,
	}
	s.payments[p.id] = p
	return p
}

func idemKey(key, userID uuid.UUID) string {
	return key.String() + "/" + userID.String()
}

type fakeUoW struct {
	st *fakeState
}

func newFakeUoW(st *fakeState) *fakeUoW { return &fakeUoW{st: st} }

func (u *fakeUoW) Within(ctx context.Context, fn func(ctx context.Context, tx shared.Tx) error) error {
	return fn(ctx, &fakeTx{st: u.st})
}

func (u *fakeUoW) WithinListingLock(ctx context.Context, _ uuid.UUID, fn func(ctx context.Context, tx shared.Tx) error) error {
	return fn(ctx, &fakeTx{st: u.st})
}

func (u *fakeUoW) WithDB(ctx context.Context, fn func(ctx context.Context, dbtx db.DBTX) error) error {
	return fn(ctx, nil)
}

func (u *fakeUoW) CommandReads() shared.CommandReads {
	return &fakeReads{st: u.st}
}

type fakeTx struct {
	st *fakeState
}

func (t *fakeTx) Bookings() shared.BookingRepository       { return &fakeBookingRepo{st: t.st} }
func (t *fakeTx) Payments() shared.PaymentRepository       { return &fakePaymentRepo{st: t.st} }
func (t *fakeTx) Conflicts() shared.ConflictRepository     { return &fakeConflictRepo{st: t.st} }
func (t *fakeTx) Idempotency() shared.IdempotencyRepository { return &fakeIdemRepo{st: t.st} }
func (t *fakeTx) Reads() shared.CommandReads               { return &fakeReads{st: t.st} }
func (t *fakeTx) DB() db.DBTX                              { return nil }

type fakeBookingRepo struct {
	st *fakeState
}

func (r *fakeBookingRepo) Create(_ context.Context, _ db.DBTX, b *booking.Booking) (uuid.UUID, error) {
	for _, row := range r.st.bookings {
		if row.ListingID == b.ListingID() && row.Status.HoldsDates() &&
			row.CheckIn.Before(b.Stay().CheckOut()) && b.Stay().CheckIn().Before(row.CheckOut) {
			return uuid.Nil, infra.WrapRepoErr("booking dates conflict", nil, infra.KindConflict)
		}
	}
	stay := b.Stay()
	total := b.TotalPrice()
	r.st.bookings[b.ID()] = &shared.BookingSnapshot{
		ID:         b.ID(),
		ListingID:  b.ListingID(),
		GuestID:    b.GuestID(),
		HostID:     b.HostID(),
		CheckIn:    stay.CheckIn(),
		CheckOut:   stay.CheckOut(),
		Status:     b.Status(),
		TotalCents: total.Cents(),
		Currency:   total.Currency(),
		CreatedAt:  b.CreatedAt(),
	}
	return b.ID(), nil
}

func (r *fakeBookingRepo) CountOverlapping(_ context.Context, _ db.DBTX, listingID uuid.UUID, checkIn, checkOut time.Time) (int64, error) {
	var count int64
	for _, row := range r.st.bookings {
		if row.ListingID == listingID && row.Status.HoldsDates() &&
			row.CheckIn.Before(checkOut) && checkIn.Before(row.CheckOut) {
			count++
		}
	}
	return count, nil
}

func (r *fakeBookingRepo) UpdateStatus(_ context.Context, _ db.DBTX, id uuid.UUID, from, to booking.Status) (bool, error) {
	row, ok := r.st.bookings[id]
	if !ok || row.Status != from {
		return false, nil
	}
	row.Status = to
	return true, nil
}

func (r *fakeBookingRepo) FindByIDForUpdate(_ context.Context, _ db.DBTX, id uuid.UUID) (*booking.Booking, error) {
	row, ok := r.st.bookings[id]
	if !ok {
		return nil, infra.WrapRepoErr("booking not found", nil, infra.KindNotFound)
	}
	return reconstructFromSnapshot(row)
}

func (r *fakeBookingRepo) FindExpiredPendingIDs(_ context.Context, _ db.DBTX, olderThan time.Time, limit int32) ([]uuid.UUID, error) {
	type cand struct {
		id        uuid.UUID
		createdAt time.Time
	}
	var cands []cand
	for _, row := range r.st.bookings {
		if row.Status == booking.StatusPending && row.CreatedAt.Before(olderThan) {
			cands = append(cands, cand{row.ID, row.CreatedAt})
		}
	}
	sort.Slice(cands, func(i, j int) bool { return cands[i].createdAt.Before(cands[j].createdAt) })
	if int32(len(cands)) > limit {
		cands = cands[:limit]
	}
	ids := make([]uuid.UUID, len(cands))
	for i, c := range cands {
		ids[i] = c.id
	}
	return ids, nil
}

func reconstructFromSnapshot(row *shared.BookingSnapshot) (*booking.Booking, error) {
	stay, err := booking.NewStayRange(row.CheckIn, row.CheckOut)
	if err != nil {
		return nil, err
	}
	total, err := booking.NewMoney(row.TotalCents, row.Currency)
	if err != nil {
		return nil, err
	}
	return booking.ReconstructBooking(
		row.ID, row.ListingID, row.GuestID, row.HostID,
		stay, 1, total, row.Status, row.CreatedAt, row.CreatedAt, 1,
	), nil
}

type fakePaymentRepo struct {
	st *fakeState
}

func (r *fakePaymentRepo) Create(_ context.Context, _ db.DBTX, p *payment.Payment, clientSecret string) (uuid.UUID, error) {
	for _, row := range r.st.payments {
		if row.bookingID == p.BookingID() {
			return uuid.Nil, infra.WrapRepoErr("payment already exists for booking", nil, infra.KindDuplicateKey)
		}
	}
	r.st.payments[p.ID()] = &paymentRow{
		id:           p.ID(),
		bookingID:    p.BookingID(),
		amountCents:  p.AmountCents(),
		currency:     p.Currency(),
		intentID:     p.IntentID(),
		clientSecret: clientSecret,
		status:       p.Status(),
		createdAt:    p.CreatedAt(),
	}
	return p.ID(), nil
}

func (r *fakePaymentRepo) FindByIntentIDForUpdate(_ context.Context, _ db.DBTX, intentID string) (*payment.Payment, error) {
	for _, row := range r.st.payments {
		if row.intentID == intentID {
			return rowToPayment(row), nil
		}
	}
	return nil, infra.WrapRepoErr("payment not found", nil, infra.KindNotFound)
}

func (r *fakePaymentRepo) FindByBookingIDForUpdate(_ context.Context, _ db.DBTX, bookingID uuid.UUID) (*payment.Payment, error) {
	for _, row := range r.st.payments {
		if row.bookingID == bookingID {
			return rowToPayment(row), nil
		}
	}
	return nil, infra.WrapRepoErr("payment not found", nil, infra.KindNotFound)
}

func (r *fakePaymentRepo) UpdateStatus(_ context.Context, _ db.DBTX, id uuid.UUID, from, to payment.Status, eventID string, paidAt *time.Time) (bool, error) {
	row, ok := r.st.payments[id]
	if !ok || row.status != from {
		return false, nil
	}
	row.status = to
	if eventID != "" {
		row.lastEventID = eventID
	}
	if paidAt != nil {
		row.paidAt = paidAt
	}
	return true, nil
}

func rowToPayment(row *paymentRow) *payment.Payment {
	return payment.ReconstructPayment(
		row.id, row.bookingID, row.amountCents, row.currency, row.intentID,
		row.status, row.lastEventID, row.paidAt, row.createdAt, row.createdAt,
	)
}

type fakeConflictRepo struct {
	st *fakeState
}

func (r *fakeConflictRepo) Record(_ context.Context, _ db.DBTX, c shared.ReconciliationConflict) error {
	r.st.conflicts = append(r.st.conflicts, c)
	return nil
}

type fakeIdemRepo struct {
	st *fakeState
}

func (r *fakeIdemRepo) TryInsert(_ context.Context, _ db.DBTX, key, userID uuid.UUID, _, requestHash string, _ time.Time) error {
	k := idemKey(key, userID)
	if _, exists := r.st.idem[k]; exists {
		return nil
	}
	r.st.idem[k] = &shared.IdempotencyRecord{
		Key:         key,
		UserID:      userID,
		Status:      "processing",
		RequestHash: requestHash,
	}
	return nil
}

func (r *fakeIdemRepo) UpdateStatusCompleted(_ context.Context, _ db.DBTX, key, userID uuid.UUID, _ string, resultBookingID uuid.UUID) error {
	rec, ok := r.st.idem[idemKey(key, userID)]
	if !ok {
		return infra.WrapRepoErr("idempotency key not found", nil, infra.KindNotFound)
	}
	rec.Status = "completed"
	id := resultBookingID
	rec.ResultBookingID = &id
	return nil
}

type fakeReads struct {
	st *fakeState
}

func (r *fakeReads) ListingByID(_ context.Context, id uuid.UUID) (*shared.ListingSnapshot, error) {
	l, ok := r.st.listings[id]
	if !ok {
		return nil, infra.WrapRepoErr("listing not found", nil, infra.KindNotFound)
	}
	return &l, nil
}

func (r *fakeReads) BookingByID(_ context.Context, id uuid.UUID) (*shared.BookingSnapshot, error) {
	row, ok := r.st.bookings[id]
	if !ok {
		return nil, infra.WrapRepoErr("booking not found", nil, infra.KindNotFound)
	}
	snap := *row
	return &snap, nil
}

func (r *fakeReads) PaymentByBookingID(_ context.Context, bookingID uuid.UUID) (*shared.PaymentSnapshot, error) {
	for _, row := range r.st.payments {
		if row.bookingID == bookingID {
			return &shared.PaymentSnapshot{
				ID:           row.id,
				BookingID:    row.bookingID,
				IntentID:     row.intentID,
				ClientSecret: row.clientSecret,
				Status:       row.status,
				AmountCents:  row.amountCents,
				Currency:     row.currency,
			}, nil
		}
	}
	return nil, infra.WrapRepoErr("payment not found", nil, infra.KindNotFound)
}

func (r *fakeReads) IdempotencyByKey(_ context.Context, key, userID uuid.UUID) (*shared.IdempotencyRecord, error) {
	rec, ok := r.st.idem[idemKey(key, userID)]
	if !ok {
		return nil, infra.WrapRepoErr("idempotency key not found", nil, infra.KindNotFound)
	}
	cp := *rec
	return &cp, nil
}

type fakeProcessor struct {
	createErr   error
	createFails int // fail this many attempts before succeeding
	refundErr   error
	refundFails int

	createdIntents []uuid.UUID
	createAttempts int
	cancelled      []string
	refunded       []string
	refundKeys     []string
	refundAttempts int
	nextIntent     string
}

func (p *fakeProcessor) CreateIntent(_ context.Context, bookingID uuid.UUID, _ int64, _ string) (*commands.IntentRef, error) {
	p.createAttempts++
	if p.createErr != nil {
		return nil, p.createErr
	}
	if p.createAttempts <= p.createFails {
		return nil, context.DeadlineExceeded
	}
	p.createdIntents = append(p.createdIntents, bookingID)
	id := p.nextIntent
	if id == "" {
		id = "pi_" + uuid.NewString()[:8]
	}
	return &commands.IntentRef{ID: id, ClientSecret: id + "_secret"}, nil
}

func (p *fakeProcessor) CancelIntent(_ context.Context, intentID string) error {
	p.cancelled = append(p.cancelled, intentID)
	return nil
}

func (p *fakeProcessor) Refund(_ context.Context, intentID string, _ int64, idempotencyKey string) error {
	p.refundAttempts++
	p.refundKeys = append(p.refundKeys, idempotencyKey)
	if p.refundErr != nil {
		return p.refundErr
	}
	if p.refundAttempts <= p.refundFails {
		return context.DeadlineExceeded
	}
	p.refunded = append(p.refunded, intentID)
	return nil
}

type publishedEvent struct {
	eventType string
	key       string
	payload   any
}

type fakePublisher struct {
	events []publishedEvent
}

func (p *fakePublisher) Publish(_ context.Context, eventType string, key string, payload any) {
	p.events = append(p.events, publishedEvent{eventType: eventType, key: key, payload: payload})
}

func (p *fakePublisher) ofType(eventType string) []publishedEvent {
	var out []publishedEvent
	for _, e := range p.events {
		if e.eventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
