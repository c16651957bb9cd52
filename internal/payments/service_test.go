package payments

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundi/internal/bookings"
	"fundi/internal/shared/config"
	"fundi/pkg/logger"
)

// fakeRepo keeps booking payment state in memory with the same conditional
// transition semantics the database repository enforces.
type fakeRepo struct {
	mu             sync.Mutex
	bookings       map[uuid.UUID]*bookings.Booking
	transactions   []Transaction
	commitFailures int
}

func newFakeRepo(bs ...*bookings.Booking) *fakeRepo {
	repo := &fakeRepo{bookings: make(map[uuid.UUID]*bookings.Booking)}
	for _, b := range bs {
		repo.bookings[b.ID] = b
	}
	return repo
}

func (r *fakeRepo) GetBooking(ctx context.Context, id uuid.UUID) (*bookings.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *fakeRepo) MarkPaymentProcessing(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	switch b.PaymentStatus {
	case string(bookings.PaymentStatusPending):
		b.PaymentStatus = string(bookings.PaymentStatusProcessing)
		return nil
	case string(bookings.PaymentStatusPaid):
		return ErrAlreadyPaid
	default:
		return ErrPaymentInProgress
	}
}

func (r *fakeRepo) ReleasePaymentProcessing(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return ErrBookingNotFound
	}
	if b.PaymentStatus == string(bookings.PaymentStatusProcessing) {
		b.PaymentStatus = string(bookings.PaymentStatusPending)
	}
	return nil
}

func (r *fakeRepo) CommitSettlement(ctx context.Context, txn *Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.commitFailures > 0 {
		r.commitFailures--
		return fmt.Errorf("simulated write failure")
	}
	b, ok := r.bookings[txn.BookingID]
	if !ok {
		return ErrBookingNotFound
	}
	switch b.PaymentStatus {
	case string(bookings.PaymentStatusProcessing):
		b.PaymentStatus = string(bookings.PaymentStatusPaid)
		r.transactions = append(r.transactions, *txn)
		return nil
	case string(bookings.PaymentStatusPaid):
		return ErrAlreadyPaid
	default:
		return ErrPaymentInProgress
	}
}

func (r *fakeRepo) GetTransactionsByBooking(ctx context.Context, bookingID uuid.UUID) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []Transaction
	for _, txn := range r.transactions {
		if txn.BookingID == bookingID {
			result = append(result, txn)
		}
	}
	return result, nil
}

func (r *fakeRepo) GetAllTransactions(ctx context.Context, query TransactionListQuery) ([]Transaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Transaction(nil), r.transactions...), int64(len(r.transactions)), nil
}

func (r *fakeRepo) paymentStatus(id uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bookings[id].PaymentStatus
}

type fakeGateway struct {
	intents map[string]*CardIntent
	created *CardIntent
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amount int64, bookingID, methodHint string) (*CardIntent, error) {
	intent := &CardIntent{
		ID:           "pi_test_1",
		ClientSecret: "pi_test_1_secret",
		Amount:       amount,
		BookingID:    bookingID,
		Status:       "requires_payment_method",
	}
	g.created = intent
	return intent, nil
}

func (g *fakeGateway) RetrieveIntent(ctx context.Context, intentID string) (*CardIntent, error) {
	intent, ok := g.intents[intentID]
	if !ok {
		return nil, fmt.Errorf("%w: no such payment_intent", ErrPaymentSetupFailed)
	}
	return intent, nil
}

type fakePush struct {
	result *PushResult
	err    error
}

func (p *fakePush) InitiatePush(ctx context.Context, amount int64, phoneNumber, accountRef string) (*PushResult, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.result, nil
}

type fakeStore struct {
	mu       sync.Mutex
	outcomes map[string]PushOutcome
}

func newFakeStore() *fakeStore {
	return &fakeStore{outcomes: make(map[string]PushOutcome)}
}

func (s *fakeStore) Record(ctx context.Context, outcome PushOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.outcomes[outcome.CheckoutRequestID]; !exists {
		s.outcomes[outcome.CheckoutRequestID] = outcome
	}
	return nil
}

func (s *fakeStore) Lookup(ctx context.Context, checkoutRequestID string) (*PushOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	outcome, ok := s.outcomes[checkoutRequestID]
	if !ok {
		return nil, nil
	}
	return &outcome, nil
}

type fakePublisher struct {
	mu          sync.Mutex
	settlements []SettlementEvent
	alerts      []AlertEvent
}

func (p *fakePublisher) PublishSettlement(ctx context.Context, event SettlementEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settlements = append(p.settlements, event)
	return nil
}

func (p *fakePublisher) PublishAlert(ctx context.Context, event AlertEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, event)
	return nil
}

func (p *fakePublisher) alertCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.alerts)
}

func testSettlementConfig() config.SettlementConfig {
	return config.SettlementConfig{
		Rate:               130.0,
		BaseCurrency:       "USD",
		Currency:           "KES",
		PollInterval:       5 * time.Millisecond,
		Timeout:            200 * time.Millisecond,
		CorrelationTTL:     time.Hour,
		CommitRetries:      2,
		CommitRetryBackoff: time.Millisecond,
	}
}

func pendingBooking(total float64) *bookings.Booking {
	return &bookings.Booking{
		ID:            uuid.New(),
		ClientID:      uuid.New(),
		ProviderID:    uuid.New(),
		TotalAmount:   total,
		Status:        string(bookings.StatusConfirmed),
		PaymentStatus: string(bookings.PaymentStatusPending),
		BookingRef:    "FND-TEST1234",
	}
}

type serviceFixture struct {
	service   Service
	repo      *fakeRepo
	gateway   *fakeGateway
	push      *fakePush
	store     *fakeStore
	publisher *fakePublisher
}

func newFixture(cfg config.SettlementConfig, bs ...*bookings.Booking) *serviceFixture {
	f := &serviceFixture{
		repo:      newFakeRepo(bs...),
		gateway:   &fakeGateway{intents: make(map[string]*CardIntent)},
		push:      &fakePush{result: &PushResult{CheckoutRequestID: "ws_CO_1", MerchantRequestID: "m1"}},
		store:     newFakeStore(),
		publisher: &fakePublisher{},
	}
	converter := NewConverter(cfg.Rate, cfg.BaseCurrency, cfg.Currency)
	f.service = NewService(f.repo, f.gateway, f.push, f.store, f.publisher, converter, cfg, logger.New())
	return f
}

func TestCreateIntent(t *testing.T) {
	booking := pendingBooking(50.0)
	f := newFixture(testSettlementConfig(), booking)

	resp, err := f.service.CreateIntent(context.Background(), CreateIntentRequest{BookingID: booking.ID.String()})
	require.NoError(t, err)

	// 50 USD at 130 = 6500 KES, computed server-side from the booking
	assert.Equal(t, int64(6500), resp.Amount)
	assert.Equal(t, "KES", resp.Currency)
	assert.Equal(t, "pi_test_1_secret", resp.ClientSecret)
	assert.Equal(t, booking.ID.String(), f.gateway.created.BookingID)
}

func TestCreateIntent_AlreadyPaid(t *testing.T) {
	booking := pendingBooking(50.0)
	booking.PaymentStatus = string(bookings.PaymentStatusPaid)
	f := newFixture(testSettlementConfig(), booking)

	_, err := f.service.CreateIntent(context.Background(), CreateIntentRequest{BookingID: booking.ID.String()})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestCreateIntent_ZeroAmount(t *testing.T) {
	booking := pendingBooking(0)
	f := newFixture(testSettlementConfig(), booking)

	_, err := f.service.CreateIntent(context.Background(), CreateIntentRequest{BookingID: booking.ID.String()})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCreateIntent_BookingNotFound(t *testing.T) {
	f := newFixture(testSettlementConfig())

	_, err := f.service.CreateIntent(context.Background(), CreateIntentRequest{BookingID: uuid.NewString()})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestSettleCard(t *testing.T) {
	booking := pendingBooking(50.0)
	f := newFixture(testSettlementConfig(), booking)
	f.gateway.intents["pi_1"] = &CardIntent{
		ID: "pi_1", Amount: 6500, BookingID: booking.ID.String(), Status: "succeeded",
	}

	resp, err := f.service.SettleCard(context.Background(), SettleCardRequest{
		BookingID: booking.ID.String(), PaymentIntentID: "pi_1",
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_1", resp.Reference)
	assert.Equal(t, int64(6500), resp.Amount)
	assert.Equal(t, "card", resp.PaymentMethod)
	assert.Equal(t, string(bookings.PaymentStatusPaid), f.repo.paymentStatus(booking.ID))

	require.Len(t, f.publisher.settlements, 1)
	assert.Equal(t, EventPaymentSettled, f.publisher.settlements[0].Type)
}

func TestSettleCard_WrongBooking(t *testing.T) {
	booking := pendingBooking(50.0)
	f := newFixture(testSettlementConfig(), booking)
	f.gateway.intents["pi_1"] = &CardIntent{
		ID: "pi_1", Amount: 6500, BookingID: uuid.NewString(), Status: "succeeded",
	}

	_, err := f.service.SettleCard(context.Background(), SettleCardRequest{
		BookingID: booking.ID.String(), PaymentIntentID: "pi_1",
	})
	assert.ErrorIs(t, err, ErrIntentMismatch)
	assert.Equal(t, string(bookings.PaymentStatusPending), f.repo.paymentStatus(booking.ID))
}

func TestSettleCard_AmountTampered(t *testing.T) {
	booking := pendingBooking(50.0)
	f := newFixture(testSettlementConfig(), booking)
	f.gateway.intents["pi_1"] = &CardIntent{
		ID: "pi_1", Amount: 100, BookingID: booking.ID.String(), Status: "succeeded",
	}

	_, err := f.service.SettleCard(context.Background(), SettleCardRequest{
		BookingID: booking.ID.String(), PaymentIntentID: "pi_1",
	})
	assert.ErrorIs(t, err, ErrIntentMismatch)
}

func TestSettleCard_Declined(t *testing.T) {
	booking := pendingBooking(50.0)
	f := newFixture(testSettlementConfig(), booking)
	f.gateway.intents["pi_1"] = &CardIntent{
		ID: "pi_1", Amount: 6500, BookingID: booking.ID.String(), Status: "requires_payment_method",
	}

	_, err := f.service.SettleCard(context.Background(), SettleCardRequest{
		BookingID: booking.ID.String(), PaymentIntentID: "pi_1",
	})
	assert.ErrorIs(t, err, ErrPaymentDeclined)
	assert.Equal(t, string(bookings.PaymentStatusPending), f.repo.paymentStatus(booking.ID))
}

func TestSettleCard_SecondSettleIsRejected(t *testing.T) {
	booking := pendingBooking(50.0)
	f := newFixture(testSettlementConfig(), booking)
	f.gateway.intents["pi_1"] = &CardIntent{
		ID: "pi_1", Amount: 6500, BookingID: booking.ID.String(), Status: "succeeded",
	}

	_, err := f.service.SettleCard(context.Background(), SettleCardRequest{
		BookingID: booking.ID.String(), PaymentIntentID: "pi_1",
	})
	require.NoError(t, err)

	_, err = f.service.SettleCard(context.Background(), SettleCardRequest{
		BookingID: booking.ID.String(), PaymentIntentID: "pi_1",
	})
	assert.ErrorIs(t, err, ErrAlreadyPaid)

	// Exactly one transaction row despite the double settle
	txns, _ := f.repo.GetTransactionsByBooking(context.Background(), booking.ID)
	assert.Len(t, txns, 1)
}

func TestInitiatePush_InvalidPhone(t *testing.T) {
	booking := pendingBooking(50.0)
	f := newFixture(testSettlementConfig(), booking)

	_, err := f.service.InitiatePush(context.Background(), InitiatePushRequest{
		BookingID: booking.ID.String(), PhoneNumber: "0712345678",
	})
	assert.ErrorIs(t, err, ErrInvalidPhoneNumber)
	assert.Equal(t, string(bookings.PaymentStatusPending), f.repo.paymentStatus(booking.ID))
}

func TestInitiatePush_ProviderFailureReleasesMarker(t *testing.T) {
	booking := pendingBooking(50.0)
	f := newFixture(testSettlementConfig(), booking)
	f.push.err = errors.New("provider unreachable")

	_, err := f.service.InitiatePush(context.Background(), InitiatePushRequest{
		BookingID: booking.ID.String(), PhoneNumber: "254712345678",
	})
	assert.ErrorIs(t, err, ErrPushInitiationFailed)
	assert.Equal(t, string(bookings.PaymentStatusPending), f.repo.paymentStatus(booking.ID))
}

func TestInitiatePush_ConcurrentInitiationLoses(t *testing.T) {
	booking := pendingBooking(50.0)
	booking.PaymentStatus = string(bookings.PaymentStatusProcessing)
	f := newFixture(testSettlementConfig(), booking)

	_, err := f.service.InitiatePush(context.Background(), InitiatePushRequest{
		BookingID: booking.ID.String(), PhoneNumber: "254712345678",
	})
	assert.ErrorIs(t, err, ErrPaymentInProgress)
}

func TestAwaitSettlement_Completed(t *testing.T) {
	booking := pendingBooking(50.0)
	booking.PaymentStatus = string(bookings.PaymentStatusProcessing)
	f := newFixture(testSettlementConfig(), booking)

	require.NoError(t, f.store.Record(context.Background(), PushOutcome{
		CheckoutRequestID: "ws_CO_1",
		Status:            CorrelationStatusCompleted,
		Amount:            6500,
		Receipt:           "RKT12XYZ89",
		PhoneNumber:       "254712345678",
		ResolvedAt:        time.Now(),
	}))

	txn, err := f.service.AwaitSettlement(context.Background(), booking.ID, "ws_CO_1")
	require.NoError(t, err)

	assert.Equal(t, "RKT12XYZ89", txn.Reference)
	assert.Equal(t, int64(6500), txn.Amount)
	assert.Equal(t, "mpesa", txn.PaymentMethod)
	assert.Equal(t, "254712345678", txn.PhoneNumber)
	assert.Equal(t, string(bookings.PaymentStatusPaid), f.repo.paymentStatus(booking.ID))
}

func TestAwaitSettlement_Rejected(t *testing.T) {
	booking := pendingBooking(50.0)
	booking.PaymentStatus = string(bookings.PaymentStatusProcessing)
	f := newFixture(testSettlementConfig(), booking)

	require.NoError(t, f.store.Record(context.Background(), PushOutcome{
		CheckoutRequestID: "ws_CO_1",
		Status:            CorrelationStatusFailed,
		Reason:            "Request cancelled by user",
		ResolvedAt:        time.Now(),
	}))

	_, err := f.service.AwaitSettlement(context.Background(), booking.ID, "ws_CO_1")
	assert.ErrorIs(t, err, ErrPaymentRejected)
	assert.Contains(t, err.Error(), "cancelled by user")

	// The marker is released so the client can retry
	assert.Equal(t, string(bookings.PaymentStatusPending), f.repo.paymentStatus(booking.ID))
	// No transaction row for a failed payment
	txns, _ := f.repo.GetTransactionsByBooking(context.Background(), booking.ID)
	assert.Empty(t, txns)
}

func TestAwaitSettlement_Timeout(t *testing.T) {
	booking := pendingBooking(50.0)
	booking.PaymentStatus = string(bookings.PaymentStatusProcessing)
	f := newFixture(testSettlementConfig(), booking)

	// No outcome ever recorded: the loop must stop at the configured bound
	start := time.Now()
	_, err := f.service.AwaitSettlement(context.Background(), booking.ID, "ws_CO_never")
	assert.ErrorIs(t, err, ErrPaymentTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, string(bookings.PaymentStatusPending), f.repo.paymentStatus(booking.ID))
}

func TestAwaitSettlement_CommitFailureEscalates(t *testing.T) {
	cfg := testSettlementConfig()
	booking := pendingBooking(50.0)
	booking.PaymentStatus = string(bookings.PaymentStatusProcessing)
	f := newFixture(cfg, booking)
	f.repo.commitFailures = cfg.CommitRetries + 1 // exhaust every attempt

	require.NoError(t, f.store.Record(context.Background(), PushOutcome{
		CheckoutRequestID: "ws_CO_1",
		Status:            CorrelationStatusCompleted,
		Amount:            6500,
		Receipt:           "RKT12XYZ89",
		ResolvedAt:        time.Now(),
	}))

	_, err := f.service.AwaitSettlement(context.Background(), booking.ID, "ws_CO_1")
	assert.ErrorIs(t, err, ErrBookingUpdateFailed)

	// Money moved: the alert is raised and the marker deliberately stays in
	// PROCESSING so no second charge can start while state disagrees.
	assert.Equal(t, 1, f.publisher.alertCount())
	assert.Equal(t, string(bookings.PaymentStatusProcessing), f.repo.paymentStatus(booking.ID))
}

func TestAwaitSettlement_CommitRetriesThenSucceeds(t *testing.T) {
	booking := pendingBooking(50.0)
	booking.PaymentStatus = string(bookings.PaymentStatusProcessing)
	f := newFixture(testSettlementConfig(), booking)
	f.repo.commitFailures = 1 // first attempt fails, retry succeeds

	require.NoError(t, f.store.Record(context.Background(), PushOutcome{
		CheckoutRequestID: "ws_CO_1",
		Status:            CorrelationStatusCompleted,
		Amount:            6500,
		Receipt:           "RKT12XYZ89",
		ResolvedAt:        time.Now(),
	}))

	_, err := f.service.AwaitSettlement(context.Background(), booking.ID, "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, string(bookings.PaymentStatusPaid), f.repo.paymentStatus(booking.ID))
	assert.Equal(t, 0, f.publisher.alertCount())
}

func TestRecordCallback_FirstWriteWins(t *testing.T) {
	f := newFixture(testSettlementConfig())

	f.service.RecordCallback(context.Background(), successEnvelope("ws_CO_1", 6500, "RKT1"))
	f.service.RecordCallback(context.Background(), successEnvelope("ws_CO_1", 9999, "RKT2"))

	outcome, err := f.store.Lookup(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	require.NotNil(t, outcome)
	assert.Equal(t, "RKT1", outcome.Receipt)
	assert.Equal(t, int64(6500), outcome.Amount)
}

func TestGetPushStatus(t *testing.T) {
	f := newFixture(testSettlementConfig())

	// Unknown correlation id reports pending, not an error
	status, err := f.service.GetPushStatus(context.Background(), "ws_CO_unknown")
	require.NoError(t, err)
	assert.Equal(t, "pending", status.Status)

	require.NoError(t, f.store.Record(context.Background(), PushOutcome{
		CheckoutRequestID: "ws_CO_1",
		Status:            CorrelationStatusCompleted,
		Amount:            6500,
		Receipt:           "RKT12XYZ89",
		ResolvedAt:        time.Now(),
	}))

	status, err = f.service.GetPushStatus(context.Background(), "ws_CO_1")
	require.NoError(t, err)
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, "RKT12XYZ89", status.TransactionID)
	assert.Equal(t, int64(6500), status.Amount)
	require.NotNil(t, status.Timestamp)
}

func successEnvelope(checkoutRequestID string, amount int64, receipt string) MpesaCallbackEnvelope {
	var env MpesaCallbackEnvelope
	env.Body.StkCallback.CheckoutRequestID = checkoutRequestID
	env.Body.StkCallback.ResultCode = 0
	env.Body.StkCallback.CallbackMetadata = &CallbackMetadata{
		Item: []CallbackMetadataItem{
			{Name: "Amount", Value: float64(amount)},
			{Name: "MpesaReceiptNumber", Value: receipt},
		},
	}
	return env
}
