package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fundi/internal/bookings"
	"fundi/internal/shared/config"
	"fundi/pkg/logger"
)

// Service is the settlement reconciler: it drives one of the two payment
// rails for a booking, waits for a terminal outcome, and performs the
// authoritative state transition. A booking transitions to paid at most once,
// and only as a consequence of an observed terminal success.
type Service interface {
	// Card rail
	CreateIntent(ctx context.Context, req CreateIntentRequest) (*IntentResponse, error)
	SettleCard(ctx context.Context, req SettleCardRequest) (*TransactionResponse, error)

	// Mobile-money rail
	InitiatePush(ctx context.Context, req InitiatePushRequest) (*PushResponse, error)
	RecordCallback(ctx context.Context, env MpesaCallbackEnvelope)
	GetPushStatus(ctx context.Context, checkoutRequestID string) (*PushStatusResponse, error)

	// AwaitSettlement runs the bounded polling loop for one push attempt and
	// commits on success. InitiatePush runs it in the background; it is
	// exported so the loop is testable in isolation.
	AwaitSettlement(ctx context.Context, bookingID uuid.UUID, checkoutRequestID string) (*Transaction, error)

	// Audit views
	GetBookingTransactions(ctx context.Context, bookingID uuid.UUID) ([]TransactionResponse, error)
	ListTransactions(ctx context.Context, query TransactionListQuery) (*TransactionListResponse, error)
}

type service struct {
	repo      Repository
	gateway   IntentGateway
	push      PushClient
	store     CorrelationStore
	publisher SettlementPublisher
	converter Converter
	cfg       config.SettlementConfig
	log       *logger.Logger
}

// NewService creates a new settlement reconciler
func NewService(
	repo Repository,
	gateway IntentGateway,
	push PushClient,
	store CorrelationStore,
	publisher SettlementPublisher,
	converter Converter,
	cfg config.SettlementConfig,
	log *logger.Logger,
) Service {
	return &service{
		repo:      repo,
		gateway:   gateway,
		push:      push,
		store:     store,
		publisher: publisher,
		converter: converter,
		cfg:       cfg,
		log:       log,
	}
}

// CreateIntent computes the settlement amount for the booking and requests a
// card authorization from the processor. Nothing is persisted locally: state
// lives in the processor until the settle step.
func (s *service) CreateIntent(ctx context.Context, req CreateIntentRequest) (*IntentResponse, error) {
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID: %w", err)
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.IsPaid() {
		return nil, ErrAlreadyPaid
	}

	amount := s.converter.ToSettlementCurrency(booking.TotalAmount)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	intent, err := s.gateway.CreateIntent(ctx, amount, booking.ID.String(), req.PaymentMethod)
	if err != nil {
		return nil, err
	}

	s.log.LogIntentCreated(ctx, booking.ID.String(), intent.ID, amount)

	return &IntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		Amount:          amount,
		Currency:        s.converter.Currency,
	}, nil
}

// SettleCard verifies a client-confirmed intent against the processor and
// performs the paid transition. The confirmation itself is synchronous from
// the caller's perspective; no polling is involved on this rail.
func (s *service) SettleCard(ctx context.Context, req SettleCardRequest) (*TransactionResponse, error) {
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID: %w", err)
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.IsPaid() {
		return nil, ErrAlreadyPaid
	}

	intent, err := s.gateway.RetrieveIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, err
	}

	// The intent must belong to this booking and carry exactly the amount
	// the converter authorizes; anything else is treated as hostile input.
	expected := s.converter.ToSettlementCurrency(booking.TotalAmount)
	if intent.BookingID != booking.ID.String() || intent.Amount != expected {
		return nil, ErrIntentMismatch
	}

	if !intent.Succeeded() {
		return nil, fmt.Errorf("%w: intent status is %s", ErrPaymentDeclined, intent.Status)
	}

	if err := s.repo.MarkPaymentProcessing(ctx, booking.ID); err != nil {
		return nil, err
	}

	txn, err := s.commitSettlement(booking, expected, MethodCard, intent.ID, "")
	if err != nil {
		return nil, err
	}

	resp := txn.ToResponse()
	return &resp, nil
}

// InitiatePush validates input, acquires the booking's exclusive in-progress
// marker, submits the STK push, and starts the background polling loop that
// will observe the asynchronous outcome.
func (s *service) InitiatePush(ctx context.Context, req InitiatePushRequest) (*PushResponse, error) {
	// Reject malformed input before any network call
	if err := ValidatePhoneNumber(req.PhoneNumber); err != nil {
		return nil, err
	}

	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("invalid booking ID: %w", err)
	}

	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	amount := s.converter.ToSettlementCurrency(booking.TotalAmount)
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	// Marker first: a second initiation for the same booking must lose here,
	// before any money can move.
	if err := s.repo.MarkPaymentProcessing(ctx, booking.ID); err != nil {
		return nil, err
	}

	result, err := s.push.InitiatePush(ctx, amount, req.PhoneNumber, booking.BookingRef)
	if err != nil {
		if releaseErr := s.repo.ReleasePaymentProcessing(context.Background(), booking.ID); releaseErr != nil {
			s.log.ErrorWithContext(ctx, "failed to release payment marker", releaseErr,
				map[string]interface{}{"booking_id": booking.ID.String()})
		}
		return nil, fmt.Errorf("%w: %v", ErrPushInitiationFailed, err)
	}

	s.log.LogPushInitiated(ctx, booking.ID.String(), result.CheckoutRequestID, amount)

	go func() {
		if _, err := s.AwaitSettlement(context.Background(), booking.ID, result.CheckoutRequestID); err != nil {
			s.log.ErrorWithContext(context.Background(), "mobile money settlement did not complete", err,
				map[string]interface{}{
					"booking_id":          booking.ID.String(),
					"checkout_request_id": result.CheckoutRequestID,
				})
		}
	}()

	return &PushResponse{
		Success:           true,
		CheckoutRequestID: result.CheckoutRequestID,
		MerchantRequestID: result.MerchantRequestID,
		CustomerMessage:   result.CustomerMessage,
	}, nil
}

// AwaitSettlement polls the correlation store until a terminal outcome
// appears or the overall bound expires. The loop always stops: on completed
// it commits, on failed or timeout it releases the in-progress marker so the
// client can retry. The underlying push is not cancelled upstream on timeout;
// a late callback can still record an outcome nobody observes.
func (s *service) AwaitSettlement(ctx context.Context, bookingID uuid.UUID, checkoutRequestID string) (*Transaction, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	expected := s.converter.ToSettlementCurrency(booking.TotalAmount)

	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-pollCtx.Done():
			s.releaseMarker(booking.ID)
			s.publishFailed(booking, "settlement timed out")
			return nil, ErrPaymentTimeout

		case <-ticker.C:
			outcome, err := s.store.Lookup(pollCtx, checkoutRequestID)
			if err != nil {
				s.log.ErrorWithContext(pollCtx, "correlation lookup failed", err,
					map[string]interface{}{"checkout_request_id": checkoutRequestID})
				continue
			}
			if outcome == nil {
				// No callback yet; polling repeats
				continue
			}

			if !outcome.IsCompleted() {
				s.releaseMarker(booking.ID)
				s.publishFailed(booking, outcome.Reason)
				return nil, fmt.Errorf("%w: %s", ErrPaymentRejected, outcome.Reason)
			}

			if outcome.Amount != 0 && outcome.Amount != expected {
				s.log.InfoWithContext(pollCtx, "callback amount differs from authorized amount",
					map[string]interface{}{
						"booking_id": booking.ID.String(),
						"authorized": expected,
						"collected":  outcome.Amount,
					})
			}

			return s.commitSettlement(booking, expected, MethodMpesa, outcome.Receipt, outcome.PhoneNumber)
		}
	}
}

// RecordCallback parses the provider notification and records the outcome in
// the correlation store. It never touches bookings or transactions: the
// untrusted inbound webhook has no write access to authoritative state. The
// caller acknowledges the provider no matter what happens here.
func (s *service) RecordCallback(ctx context.Context, env MpesaCallbackEnvelope) {
	outcome, parseErr := env.ParseOutcome(time.Now())
	if parseErr != nil {
		s.log.LogCallbackMalformed(ctx, parseErr.Error())
	}
	if outcome == nil {
		return
	}

	s.log.LogCallbackReceived(ctx, outcome.CheckoutRequestID, env.Body.StkCallback.ResultCode)

	if err := s.store.Record(ctx, *outcome); err != nil {
		s.log.ErrorWithContext(ctx, "failed to record callback outcome", err,
			map[string]interface{}{"checkout_request_id": outcome.CheckoutRequestID})
	}
}

// GetPushStatus reads the correlation store. Absence means the callback has
// not arrived yet and is reported as pending, not as an error.
func (s *service) GetPushStatus(ctx context.Context, checkoutRequestID string) (*PushStatusResponse, error) {
	outcome, err := s.store.Lookup(ctx, checkoutRequestID)
	if err != nil {
		return nil, err
	}
	if outcome == nil {
		return &PushStatusResponse{Status: "pending"}, nil
	}

	resolvedAt := outcome.ResolvedAt
	if outcome.IsCompleted() {
		return &PushStatusResponse{
			Status:        string(CorrelationStatusCompleted),
			TransactionID: outcome.Receipt,
			Amount:        outcome.Amount,
			Timestamp:     &resolvedAt,
		}, nil
	}

	return &PushStatusResponse{
		Status:    string(CorrelationStatusFailed),
		Reason:    outcome.Reason,
		Timestamp: &resolvedAt,
	}, nil
}

func (s *service) GetBookingTransactions(ctx context.Context, bookingID uuid.UUID) ([]TransactionResponse, error) {
	txns, err := s.repo.GetTransactionsByBooking(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	responses := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		responses = append(responses, txns[i].ToResponse())
	}
	return responses, nil
}

func (s *service) ListTransactions(ctx context.Context, query TransactionListQuery) (*TransactionListResponse, error) {
	txns, total, err := s.repo.GetAllTransactions(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}

	if query.Page <= 0 {
		query.Page = 1
	}

	responses := make([]TransactionResponse, 0, len(txns))
	for i := range txns {
		responses = append(responses, txns[i].ToResponse())
	}
	return &TransactionListResponse{
		Transactions: responses,
		TotalCount:   total,
		Page:         query.Page,
	}, nil
}

// commitSettlement performs the authoritative paid transition plus the
// transaction insert, retrying the write because at this point money has
// already moved. After the last failed attempt the inconsistency is escalated
// as an alert; the marker is deliberately left in PROCESSING so no second
// charge can start while the state disagrees.
func (s *service) commitSettlement(booking *bookings.Booking, amount int64, method Method, reference, phone string) (*Transaction, error) {
	txn := &Transaction{
		BookingID:     booking.ID,
		Reference:     reference,
		Amount:        amount,
		Currency:      s.converter.Currency,
		PaymentMethod: method.String(),
		Status:        string(TransactionStatusCompleted),
		PhoneNumber:   phone,
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.CommitRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.cfg.CommitRetryBackoff)
		}

		// The commit must not die with the originating request
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := s.repo.CommitSettlement(ctx, txn)
		cancel()

		if err == nil {
			s.log.LogPaymentSettled(context.Background(), booking.ID.String(), reference, method.String(), amount)
			s.publishSettled(booking, txn)
			return txn, nil
		}
		if errors.Is(err, ErrAlreadyPaid) {
			return nil, ErrAlreadyPaid
		}
		lastErr = err
	}

	s.log.LogSettlementAlert(context.Background(), booking.ID.String(), reference, lastErr)
	if err := s.publisher.PublishAlert(context.Background(), AlertEvent{
		BookingID:  booking.ID.String(),
		Reference:  reference,
		Method:     method.String(),
		Amount:     amount,
		Currency:   s.converter.Currency,
		Error:      lastErr.Error(),
		OccurredAt: time.Now(),
	}); err != nil {
		s.log.ErrorWithContext(context.Background(), "failed to publish settlement alert", err,
			map[string]interface{}{"booking_id": booking.ID.String()})
	}

	return nil, fmt.Errorf("%w: %v", ErrBookingUpdateFailed, lastErr)
}

func (s *service) publishSettled(booking *bookings.Booking, txn *Transaction) {
	event := SettlementEvent{
		Type:       EventPaymentSettled,
		BookingID:  booking.ID.String(),
		BookingRef: booking.BookingRef,
		Reference:  txn.Reference,
		Method:     txn.PaymentMethod,
		Amount:     txn.Amount,
		Currency:   txn.Currency,
		OccurredAt: time.Now(),
	}
	if err := s.publisher.PublishSettlement(context.Background(), event); err != nil {
		s.log.ErrorWithContext(context.Background(), "failed to publish settlement event", err,
			map[string]interface{}{"booking_id": booking.ID.String()})
	}
}

func (s *service) publishFailed(booking *bookings.Booking, reason string) {
	event := SettlementEvent{
		Type:       EventPaymentFailed,
		BookingID:  booking.ID.String(),
		BookingRef: booking.BookingRef,
		Method:     MethodMpesa.String(),
		Currency:   s.converter.Currency,
		Reason:     reason,
		OccurredAt: time.Now(),
	}
	if err := s.publisher.PublishSettlement(context.Background(), event); err != nil {
		s.log.ErrorWithContext(context.Background(), "failed to publish settlement event", err,
			map[string]interface{}{"booking_id": booking.ID.String()})
	}
}

func (s *service) releaseMarker(bookingID uuid.UUID) {
	if err := s.repo.ReleasePaymentProcessing(context.Background(), bookingID); err != nil {
		s.log.ErrorWithContext(context.Background(), "failed to release payment marker", err,
			map[string]interface{}{"booking_id": bookingID.String()})
	}
}
