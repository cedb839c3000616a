package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fitstack/fitstack-bookings/internal/adapters/memory"
	"github.com/fitstack/fitstack-bookings/internal/core/domain"
	"github.com/fitstack/fitstack-bookings/internal/core/service"
)

// capturingPublisher records confirmed-payment events.
type capturingPublisher struct {
	events []domain.PaymentConfirmedEvent
	err    error
}

func (p *capturingPublisher) PublishPaymentConfirmed(ctx context.Context, event domain.PaymentConfirmedEvent) error {
	p.events = append(p.events, event)
	return p.err
}

type reconcileFixture struct {
	repo      *memory.BookingRepository
	redis     redismock.ClientMock
	publisher *capturingPublisher
	svc       *service.ReconcileService
	booking   *domain.Booking
}

func newReconcileFixture(t *testing.T, method domain.PaymentMethod) *reconcileFixture {
	t.Helper()
	repo := memory.NewBookingRepository()
	rdb, mock := redismock.NewClientMock()
	publisher := &capturingPublisher{}
	svc := service.NewReconcileService(repo, rdb, publisher, zap.NewNop())

	bookings := service.NewBookingService(repo, zap.NewNop())
	booking, err := bookings.Create(context.Background(), "user-1", gymDraft(method))
	require.NoError(t, err)

	return &reconcileFixture{repo: repo, redis: mock, publisher: publisher, svc: svc, booking: booking}
}

func attemptFor(b *domain.Booking, status string) domain.ReconciliationAttempt {
	return domain.ReconciliationAttempt{
		TransactionRef: "txn-1",
		BookingID:      b.ID,
		Subject:        b.Subject,
		Amount:         b.Charge.Amount,
		ProviderStatus: status,
	}
}

func TestVerifySuccessConfirmsBooking(t *testing.T) {
	f := newReconcileFixture(t, domain.PaymentMethodGateway)
	f.redis.ExpectSetNX("recon:txn:txn-1", f.booking.ID, 24*time.Hour).SetVal(true)

	booking, err := f.svc.Verify(context.Background(), attemptFor(f.booking, "approved"))
	require.NoError(t, err)

	assert.Equal(t, domain.BookingStatusConfirmed, booking.Status)
	assert.Equal(t, domain.PaymentStatusCompleted, booking.Payment.Status)
	assert.Equal(t, "txn-1", booking.Payment.TransactionRef)

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, f.booking.ID, f.publisher.events[0].BookingID)
	assert.Equal(t, f.booking.Charge.Amount, f.publisher.events[0].Amount)

	assert.NoError(t, f.redis.ExpectationsWereMet())
}

func TestVerifyRepeatCallIsIdempotent(t *testing.T) {
	f := newReconcileFixture(t, domain.PaymentMethodGateway)
	f.redis.ExpectSetNX("recon:txn:txn-1", f.booking.ID, 24*time.Hour).SetVal(true)
	ctx := context.Background()

	first, err := f.svc.Verify(ctx, attemptFor(f.booking, "approved"))
	require.NoError(t, err)
	firstProcessedAt := first.Payment.ProcessedAt

	// Second pass short-circuits on the completed payment: no reservation, no
	// second event, the stored state returned as-is.
	second, err := f.svc.Verify(ctx, attemptFor(f.booking, "approved"))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, second.Payment.Status)
	assert.Equal(t, firstProcessedAt, second.Payment.ProcessedAt)
	assert.Len(t, f.publisher.events, 1)
	assert.NoError(t, f.redis.ExpectationsWereMet())
}

func TestVerifyLostReservationRaceAppliesNothing(t *testing.T) {
	f := newReconcileFixture(t, domain.PaymentMethodGateway)
	// Another verify holds the reservation for this transaction; this call
	// must apply nothing and hand back whatever the store says right now.
	f.redis.ExpectSetNX("recon:txn:txn-1", f.booking.ID, 24*time.Hour).SetVal(false)

	booking, err := f.svc.Verify(context.Background(), attemptFor(f.booking, "approved"))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, booking.Payment.Status)
	assert.Empty(t, f.publisher.events)
	assert.NoError(t, f.redis.ExpectationsWereMet())
}

func TestVerifyCashIsNotReconcilable(t *testing.T) {
	f := newReconcileFixture(t, domain.PaymentMethodCash)

	_, err := f.svc.Verify(context.Background(), attemptFor(f.booking, "approved"))
	assert.ErrorIs(t, err, domain.ErrCashNotReconcilable)

	stored, err := f.repo.GetByID(context.Background(), f.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, stored.Payment.Status)
}

func TestVerifyAmountMismatch(t *testing.T) {
	f := newReconcileFixture(t, domain.PaymentMethodGateway)

	attempt := attemptFor(f.booking, "approved")
	attempt.Amount = f.booking.Charge.Amount + 50

	_, err := f.svc.Verify(context.Background(), attempt)
	assert.ErrorIs(t, err, domain.ErrAmountMismatch)

	// The discrepancy leaves the booking pending for manual review, it is
	// neither confirmed nor failed.
	stored, err := f.repo.GetByID(context.Background(), f.booking.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, stored.Status)
	assert.Equal(t, domain.PaymentStatusPending, stored.Payment.Status)
	assert.Empty(t, f.publisher.events)
}

func TestVerifySettlesProRatedChargeAtTheCent(t *testing.T) {
	repo := memory.NewBookingRepository()
	rdb, mock := redismock.NewClientMock()
	publisher := &capturingPublisher{}
	svc := service.NewReconcileService(repo, rdb, publisher, zap.NewNop())
	bookings := service.NewBookingService(repo, zap.NewNop())
	ctx := context.Background()

	// 50 minutes at 200/hr is 166.666... before rounding; the provider echoes
	// whole minor units back. The two must agree or every pro-rated booking
	// would die on a mismatch.
	booking, err := bookings.Create(ctx, "user-1", domain.BookingDraft{
		Subject:     domain.SubjectTrainer,
		Category:    "general",
		StartsAt:    time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
		DurationMin: 50,
		Method:      domain.PaymentMethodGateway,
	})
	require.NoError(t, err)
	require.Equal(t, 166.67, booking.Charge.Amount)

	mock.ExpectSetNX("recon:txn:txn-50", booking.ID, 24*time.Hour).SetVal(true)
	verified, err := svc.Verify(ctx, domain.ReconciliationAttempt{
		TransactionRef: "txn-50",
		BookingID:      booking.ID,
		Subject:        domain.SubjectTrainer,
		Amount:         166.67,
		ProviderStatus: "approved",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, verified.Payment.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// cancelRacingRepo cancels the stored booking right before the first guarded
// write goes through, simulating a cancel that lands between the verifier's
// read and its update.
type cancelRacingRepo struct {
	*memory.BookingRepository
	raced bool
}

func (r *cancelRacingRepo) Update(ctx context.Context, booking *domain.Booking, from domain.BookingStatus) error {
	if !r.raced {
		r.raced = true
		stored, err := r.BookingRepository.GetByID(ctx, booking.ID)
		if err == nil && stored.Status == domain.BookingStatusPending {
			if err := stored.Cancel(stored.UserID); err == nil {
				_ = r.BookingRepository.Update(ctx, stored, domain.BookingStatusPending)
			}
		}
	}
	return r.BookingRepository.Update(ctx, booking, from)
}

func TestVerifyDoesNotResurrectConcurrentlyCancelledBooking(t *testing.T) {
	repo := &cancelRacingRepo{BookingRepository: memory.NewBookingRepository()}
	rdb, mock := redismock.NewClientMock()
	publisher := &capturingPublisher{}
	svc := service.NewReconcileService(repo, rdb, publisher, zap.NewNop())
	bookings := service.NewBookingService(repo, zap.NewNop())
	ctx := context.Background()

	booking, err := bookings.Create(ctx, "user-1", gymDraft(domain.PaymentMethodGateway))
	require.NoError(t, err)

	mock.ExpectSetNX("recon:txn:txn-1", booking.ID, 24*time.Hour).SetVal(true)
	result, err := svc.Verify(ctx, attemptFor(booking, "approved"))
	require.NoError(t, err)

	// The cancel won the store; verify hands back its state instead of
	// stamping a completed payment over a cancelled booking.
	assert.Equal(t, domain.BookingStatusCancelled, result.Status)
	assert.Equal(t, domain.PaymentStatusPending, result.Payment.Status)
	assert.Empty(t, publisher.events)
}

func TestVerifyCancelledBookingReturnedAsIs(t *testing.T) {
	f := newReconcileFixture(t, domain.PaymentMethodGateway)
	ctx := context.Background()

	stored, err := f.repo.GetByID(ctx, f.booking.ID)
	require.NoError(t, err)
	require.NoError(t, stored.Cancel("user-1"))
	require.NoError(t, f.repo.Update(ctx, stored, domain.BookingStatusPending))

	booking, err := f.svc.Verify(ctx, attemptFor(f.booking, "approved"))
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, booking.Status)
	assert.Equal(t, domain.PaymentStatusPending, booking.Payment.Status)
	assert.Empty(t, f.publisher.events)
}

func TestVerifyProviderFailureMarksPaymentFailed(t *testing.T) {
	f := newReconcileFixture(t, domain.PaymentMethodGateway)

	booking, err := f.svc.Verify(context.Background(), attemptFor(f.booking, "rejected"))
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusPending, booking.Status)
	assert.Equal(t, domain.PaymentStatusFailed, booking.Payment.Status)
	assert.Equal(t, "txn-1", booking.Payment.TransactionRef)
	assert.Empty(t, f.publisher.events)
}

func TestVerifyProcessingLeavesBookingUntouched(t *testing.T) {
	f := newReconcileFixture(t, domain.PaymentMethodGateway)

	for _, status := range []string{"in_process", "pending", "something_new"} {
		booking, err := f.svc.Verify(context.Background(), attemptFor(f.booking, status))
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusPending, booking.Status)
		assert.Equal(t, domain.PaymentStatusPending, booking.Payment.Status)
	}
}

func TestVerifyMissingReferencesRejected(t *testing.T) {
	f := newReconcileFixture(t, domain.PaymentMethodGateway)

	attempt := attemptFor(f.booking, "approved")
	attempt.TransactionRef = ""
	_, err := f.svc.Verify(context.Background(), attempt)
	assert.ErrorIs(t, err, domain.ErrMissingConfirmation)

	attempt = attemptFor(f.booking, "approved")
	attempt.BookingID = ""
	_, err = f.svc.Verify(context.Background(), attempt)
	assert.ErrorIs(t, err, domain.ErrMissingConfirmation)
}

func TestVerifyUnknownBooking(t *testing.T) {
	f := newReconcileFixture(t, domain.PaymentMethodGateway)

	attempt := attemptFor(f.booking, "approved")
	attempt.BookingID = "no-such-booking"
	_, err := f.svc.Verify(context.Background(), attempt)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestVerifySurvivesRedisOutage(t *testing.T) {
	f := newReconcileFixture(t, domain.PaymentMethodGateway)
	f.redis.ExpectSetNX("recon:txn:txn-1", f.booking.ID, 24*time.Hour).
		SetErr(errors.New("connection refused"))

	// The guard degrades; the repository state check keeps repeats safe.
	booking, err := f.svc.Verify(context.Background(), attemptFor(f.booking, "approved"))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, booking.Payment.Status)
}

func TestVerifySurvivesPublishFailure(t *testing.T) {
	f := newReconcileFixture(t, domain.PaymentMethodGateway)
	f.publisher.err = errors.New("broker down")
	f.redis.ExpectSetNX("recon:txn:txn-1", f.booking.ID, 24*time.Hour).SetVal(true)

	booking, err := f.svc.Verify(context.Background(), attemptFor(f.booking, "approved"))
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusCompleted, booking.Payment.Status)
}
