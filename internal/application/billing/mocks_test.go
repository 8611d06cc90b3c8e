package billing

import (
	"context"
	"time"

	"github.com/ispcrm/backend/internal/domain/audit"
	"github.com/ispcrm/backend/internal/domain/billing"
	"github.com/ispcrm/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

type MockSubscriptionRepository struct {
	mock.Mock
}

func (m *MockSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindByClient(ctx context.Context, clientID uuid.UUID) (*billing.Subscription, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindAll(ctx context.Context, filter billing.SubscriptionFilter) ([]billing.Subscription, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) FindActive(ctx context.Context) ([]billing.Subscription, error) {
	args := m.Called(ctx)
	return args.Get(0).([]billing.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepository) Save(ctx context.Context, sub *billing.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) SaveWithLock(ctx context.Context, sub *billing.Subscription) error {
	args := m.Called(ctx, sub)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSubscriptionRepository) Count(ctx context.Context, filter billing.SubscriptionFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSubscriptionRepository) ExistsByClient(ctx context.Context, clientID uuid.UUID) (bool, error) {
	args := m.Called(ctx, clientID)
	return args.Bool(0), args.Error(1)
}

type MockChargeRepository struct {
	mock.Mock
}

func (m *MockChargeRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Charge, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindBySubscription(ctx context.Context, subscriptionID uuid.UUID, filter billing.ChargeFilter) ([]billing.Charge, error) {
	args := m.Called(ctx, subscriptionID, filter)
	return args.Get(0).([]billing.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindAllBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]billing.Charge, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Get(0).([]billing.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindPendingBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]billing.Charge, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Get(0).([]billing.Charge), args.Error(1)
}

func (m *MockChargeRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]billing.Charge, error) {
	args := m.Called(ctx, paymentID)
	return args.Get(0).([]billing.Charge), args.Error(1)
}

func (m *MockChargeRepository) ExistsForPeriod(ctx context.Context, subscriptionID uuid.UUID, period billing.BillingPeriod) (bool, error) {
	args := m.Called(ctx, subscriptionID, period)
	return args.Bool(0), args.Error(1)
}

func (m *MockChargeRepository) Save(ctx context.Context, charge *billing.Charge) error {
	args := m.Called(ctx, charge)
	return args.Error(0)
}

func (m *MockChargeRepository) SaveAll(ctx context.Context, charges []*billing.Charge) error {
	args := m.Called(ctx, charges)
	return args.Error(0)
}

func (m *MockChargeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChargeRepository) SumPendingBySubscription(ctx context.Context, subscriptionID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, subscriptionID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockChargeRepository) Count(ctx context.Context, filter billing.ChargeFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindByClient(ctx context.Context, clientID uuid.UUID, filter billing.PaymentFilter) ([]billing.Payment, error) {
	args := m.Called(ctx, clientID, filter)
	return args.Get(0).([]billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockPaymentRepository) Count(ctx context.Context, filter billing.PaymentFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPaymentRepository) SumByClient(ctx context.Context, clientID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

type MockChangeRecordRepository struct {
	mock.Mock
}

func (m *MockChangeRecordRepository) Append(ctx context.Context, record *audit.ChangeRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockChangeRecordRepository) FindByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]audit.ChangeRecord, error) {
	args := m.Called(ctx, entityType, entityID)
	return args.Get(0).([]audit.ChangeRecord), args.Error(1)
}

func (m *MockChangeRecordRepository) FindAll(ctx context.Context, filter audit.ChangeRecordFilter) ([]audit.ChangeRecord, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]audit.ChangeRecord), args.Error(1)
}

func (m *MockChangeRecordRepository) Count(ctx context.Context, filter audit.ChangeRecordFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

type MockChargeTemplateRepository struct {
	mock.Mock
}

func (m *MockChargeTemplateRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.ChargeTemplate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.ChargeTemplate), args.Error(1)
}

func (m *MockChargeTemplateRepository) FindAll(ctx context.Context, filter catalog.ChargeTemplateFilter) ([]catalog.ChargeTemplate, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.ChargeTemplate), args.Error(1)
}

func (m *MockChargeTemplateRepository) FindActive(ctx context.Context) ([]catalog.ChargeTemplate, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalog.ChargeTemplate), args.Error(1)
}

func (m *MockChargeTemplateRepository) Save(ctx context.Context, template *catalog.ChargeTemplate) error {
	args := m.Called(ctx, template)
	return args.Error(0)
}

func (m *MockChargeTemplateRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockChargeTemplateRepository) Count(ctx context.Context, filter catalog.ChargeTemplateFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChargeTemplateRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

// =============================================================================
// Transaction Scope Fake
// =============================================================================

// fakeTransactionScope runs the function against the supplied mocks without
// any real transaction
type fakeTransactionScope struct {
	subs     *MockSubscriptionRepository
	charges  *MockChargeRepository
	payments *MockPaymentRepository
	records  *MockChangeRecordRepository
}

func newFakeScope() *fakeTransactionScope {
	return &fakeTransactionScope{
		subs:     new(MockSubscriptionRepository),
		charges:  new(MockChargeRepository),
		payments: new(MockPaymentRepository),
		records:  new(MockChangeRecordRepository),
	}
}

func (f *fakeTransactionScope) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(f)
}

func (f *fakeTransactionScope) Subscriptions() billing.SubscriptionRepository { return f.subs }
func (f *fakeTransactionScope) Charges() billing.ChargeRepository             { return f.charges }
func (f *fakeTransactionScope) Payments() billing.PaymentRepository           { return f.payments }
func (f *fakeTransactionScope) Audit() audit.ChangeRecordRepository           { return f.records }

// =============================================================================
// Idempotency Store Fake
// =============================================================================

// fakeIdempotencyStore reports every key as fresh unless seeded
type fakeIdempotencyStore struct {
	seen map[string]bool
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{seen: make(map[string]bool)}
}

func (s *fakeIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	if s.seen[eventID] {
		return false, nil
	}
	s.seen[eventID] = true
	return true, nil
}

func (s *fakeIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	return s.seen[eventID], nil
}

func (s *fakeIdempotencyStore) Release(ctx context.Context, eventID string) error {
	delete(s.seen, eventID)
	return nil
}

func (s *fakeIdempotencyStore) Close() error { return nil }
