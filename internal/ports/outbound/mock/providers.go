package mock

import (
	context "context"
	reflect "reflect"
	time "time"

	uuid "github.com/google/uuid"
	listing "github.com/nordicloop-admin/nordic-loop-platform-sub002/internal/domain/listing"
	gomock "go.uber.org/mock/gomock"
)

// MockListingProvider is a mock of ListingProvider interface.
type MockListingProvider struct {
	ctrl     *gomock.Controller
	recorder *MockListingProviderMockRecorder
	isgomock struct{}
}

// MockListingProviderMockRecorder is the mock recorder for MockListingProvider.
type MockListingProviderMockRecorder struct {
	mock *MockListingProvider
}

// NewMockListingProvider creates a new mock instance.
func NewMockListingProvider(ctrl *gomock.Controller) *MockListingProvider {
	mock := &MockListingProvider{ctrl: ctrl}
	mock.recorder = &MockListingProviderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockListingProvider) EXPECT() *MockListingProviderMockRecorder {
	return m.recorder
}

// GetListing mocks base method.
func (m *MockListingProvider) GetListing(ctx context.Context, id uuid.UUID) (*listing.Listing, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetListing", ctx, id)
	ret0, _ := ret[0].(*listing.Listing)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetListing indicates an expected call of GetListing.
func (mr *MockListingProviderMockRecorder) GetListing(ctx, id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetListing", reflect.TypeOf((*MockListingProvider)(nil).GetListing), ctx, id)
}

// ListExpired mocks base method.
func (m *MockListingProvider) ListExpired(ctx context.Context, before time.Time, limit int) ([]uuid.UUID, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListExpired", ctx, before, limit)
	ret0, _ := ret[0].([]uuid.UUID)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListExpired indicates an expected call of ListExpired.
func (mr *MockListingProviderMockRecorder) ListExpired(ctx, before, limit any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListExpired", reflect.TypeOf((*MockListingProvider)(nil).ListExpired), ctx, before, limit)
}

// MockIdentityProvider is a mock of IdentityProvider interface.
type MockIdentityProvider struct {
	ctrl     *gomock.Controller
	recorder *MockIdentityProviderMockRecorder
	isgomock struct{}
}

// MockIdentityProviderMockRecorder is the mock recorder for MockIdentityProvider.
type MockIdentityProviderMockRecorder struct {
	mock *MockIdentityProvider
}

// NewMockIdentityProvider creates a new mock instance.
func NewMockIdentityProvider(ctrl *gomock.Controller) *MockIdentityProvider {
	mock := &MockIdentityProvider{ctrl: ctrl}
	mock.recorder = &MockIdentityProviderMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockIdentityProvider) EXPECT() *MockIdentityProviderMockRecorder {
	return m.recorder
}

// CanBid mocks base method.
func (m *MockIdentityProvider) CanBid(ctx context.Context, userID uuid.UUID) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CanBid", ctx, userID)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CanBid indicates an expected call of CanBid.
func (mr *MockIdentityProviderMockRecorder) CanBid(ctx, userID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CanBid", reflect.TypeOf((*MockIdentityProvider)(nil).CanBid), ctx, userID)
}

// IsAuthenticated mocks base method.
func (m *MockIdentityProvider) IsAuthenticated(ctx context.Context, userID uuid.UUID) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IsAuthenticated", ctx, userID)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// IsAuthenticated indicates an expected call of IsAuthenticated.
func (mr *MockIdentityProviderMockRecorder) IsAuthenticated(ctx, userID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IsAuthenticated", reflect.TypeOf((*MockIdentityProvider)(nil).IsAuthenticated), ctx, userID)
}

// IsThirdParty mocks base method.
func (m *MockIdentityProvider) IsThirdParty(ctx context.Context, userID uuid.UUID) (bool, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IsThirdParty", ctx, userID)
	ret0, _ := ret[0].(bool)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// IsThirdParty indicates an expected call of IsThirdParty.
func (mr *MockIdentityProviderMockRecorder) IsThirdParty(ctx, userID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IsThirdParty", reflect.TypeOf((*MockIdentityProvider)(nil).IsThirdParty), ctx, userID)
}

// MockListingLocker is a mock of ListingLocker interface.
type MockListingLocker struct {
	ctrl     *gomock.Controller
	recorder *MockListingLockerMockRecorder
	isgomock struct{}
}

// MockListingLockerMockRecorder is the mock recorder for MockListingLocker.
type MockListingLockerMockRecorder struct {
	mock *MockListingLocker
}

// NewMockListingLocker creates a new mock instance.
func NewMockListingLocker(ctrl *gomock.Controller) *MockListingLocker {
	mock := &MockListingLocker{ctrl: ctrl}
	mock.recorder = &MockListingLockerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockListingLocker) EXPECT() *MockListingLockerMockRecorder {
	return m.recorder
}

// Lock mocks base method.
func (m *MockListingLocker) Lock(ctx context.Context, listingID uuid.UUID) (func(), error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Lock", ctx, listingID)
	ret0, _ := ret[0].(func())
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Lock indicates an expected call of Lock.
func (mr *MockListingLockerMockRecorder) Lock(ctx, listingID any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Lock", reflect.TypeOf((*MockListingLocker)(nil).Lock), ctx, listingID)
}

// MockClosingScheduler is a mock of ClosingScheduler interface.
type MockClosingScheduler struct {
	ctrl     *gomock.Controller
	recorder *MockClosingSchedulerMockRecorder
	isgomock struct{}
}

// MockClosingSchedulerMockRecorder is the mock recorder for MockClosingScheduler.
type MockClosingSchedulerMockRecorder struct {
	mock *MockClosingScheduler
}

// NewMockClosingScheduler creates a new mock instance.
func NewMockClosingScheduler(ctrl *gomock.Controller) *MockClosingScheduler {
	mock := &MockClosingScheduler{ctrl: ctrl}
	mock.recorder = &MockClosingSchedulerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockClosingScheduler) EXPECT() *MockClosingSchedulerMockRecorder {
	return m.recorder
}

// ScheduleClosing mocks base method.
func (m *MockClosingScheduler) ScheduleClosing(ctx context.Context, listingID uuid.UUID, endTime time.Time) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ScheduleClosing", ctx, listingID, endTime)
	ret0, _ := ret[0].(error)
	return ret0
}

// ScheduleClosing indicates an expected call of ScheduleClosing.
func (mr *MockClosingSchedulerMockRecorder) ScheduleClosing(ctx, listingID, endTime any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ScheduleClosing", reflect.TypeOf((*MockClosingScheduler)(nil).ScheduleClosing), ctx, listingID, endTime)
}
