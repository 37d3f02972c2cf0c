package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/renholm/ticket-triage-backend/internal/core/domain"
	"github.com/renholm/ticket-triage-backend/internal/core/ports"
)

// MockTicketRepository is a mock implementation of ports.TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func NewMockTicketRepository() *MockTicketRepository {
	return &MockTicketRepository{}
}

func (m *MockTicketRepository) Create(ctx context.Context, ticket *domain.Ticket) (*domain.Ticket, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) List(ctx context.Context, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ApplyTriage(ctx context.Context, update ports.TriageUpdate) error {
	args := m.Called(ctx, update)
	return args.Error(0)
}

// MockUserRepository is a mock implementation of ports.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateRoleAndSkills(ctx context.Context, params ports.UpdateUserParams) (*domain.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) FirstAdmin(ctx context.Context) (*domain.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) ModeratorsMatchingSkills(ctx context.Context, terms []string) ([]*domain.User, error) {
	args := m.Called(ctx, terms)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.User), args.Error(1)
}

// MockTriageRunRepository is a mock implementation of ports.TriageRunRepository
type MockTriageRunRepository struct {
	mock.Mock
}

func NewMockTriageRunRepository() *MockTriageRunRepository {
	return &MockTriageRunRepository{}
}

func (m *MockTriageRunRepository) Create(ctx context.Context, run *domain.TriageRun) (*domain.TriageRun, error) {
	args := m.Called(ctx, run)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TriageRun), args.Error(1)
}

func (m *MockTriageRunRepository) Get(ctx context.Context, ticketID int64, attempt int) (*domain.TriageRun, error) {
	args := m.Called(ctx, ticketID, attempt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TriageRun), args.Error(1)
}

func (m *MockTriageRunRepository) SaveStep(ctx context.Context, runID uuid.UUID, name domain.StepName, result domain.StepResult) error {
	args := m.Called(ctx, runID, name, result)
	return args.Error(0)
}

func (m *MockTriageRunRepository) SetStatus(ctx context.Context, runID uuid.UUID, status domain.RunStatus) error {
	args := m.Called(ctx, runID, status)
	return args.Error(0)
}

func (m *MockTriageRunRepository) LatestAttempt(ctx context.Context, ticketID int64) (int, error) {
	args := m.Called(ctx, ticketID)
	return args.Int(0), args.Error(1)
}

// MockClassifier is a mock implementation of ports.Classifier
type MockClassifier struct {
	mock.Mock
}

func NewMockClassifier() *MockClassifier {
	return &MockClassifier{}
}

func (m *MockClassifier) Classify(ctx context.Context, ticket *domain.Ticket) (*domain.Classification, error) {
	args := m.Called(ctx, ticket)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Classification), args.Error(1)
}

// MockModeratorMatcher is a mock implementation of ports.ModeratorMatcher
type MockModeratorMatcher struct {
	mock.Mock
}

func NewMockModeratorMatcher() *MockModeratorMatcher {
	return &MockModeratorMatcher{}
}

func (m *MockModeratorMatcher) FindAssignee(ctx context.Context, classification *domain.Classification) (*domain.User, error) {
	args := m.Called(ctx, classification)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockNotifier is a mock implementation of ports.Notifier
type MockNotifier struct {
	mock.Mock
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

func (m *MockNotifier) NotifyAssignment(ctx context.Context, assignee *domain.User, ticket *domain.Ticket) error {
	args := m.Called(ctx, assignee, ticket)
	return args.Error(0)
}

// MockTicketService is a mock implementation of ports.TicketService
type MockTicketService struct {
	mock.Mock
}

func NewMockTicketService() *MockTicketService {
	return &MockTicketService{}
}

func (m *MockTicketService) CreateTicket(ctx context.Context, params ports.CreateTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) GetTicket(ctx context.Context, ticketID int64, viewerID uuid.UUID) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID, viewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) ListTickets(ctx context.Context, viewerID uuid.UUID, params ports.ListTicketsParams) ([]*domain.Ticket, error) {
	args := m.Called(ctx, viewerID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Ticket), args.Error(1)
}

func (m *MockTicketService) ApplyTriageResult(ctx context.Context, params ports.ApplyTriageParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// MockEventBus is a mock implementation of ports.EventBus
type MockEventBus struct {
	mock.Mock
}

func NewMockEventBus() *MockEventBus {
	return &MockEventBus{}
}

func (m *MockEventBus) Publish(ctx context.Context, event domain.Event) {
	m.Called(ctx, event)
}

func (m *MockEventBus) Subscribe(eventType domain.EventType, handler ports.EventHandler) {
	m.Called(eventType, handler)
}

// PassthroughTxManager implements ports.TransactionManager by running
// the function directly, without a real transaction. For unit tests of
// services that wrap work in WithTransaction.
type PassthroughTxManager struct{}

func (PassthroughTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.Event) error {
	args := m.Called(event)
	return args.Error(0)
}
