package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/prn-tf/teamledger/internal/domain"
	"github.com/prn-tf/teamledger/internal/repository"
)

// =============================================================================
// Mock repositories
// =============================================================================

// MockUserRepository is a mock implementation of repository.UserRepository.
type MockUserRepository struct {
	users  map[int64]*domain.User
	nextID int64
	getErr error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:  make(map[int64]*domain.User),
		nextID: 1,
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	user.ID = m.nextID
	m.nextID++
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if u, exists := m.users[id]; exists {
		copied := *u
		return &copied, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.ID]; !exists {
		return domain.ErrUserNotFound
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	if _, exists := m.users[id]; !exists {
		return domain.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, opts repository.UserListOptions) ([]*domain.User, int64, error) {
	var result []*domain.User
	for _, u := range m.users {
		copied := *u
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, int64(len(result)), nil
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	for _, u := range m.users {
		if u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// MockTeamRepository is a mock implementation of repository.TeamRepository.
type MockTeamRepository struct {
	teams   map[int64]*domain.Team
	members map[int64][]int64 // teamID -> userIDs
	nextID  int64
}

func NewMockTeamRepository() *MockTeamRepository {
	return &MockTeamRepository{
		teams:   make(map[int64]*domain.Team),
		members: make(map[int64][]int64),
		nextID:  1,
	}
}

func (m *MockTeamRepository) Create(ctx context.Context, team *domain.Team) error {
	for _, t := range m.teams {
		if t.CreatorID == team.CreatorID && t.Name == team.Name {
			return domain.ErrDuplicateTeamName
		}
	}
	team.ID = m.nextID
	m.nextID++
	copied := *team
	m.teams[team.ID] = &copied
	m.members[team.ID] = []int64{team.CreatorID}
	return nil
}

func (m *MockTeamRepository) GetByID(ctx context.Context, id int64) (*domain.Team, error) {
	if t, exists := m.teams[id]; exists {
		copied := *t
		return &copied, nil
	}
	return nil, domain.ErrTeamNotFound
}

func (m *MockTeamRepository) GetBySlug(ctx context.Context, slug string) (*domain.Team, error) {
	for _, t := range m.teams {
		if t.Slug == slug {
			copied := *t
			return &copied, nil
		}
	}
	return nil, domain.ErrTeamNotFound
}

func (m *MockTeamRepository) Update(ctx context.Context, team *domain.Team) error {
	stored, exists := m.teams[team.ID]
	if !exists {
		return domain.ErrTeamNotFound
	}
	// Slug is immutable at the store level too.
	copied := *team
	copied.Slug = stored.Slug
	m.teams[team.ID] = &copied
	return nil
}

func (m *MockTeamRepository) ListByMember(ctx context.Context, userID int64) ([]*domain.Team, error) {
	var result []*domain.Team
	for teamID, userIDs := range m.members {
		for _, id := range userIDs {
			if id == userID {
				copied := *m.teams[teamID]
				result = append(result, &copied)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockTeamRepository) MemberTeamIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	for teamID, userIDs := range m.members {
		for _, id := range userIDs {
			if id == userID {
				ids = append(ids, teamID)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *MockTeamRepository) AddMember(ctx context.Context, teamID, userID int64) error {
	if _, exists := m.teams[teamID]; !exists {
		return domain.ErrTeamNotFound
	}
	m.members[teamID] = append(m.members[teamID], userID)
	return nil
}

func (m *MockTeamRepository) ExistsByNameForCreator(ctx context.Context, creatorID int64, name string) (bool, error) {
	for _, t := range m.teams {
		if t.CreatorID == creatorID && t.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// MockCategoryRepository is a mock implementation of repository.CategoryRepository.
type MockCategoryRepository struct {
	categories map[int64]*domain.Category
	itemCounts map[int64]int // categoryID -> item count
	nextID     int64
}

func NewMockCategoryRepository() *MockCategoryRepository {
	return &MockCategoryRepository{
		categories: make(map[int64]*domain.Category),
		itemCounts: make(map[int64]int),
		nextID:     1,
	}
}

func (m *MockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	for _, c := range m.categories {
		if c.TeamID == category.TeamID && c.Name == category.Name {
			return domain.ErrDuplicateCategoryName
		}
	}
	category.ID = m.nextID
	m.nextID++
	copied := *category
	m.categories[category.ID] = &copied
	return nil
}

func (m *MockCategoryRepository) GetByID(ctx context.Context, id int64) (*domain.Category, error) {
	if c, exists := m.categories[id]; exists {
		copied := *c
		return &copied, nil
	}
	return nil, domain.ErrCategoryNotFound
}

func (m *MockCategoryRepository) ListByTeam(ctx context.Context, teamID int64, typeFilter *domain.CategoryType) ([]*domain.Category, error) {
	var result []*domain.Category
	for _, c := range m.categories {
		if c.TeamID != teamID {
			continue
		}
		if typeFilter != nil && c.Type != *typeFilter {
			continue
		}
		copied := *c
		result = append(result, &copied)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, exists := m.categories[category.ID]; !exists {
		return domain.ErrCategoryNotFound
	}
	for _, c := range m.categories {
		if c.ID != category.ID && c.TeamID == category.TeamID && c.Name == category.Name {
			return domain.ErrDuplicateCategoryName
		}
	}
	copied := *category
	m.categories[category.ID] = &copied
	return nil
}

func (m *MockCategoryRepository) Delete(ctx context.Context, id int64) error {
	if _, exists := m.categories[id]; !exists {
		return domain.ErrCategoryNotFound
	}
	if m.itemCounts[id] > 0 {
		return domain.ErrCategoryInUse
	}
	delete(m.categories, id)
	return nil
}

func (m *MockCategoryRepository) ExistsByName(ctx context.Context, teamID int64, name string) (bool, error) {
	for _, c := range m.categories {
		if c.TeamID == teamID && c.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// MockItemRepository is a mock implementation of repository.ItemRepository.
type MockItemRepository struct {
	items      map[int64]*domain.Item
	categories *MockCategoryRepository
	nextID     int64
}

func NewMockItemRepository(categories *MockCategoryRepository) *MockItemRepository {
	return &MockItemRepository{
		items:      make(map[int64]*domain.Item),
		categories: categories,
		nextID:     1,
	}
}

func (m *MockItemRepository) Create(ctx context.Context, item *domain.Item) error {
	if _, exists := m.categories.categories[item.CategoryID]; !exists {
		return domain.ErrCategoryNotFound
	}
	item.ID = m.nextID
	m.nextID++
	copied := *item
	m.items[item.ID] = &copied
	m.categories.itemCounts[item.CategoryID]++
	return nil
}

func (m *MockItemRepository) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	item, exists := m.items[id]
	if !exists {
		return nil, domain.ErrItemNotFound
	}
	copied := *item
	if c, ok := m.categories.categories[item.CategoryID]; ok {
		copied.CategoryName = c.Name
		copied.CategoryType = c.Type
	}
	return &copied, nil
}

func (m *MockItemRepository) Update(ctx context.Context, item *domain.Item) error {
	stored, exists := m.items[item.ID]
	if !exists {
		return domain.ErrItemNotFound
	}
	if _, ok := m.categories.categories[item.CategoryID]; !ok {
		return domain.ErrCategoryNotFound
	}
	m.categories.itemCounts[stored.CategoryID]--
	m.categories.itemCounts[item.CategoryID]++
	copied := *item
	m.items[item.ID] = &copied
	return nil
}

func (m *MockItemRepository) Delete(ctx context.Context, id int64) error {
	item, exists := m.items[id]
	if !exists {
		return domain.ErrItemNotFound
	}
	m.categories.itemCounts[item.CategoryID]--
	delete(m.items, id)
	return nil
}

func (m *MockItemRepository) List(ctx context.Context, teamID int64, filter repository.ItemFilter) ([]*domain.Item, error) {
	var result []*domain.Item
	for _, item := range m.items {
		if item.TeamID != teamID {
			continue
		}
		if filter.From != nil && filter.To != nil {
			if item.Date.Before(*filter.From) || item.Date.After(*filter.To) {
				continue
			}
		}
		if filter.Search != "" && !strings.HasPrefix(strings.ToLower(item.Name), strings.ToLower(filter.Search)) {
			continue
		}
		copied := *item
		if c, ok := m.categories.categories[item.CategoryID]; ok {
			copied.CategoryName = c.Name
			copied.CategoryType = c.Type
		}
		result = append(result, &copied)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		less := false
		switch filter.OrderBy {
		case "name":
			less = a.Name < b.Name
		case "price":
			less = a.Price < b.Price
		case "quantity":
			less = a.Quantity < b.Quantity
		case "total":
			less = a.Total < b.Total
		default:
			less = a.Date.Before(b.Date)
		}
		if filter.Descending {
			less = !less
		}
		if equalByField(a, b, filter.OrderBy) {
			return a.ID < b.ID
		}
		return less
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if filter.Offset >= len(result) {
		return nil, nil
	}
	result = result[filter.Offset:]
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func equalByField(a, b *domain.Item, field string) bool {
	switch field {
	case "name":
		return a.Name == b.Name
	case "price":
		return a.Price == b.Price
	case "quantity":
		return a.Quantity == b.Quantity
	case "total":
		return a.Total == b.Total
	default:
		return a.Date.Equal(b.Date)
	}
}

func (m *MockItemRepository) TotalsByCategory(ctx context.Context, teamID int64, categoryIDs []int64) ([]*domain.CategoryTotal, error) {
	sums := make(map[int64]float64)
	for _, item := range m.items {
		if item.TeamID != teamID {
			continue
		}
		for _, id := range categoryIDs {
			if item.CategoryID == id {
				sums[id] += item.Total
			}
		}
	}

	var result []*domain.CategoryTotal
	for id, sum := range sums {
		c := m.categories.categories[id]
		result = append(result, &domain.CategoryTotal{
			CategoryID: id,
			Name:       c.Name,
			Type:       c.Type,
			Total:      sum,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CategoryID < result[j].CategoryID })
	return result, nil
}

// MockSessionRepository is a mock implementation of repository.SessionRepository.
type MockSessionRepository struct {
	sessions map[string]*domain.Session
	nextID   int64
}

func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[string]*domain.Session),
		nextID:   1,
	}
}

func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	session.ID = m.nextID
	m.nextID++
	copied := *session
	m.sessions[session.TokenHash] = &copied
	return nil
}

func (m *MockSessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.Session, error) {
	if s, exists := m.sessions[tokenHash]; exists {
		copied := *s
		return &copied, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (m *MockSessionRepository) DeleteByTokenHash(ctx context.Context, tokenHash string) error {
	if _, exists := m.sessions[tokenHash]; !exists {
		return domain.ErrSessionNotFound
	}
	delete(m.sessions, tokenHash)
	return nil
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var deleted int64
	for hash, s := range m.sessions {
		if s.Expired(now) {
			delete(m.sessions, hash)
			deleted++
		}
	}
	return deleted, nil
}

// =============================================================================
// Test fixtures
// =============================================================================

func activePrincipal(userID int64, role domain.Role, teamIDs ...int64) *domain.Principal {
	return &domain.Principal{
		UserID:  userID,
		Role:    role,
		Status:  domain.StatusActive,
		TeamIDs: teamIDs,
	}
}
