package directory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/C4T-BuT-S4D/skillmatrix/internal/filter"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/models"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/policy"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/storage"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrForbidden = errors.New("access to user is forbidden")
	ErrInvalid   = errors.New("invalid request")
	ErrConflict  = errors.New("user with the same email already exists")
)

type Store interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	GetProfile(ctx context.Context, userID string) (*models.User, error)
	GetUserWithCompetencies(ctx context.Context, userID string) (*models.User, error)
	GetUserDepartments(ctx context.Context, userID string) ([]string, error)
	ListUsers(ctx context.Context, spec filter.Spec) ([]*models.User, error)
	ListExaminers(ctx context.Context) ([]*models.User, error)
	ListUsersWithStatistics(ctx context.Context, spec filter.Spec) ([]*storage.UserStatistic, error)
	UpdateUser(ctx context.Context, userID string, upd models.UserUpdate) error
	SetCongratulated(ctx context.Context, userID string) error
}

type Service struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// WithClock replaces the clock used to resolve periods.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// DepartmentGroup is a department with the users that are members of it.
type DepartmentGroup struct {
	Name  string
	Users []*models.User
}

func (s *Service) Me(ctx context.Context, caller *policy.Caller) (*models.User, error) {
	user, err := s.store.GetProfile(ctx, caller.ID)
	if err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

// FindByID reports a missing user before checking department visibility.
func (s *Service) FindByID(ctx context.Context, caller *policy.Caller, userID string) (*models.User, error) {
	if !validID(userID) {
		return nil, ErrNotFound
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	if !policy.CanViewUser(caller, user.DepartmentNames()) {
		return nil, ErrForbidden
	}
	return user, nil
}

// StatisticForUser checks department visibility before existence, and does
// not hide blocked users.
func (s *Service) StatisticForUser(ctx context.Context, caller *policy.Caller, userID string) (*models.User, error) {
	var departments []string
	if validID(userID) {
		var err error
		if departments, err = s.store.GetUserDepartments(ctx, userID); err != nil {
			return nil, err
		}
	}
	if !policy.CanViewUser(caller, departments) {
		return nil, ErrForbidden
	}
	if !validID(userID) {
		return nil, ErrNotFound
	}

	user, err := s.store.GetUserWithCompetencies(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

func (s *Service) List(ctx context.Context, caller *policy.Caller, params filter.Params) ([]*models.User, error) {
	spec, err := s.buildSpec(caller, params)
	if err != nil {
		return nil, err
	}
	return s.store.ListUsers(ctx, spec)
}

// ListByDepartments groups List results by department. A user who is a member
// of several visible departments appears in each of their groups.
func (s *Service) ListByDepartments(ctx context.Context, caller *policy.Caller, params filter.Params) ([]*DepartmentGroup, error) {
	users, err := s.List(ctx, caller, params)
	if err != nil {
		return nil, err
	}

	groups := map[string]*DepartmentGroup{}
	for _, u := range users {
		for _, name := range u.DepartmentNames() {
			g, ok := groups[name]
			if !ok {
				g = &DepartmentGroup{Name: name}
				groups[name] = g
			}
			g.Users = append(g.Users, u)
		}
	}

	result := make([]*DepartmentGroup, 0, len(groups))
	for _, g := range groups {
		sort.SliceStable(g.Users, func(i, j int) bool {
			return lessByLevelAndName(g.Users[i], g.Users[j])
		})
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// Statistics lists developers with competence counts. Only the period and
// department filters apply.
func (s *Service) Statistics(ctx context.Context, caller *policy.Caller, params filter.Params) ([]*storage.UserStatistic, error) {
	spec, err := s.buildSpec(caller, filter.Params{
		Departments: params.Departments,
		Period:      params.Period,
	})
	if err != nil {
		return nil, err
	}
	return s.store.ListUsersWithStatistics(ctx, spec)
}

func (s *Service) Examiners(ctx context.Context) ([]*models.User, error) {
	return s.store.ListExaminers(ctx)
}

// Update applies an admin edit and returns the user, blocked or not.
func (s *Service) Update(ctx context.Context, userID string, upd models.UserUpdate) (*models.User, error) {
	if upd.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", ErrInvalid)
	}
	if upd.Level != nil && !upd.Level.Valid() {
		return nil, fmt.Errorf("%w: unknown level %q", ErrInvalid, *upd.Level)
	}
	if !validID(userID) {
		return nil, ErrNotFound
	}

	if err := s.store.UpdateUser(ctx, userID, upd); err != nil {
		return nil, storeError(err)
	}

	user, err := s.store.GetUserWithCompetencies(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

// LevelUp moves the user one tier up from current, or from the stored level
// when current is nil.
func (s *Service) LevelUp(ctx context.Context, caller *policy.Caller, userID string, current *models.Level) (*models.User, error) {
	user, err := s.FindByID(ctx, caller, userID)
	if err != nil {
		return nil, err
	}

	from := user.Level
	if current != nil {
		if !current.Valid() {
			return nil, fmt.Errorf("%w: unknown level %q", ErrInvalid, *current)
		}
		from = *current
	}
	next := models.LevelUp(from)

	if err := s.store.UpdateUser(ctx, userID, models.UserUpdate{Level: &next}); err != nil {
		return nil, storeError(err)
	}

	user, err = s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

func (s *Service) Congratulated(ctx context.Context, caller *policy.Caller) (*models.User, error) {
	if err := s.store.SetCongratulated(ctx, caller.ID); err != nil {
		return nil, storeError(err)
	}

	user, err := s.store.GetUser(ctx, caller.ID)
	if err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

func (s *Service) buildSpec(caller *policy.Caller, params filter.Params) (filter.Spec, error) {
	spec, err := filter.Build(params, s.now())
	if err != nil {
		return filter.Spec{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return spec.Restrict(policy.DepartmentScope(caller)), nil
}

func storeError(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrConflict
	}
	return err
}

// validID reports whether userID can match a uuid primary key.
func validID(userID string) bool {
	_, err := uuid.Parse(userID)
	return err == nil
}

func lessByLevelAndName(a, b *models.User) bool {
	if a.Level.Index() != b.Level.Index() {
		return a.Level.Index() < b.Level.Index()
	}
	if a.LastName != b.LastName {
		return a.LastName < b.LastName
	}
	return a.FirstName < b.FirstName
}
