package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/C4T-BuT-S4D/skillmatrix/internal/filter"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Storage struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Department{},
		&models.UserDepartment{},
		&models.Specialization{},
		&models.Competence{},
		&models.UserCompetence{},
		&models.Unavailability{},
		&models.Announcement{},
	); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	return nil
}

// GetUser returns a non-blocked user with memberships, derived role and last pass time.
func (s *Storage) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.getUser(ctx, userID, s.db.WithContext(ctx).Scopes(filter.NotBlocked))
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return user, nil
}

// GetProfile is GetUser with unavailability windows loaded.
func (s *Storage) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	q := s.db.WithContext(ctx).
		Scopes(filter.NotBlocked).
		Preload("Unavailabilities", func(db *gorm.DB) *gorm.DB {
			return db.Order("starts_at ASC")
		})
	user, err := s.getUser(ctx, userID, q)
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return user, nil
}

// GetCaller loads the user issuing a request, blocked or not.
func (s *Storage) GetCaller(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.getUser(ctx, userID, s.db.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("getting caller: %w", err)
	}
	return user, nil
}

// GetUserWithCompetencies does not filter out blocked users.
func (s *Storage) GetUserWithCompetencies(ctx context.Context, userID string) (*models.User, error) {
	var user models.User
	if err := s.db.
		WithContext(ctx).
		Preload("Memberships.Department").
		Preload("Competences", func(db *gorm.DB) *gorm.DB {
			return db.Order("updated_at DESC")
		}).
		Preload("Competences.Competence.Specialization").
		Where("users.id = ?", userID).
		First(&user).
		Error; err != nil {
		return nil, fmt.Errorf("getting user with competencies: %w", err)
	}

	users := []*models.User{&user}
	sortMemberships(users)
	if err := s.attachRoles(ctx, users); err != nil {
		return nil, err
	}
	for _, uc := range user.Competences {
		if user.LastDatetimePass == nil || uc.UpdatedAt.After(*user.LastDatetimePass) {
			t := uc.UpdatedAt
			user.LastDatetimePass = &t
		}
	}
	return &user, nil
}

// GetUserDepartments returns the department names of a user. An unknown user has none.
func (s *Storage) GetUserDepartments(ctx context.Context, userID string) ([]string, error) {
	var names []string
	if err := s.db.
		WithContext(ctx).
		Table("user_departments").
		Joins("JOIN departments ON departments.id = user_departments.department_id").
		Where("user_departments.user_id = ?", userID).
		Order("departments.name ASC").
		Pluck("departments.name", &names).
		Error; err != nil {
		return nil, fmt.Errorf("getting user departments: %w", err)
	}
	return names, nil
}

func (s *Storage) ListUsers(ctx context.Context, spec filter.Spec) ([]*models.User, error) {
	var users []*models.User
	if err := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Scopes(filter.NotBlocked).
		Scopes(spec.Scopes()...).
		Scopes(filter.ListOrder(spec), preloadMemberships(spec)).
		Find(&users).
		Error; err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	if err := s.enrich(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Storage) ListExaminers(ctx context.Context) ([]*models.User, error) {
	var users []*models.User
	if err := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Scopes(
			filter.NotBlocked,
			filter.ByAnyRole(models.ExaminerRoles...),
			filter.NameOrder,
			preloadMemberships(filter.Spec{}),
		).
		Find(&users).
		Error; err != nil {
		return nil, fmt.Errorf("listing examiners: %w", err)
	}

	if err := s.enrich(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

// UserStatistic is a user with the number of competence records in the requested window.
type UserStatistic struct {
	*models.User
	CompetenceCount int64
}

// ListUsersWithStatistics returns developers having at least one competence
// record, updated within spec.Range when it is set.
func (s *Storage) ListUsersWithStatistics(ctx context.Context, spec filter.Spec) ([]*UserStatistic, error) {
	q := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Scopes(filter.NotBlocked, filter.DevelopersOnly)
	if spec.Search != "" {
		q = q.Scopes(filter.BySearch(spec.Search))
	}
	if spec.HasDepartments() {
		q = q.Scopes(filter.ByDepartments(spec.Departments))
	}
	if spec.Range != nil {
		q = q.Scopes(filter.ByCompetenceUpdated(*spec.Range))
	} else {
		q = q.Where("EXISTS (SELECT 1 FROM user_competences WHERE user_competences.user_id = users.id)")
	}

	var users []*models.User
	if err := q.
		Scopes(filter.StatisticsOrder(spec), preloadMemberships(spec)).
		Find(&users).
		Error; err != nil {
		return nil, fmt.Errorf("listing users with statistics: %w", err)
	}
	if len(users) == 0 {
		return []*UserStatistic{}, nil
	}

	counts, err := s.countCompetences(ctx, userIDs(users), spec.Range)
	if err != nil {
		return nil, err
	}
	if err := s.enrich(ctx, users); err != nil {
		return nil, err
	}

	result := make([]*UserStatistic, 0, len(users))
	for _, u := range users {
		if counts[u.ID] == 0 {
			continue
		}
		result = append(result, &UserStatistic{User: u, CompetenceCount: counts[u.ID]})
	}
	return result, nil
}

func (s *Storage) UpdateUser(ctx context.Context, userID string, upd models.UserUpdate) error {
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		upd.Email = &email
	}
	return s.updateUser(ctx, userID, upd.Columns())
}

func (s *Storage) SetCongratulated(ctx context.Context, userID string) error {
	return s.updateUser(ctx, userID, map[string]any{
		"need_congratulate": false,
	})
}

func (s *Storage) updateUser(ctx context.Context, userID string, set map[string]any) error {
	res := s.db.
		WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Updates(set)
	if res.Error != nil {
		return fmt.Errorf("updating user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("updating user: %w", gorm.ErrRecordNotFound)
	}
	return nil
}

// GetOrCreateUserByEmail returns the user with the given email, creating it on first sight.
func (s *Storage) GetOrCreateUserByEmail(ctx context.Context, email, firstName, lastName string) (*models.User, error) {
	email = normalizeEmail(email)
	userToCreate := &models.User{
		ID:        uuid.New().String(),
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		Level:     models.LevelTrainee,
	}

	var user models.User
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "email"}},
				DoNothing: true,
			}).
			Create(userToCreate).
			Error; err != nil {
			return fmt.Errorf("creating user: %w", err)
		}

		if err := tx.
			Where("email = ?", email).
			First(&user).
			Error; err != nil {
			return fmt.Errorf("getting user: %w", err)
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("in tx: %w", err)
	}

	return &user, nil
}

func (s *Storage) getUser(ctx context.Context, userID string, q *gorm.DB) (*models.User, error) {
	var user models.User
	if err := q.
		Preload("Memberships.Department").
		Where("users.id = ?", userID).
		First(&user).
		Error; err != nil {
		return nil, err
	}

	if err := s.enrich(ctx, []*models.User{&user}); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Storage) enrich(ctx context.Context, users []*models.User) error {
	if len(users) == 0 {
		return nil
	}
	sortMemberships(users)
	if err := s.attachRoles(ctx, users); err != nil {
		return err
	}
	return s.attachLastPass(ctx, users)
}

// attachRoles derives each user's role as the most privileged of all their
// membership roles, regardless of which memberships were preloaded.
func (s *Storage) attachRoles(ctx context.Context, users []*models.User) error {
	var rows []struct {
		UserID   string
		RoleRank int
	}
	if err := s.db.
		WithContext(ctx).
		Table("user_departments").
		Select(fmt.Sprintf("user_id, MIN(%s) AS role_rank", roleRankExpr())).
		Where("user_id IN ?", userIDs(users)).
		Group("user_id").
		Scan(&rows).
		Error; err != nil {
		return fmt.Errorf("deriving roles: %w", err)
	}

	ranks := make(map[string]int, len(rows))
	for _, r := range rows {
		ranks[r.UserID] = r.RoleRank
	}
	for _, u := range users {
		u.Role = models.RoleDeveloper
		if rank, ok := ranks[u.ID]; ok {
			u.Role = models.RoleByRank(rank)
		}
	}
	return nil
}

// attachLastPass sets the latest competence update of each user. The
// aggregate is joined back to user_competences so the timestamp keeps its
// column type on every driver.
func (s *Storage) attachLastPass(ctx context.Context, users []*models.User) error {
	var rows []struct {
		UserID    string
		UpdatedAt time.Time
	}
	if err := s.db.
		WithContext(ctx).
		Raw(`SELECT uc.user_id, uc.updated_at FROM user_competences uc
			JOIN (SELECT user_id, MAX(updated_at) AS last_pass FROM user_competences
				WHERE user_id IN ? GROUP BY user_id) latest
			ON latest.user_id = uc.user_id AND latest.last_pass = uc.updated_at`,
			userIDs(users),
		).
		Scan(&rows).
		Error; err != nil {
		return fmt.Errorf("getting last passes: %w", err)
	}

	last := make(map[string]time.Time, len(rows))
	for _, r := range rows {
		last[r.UserID] = r.UpdatedAt
	}
	for _, u := range users {
		if t, ok := last[u.ID]; ok {
			u.LastDatetimePass = &t
		} else {
			u.LastDatetimePass = nil
		}
	}
	return nil
}

func (s *Storage) countCompetences(ctx context.Context, ids []string, r *filter.Range) (map[string]int64, error) {
	var rows []struct {
		UserID          string
		CompetenceCount int64
	}
	q := s.db.
		WithContext(ctx).
		Table("user_competences").
		Select("user_id, COUNT(*) AS competence_count").
		Where("user_id IN ?", ids)
	if r != nil {
		q = q.Where("updated_at >= ? AND updated_at < ?", r.Start, r.End)
	}
	if err := q.Group("user_id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("counting competences: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.UserID] = row.CompetenceCount
	}
	return counts, nil
}

// preloadMemberships loads memberships with departments, narrowed to the
// spec's departments when it has any.
func preloadMemberships(spec filter.Spec) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if spec.HasDepartments() {
			names := spec.Departments
			if len(names) == 0 {
				names = []string{""}
			}
			db = db.Preload("Memberships", "department_id IN (SELECT id FROM departments WHERE name IN ?)", names)
		}
		return db.Preload("Memberships.Department")
	}
}

func sortMemberships(users []*models.User) {
	for _, u := range users {
		sort.SliceStable(u.Memberships, func(i, j int) bool {
			return membershipName(u.Memberships[i]) < membershipName(u.Memberships[j])
		})
	}
}

func membershipName(m models.UserDepartment) string {
	if m.Department == nil {
		return ""
	}
	return m.Department.Name
}

func roleRankExpr() string {
	var b strings.Builder
	b.WriteString("CASE role")
	for _, r := range models.Roles {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", r, r.Rank())
	}
	fmt.Fprintf(&b, " ELSE %d END", models.RoleDeveloper.Rank())
	return b.String()
}

func userIDs(users []*models.User) []string {
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
