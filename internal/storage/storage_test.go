package storage_test

import (
	"strings"
	"testing"
	"time"

	"github.com/C4T-BuT-S4D/skillmatrix/internal/filter"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/models"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/storage"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func ids(users []*models.User) []string {
	result := make([]string, 0, len(users))
	for _, u := range users {
		result = append(result, u.ID)
	}
	return result
}

func TestStorage_GetUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	backend := fx.CreateDepartment(ctx, "Backend")
	qa := fx.CreateDepartment(ctx, "QA")
	user := fx.CreateUser(ctx, "Ann", "Smith", models.LevelMiddle)
	fx.AddMembership(ctx, user, qa, models.RoleDeveloper)
	fx.AddMembership(ctx, user, backend, models.RoleManager)

	older := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Second)
	newer := older.Add(24 * time.Hour)
	fx.AddCompetence(ctx, user, newer)
	fx.AddCompetence(ctx, user, older)

	got, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)

	assert.Equal(t, "Ann", got.FirstName)
	assert.Equal(t, models.RoleManager, got.Role)
	assert.Equal(t, []string{"Backend", "QA"}, got.DepartmentNames())
	require.NotNil(t, got.LastDatetimePass)
	assert.True(t, newer.Equal(*got.LastDatetimePass))

	fx.Block(ctx, user)
	_, err = store.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	caller, err := store.GetCaller(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, caller.Blocked)
}

func TestStorage_GetUser_NoMemberships(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fx.CreateUser(ctx, "Solo", "Dev", models.LevelTrainee)

	got, err := store.GetUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleDeveloper, got.Role)
	assert.Nil(t, got.LastDatetimePass)
	assert.Empty(t, got.Memberships)

	_, err = store.GetUser(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStorage_GetUserWithCompetencies_IncludesBlocked(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	dept := fx.CreateDepartment(ctx, "Backend")
	user := fx.CreateUser(ctx, "Bob", "Stone", models.LevelJunior)
	fx.AddMembership(ctx, user, dept, models.RoleTechLead)
	fx.AddCompetence(ctx, user, time.Now().UTC().Add(-time.Hour))
	fx.Block(ctx, user)

	got, err := store.GetUserWithCompetencies(ctx, user.ID)
	require.NoError(t, err)

	assert.True(t, got.Blocked)
	assert.Equal(t, models.RoleTechLead, got.Role)
	require.Len(t, got.Competences, 1)
	require.NotNil(t, got.Competences[0].Competence)
	require.NotNil(t, got.Competences[0].Competence.Specialization)
	assert.Equal(t, "Go", got.Competences[0].Competence.Name)
	assert.Equal(t, "Backend development", got.Competences[0].Competence.Specialization.Name)
	assert.NotNil(t, got.LastDatetimePass)
}

func TestStorage_GetUserDepartments(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fx.CreateUser(ctx, "Ann", "Smith", models.LevelMiddle)
	fx.AddMembership(ctx, user, fx.CreateDepartment(ctx, "QA"), models.RoleDeveloper)
	fx.AddMembership(ctx, user, fx.CreateDepartment(ctx, "Backend"), models.RoleDeveloper)

	names, err := store.GetUserDepartments(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Backend", "QA"}, names)

	names, err = store.GetUserDepartments(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, names)
}

type directoryFixture struct {
	backend, frontend             *models.Department
	zed, youngC, adams, youngB, e *models.User
	blocked                       *models.User
}

// seedDirectory creates:
//
//	Frontend: Alpha Zed (JUNIOR, developer)
//	Backend:  Charlie Young (JUNIOR, developer), Delta Adams (JUNIOR, developer),
//	          Bravo Young (LEAD, manager), Echo Moss (MIDDLE, developer), blocked Fox Trot
func seedDirectory(t *testing.T, fx *testutil.Fixtures) directoryFixture {
	ctx, cancel := testutil.TestContext()
	defer cancel()

	var d directoryFixture
	d.backend = fx.CreateDepartment(ctx, "Backend")
	d.frontend = fx.CreateDepartment(ctx, "Frontend")

	d.zed = fx.CreateUser(ctx, "Alpha", "Zed", models.LevelJunior)
	fx.AddMembership(ctx, d.zed, d.frontend, models.RoleDeveloper)

	d.youngC = fx.CreateUser(ctx, "Charlie", "Young", models.LevelJunior)
	fx.AddMembership(ctx, d.youngC, d.backend, models.RoleDeveloper)

	d.adams = fx.CreateUser(ctx, "Delta", "Adams", models.LevelJunior)
	fx.AddMembership(ctx, d.adams, d.backend, models.RoleDeveloper)

	d.youngB = fx.CreateUser(ctx, "Bravo", "Young", models.LevelLead)
	fx.AddMembership(ctx, d.youngB, d.backend, models.RoleManager)

	d.e = fx.CreateUser(ctx, "Echo", "Moss", models.LevelMiddle)
	fx.AddMembership(ctx, d.e, d.backend, models.RoleDeveloper)

	d.blocked = fx.CreateUser(ctx, "Fox", "Trot", models.LevelJunior)
	fx.AddMembership(ctx, d.blocked, d.backend, models.RoleDeveloper)
	fx.Block(ctx, d.blocked)

	return d
}

func TestStorage_ListUsers_Order(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	d := seedDirectory(t, fx)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users, err := store.ListUsers(ctx, filter.Spec{})
	require.NoError(t, err)

	// Backend before Frontend, then tier order JUNIOR < MIDDLE < LEAD, then names.
	assert.Equal(t, []string{d.adams.ID, d.youngC.ID, d.e.ID, d.youngB.ID, d.zed.ID}, ids(users))
	assert.Equal(t, models.RoleManager, users[3].Role)
	assert.Equal(t, models.RoleDeveloper, users[0].Role)
}

func TestStorage_ListUsers_Filters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	d := seedDirectory(t, fx)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	users, err := store.ListUsers(ctx, filter.Spec{Search: "young"})
	require.NoError(t, err)
	assert.Equal(t, []string{d.youngC.ID, d.youngB.ID}, ids(users))

	users, err = store.ListUsers(ctx, filter.Spec{Search: "alp"})
	require.NoError(t, err)
	assert.Equal(t, []string{d.zed.ID}, ids(users))

	users, err = store.ListUsers(ctx, filter.Spec{Search: "%"})
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = store.ListUsers(ctx, filter.Spec{Departments: []string{"Frontend"}})
	require.NoError(t, err)
	assert.Equal(t, []string{d.zed.ID}, ids(users))

	users, err = store.ListUsers(ctx, filter.Spec{Departments: []string{}})
	require.NoError(t, err)
	assert.Empty(t, users)

	users, err = store.ListUsers(ctx, filter.Spec{Role: models.RoleManager})
	require.NoError(t, err)
	assert.Equal(t, []string{d.youngB.ID}, ids(users))
}

func TestStorage_ListUsers_Period(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	d := seedDirectory(t, fx)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC().Truncate(time.Second)
	fx.AddCompetence(ctx, d.zed, now.Add(-2*time.Hour))
	fx.AddCompetence(ctx, d.adams, now.AddDate(0, 0, -10))
	fx.AddCompetence(ctx, d.blocked, now.Add(-time.Hour))

	r, err := filter.Resolve(filter.PeriodWeek, now)
	require.NoError(t, err)

	users, err := store.ListUsers(ctx, filter.Spec{Range: &r})
	require.NoError(t, err)
	assert.Equal(t, []string{d.zed.ID}, ids(users))
}

func TestStorage_ListUsers_MembershipsNarrowed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	d := seedDirectory(t, fx)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.AddMembership(ctx, d.zed, d.backend, models.RoleAdmin)

	users, err := store.ListUsers(ctx, filter.Spec{Departments: []string{"Frontend"}})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, []string{"Frontend"}, users[0].DepartmentNames())
	// The role is derived from every membership.
	assert.Equal(t, models.RoleAdmin, users[0].Role)
}

func TestStorage_ListExaminers(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	d := seedDirectory(t, fx)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx.AddMembership(ctx, d.zed, d.backend, models.RoleHeadOfDepartment)
	fx.AddMembership(ctx, d.adams, d.frontend, models.RoleAdmin)
	fx.AddMembership(ctx, d.blocked, d.frontend, models.RoleTechLead)

	users, err := store.ListExaminers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{d.adams.ID, d.zed.ID}, ids(users))
	assert.Equal(t, models.RoleAdmin, users[0].Role)
	assert.Equal(t, models.RoleHeadOfDepartment, users[1].Role)
}

func TestStorage_ListUsersWithStatistics(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	d := seedDirectory(t, fx)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	now := time.Now().UTC().Truncate(time.Second)
	fx.AddCompetence(ctx, d.zed, now.Add(-time.Hour))
	fx.AddCompetence(ctx, d.zed, now.AddDate(0, -2, 0))
	fx.AddCompetence(ctx, d.youngC, now.Add(-time.Hour))
	fx.AddCompetence(ctx, d.adams, now.AddDate(0, -2, 0))
	fx.AddCompetence(ctx, d.youngB, now.Add(-time.Hour)) // manager
	fx.AddCompetence(ctx, d.blocked, now.Add(-time.Hour))
	// Echo Moss has no competences.

	stats, err := store.ListUsersWithStatistics(ctx, filter.Spec{})
	require.NoError(t, err)

	got := make([]string, 0, len(stats))
	counts := map[string]int64{}
	for _, s := range stats {
		got = append(got, s.ID)
		counts[s.ID] = s.CompetenceCount
	}
	// Level, last name, first name: all JUNIOR, so Adams, Young, Zed.
	assert.Equal(t, []string{d.adams.ID, d.youngC.ID, d.zed.ID}, got)
	assert.Equal(t, int64(2), counts[d.zed.ID])

	r, err := filter.Resolve(filter.PeriodMonth, now)
	require.NoError(t, err)
	stats, err = store.ListUsersWithStatistics(ctx, filter.Spec{Range: &r, Departments: []string{"Frontend"}})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, d.zed.ID, stats[0].ID)
	assert.Equal(t, int64(1), stats[0].CompetenceCount)
}

func TestStorage_ListUsersWithStatistics_ExcludesZeroCount(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	d := seedDirectory(t, fx)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	stats, err := store.ListUsersWithStatistics(ctx, filter.Spec{Departments: []string{"Backend"}})
	require.NoError(t, err)
	assert.Empty(t, stats)

	fx.AddCompetence(ctx, d.e, time.Now().UTC().Add(-time.Minute))
	stats, err = store.ListUsersWithStatistics(ctx, filter.Spec{Departments: []string{"Backend"}})
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, d.e.ID, stats[0].ID)
}

func TestStorage_UpdateUser_LevelSetsCongratulate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fx.CreateUser(ctx, "Ann", "Smith", models.LevelLead)

	name := "Anna"
	require.NoError(t, store.UpdateUser(ctx, user.ID, models.UserUpdate{FirstName: &name}))
	fresh := fx.Reload(ctx, user)
	assert.Equal(t, "Anna", fresh.FirstName)
	assert.False(t, fresh.NeedCongratulate)

	// Same value, still flagged.
	level := models.LevelLead
	require.NoError(t, store.UpdateUser(ctx, user.ID, models.UserUpdate{Level: &level}))
	fresh = fx.Reload(ctx, user)
	assert.Equal(t, models.LevelLead, fresh.Level)
	assert.True(t, fresh.NeedCongratulate)

	require.NoError(t, store.SetCongratulated(ctx, user.ID))
	assert.False(t, fx.Reload(ctx, user).NeedCongratulate)

	err := store.UpdateUser(ctx, "missing", models.UserUpdate{Level: &level})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestStorage_UpdateUser_NormalizesEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fx.CreateUser(ctx, "Ann", "Smith", models.LevelJunior)
	email := "  Ann@Example.COM "
	require.NoError(t, store.UpdateUser(ctx, user.ID, models.UserUpdate{Email: &email}))
	assert.Equal(t, "ann@example.com", fx.Reload(ctx, user).Email)
}

func TestStorage_GetOrCreateUserByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	first, err := store.GetOrCreateUserByEmail(ctx, "New.User@example.com", "New", "User")
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "new.user@example.com", first.Email)
	assert.Equal(t, models.LevelTrainee, first.Level)

	second, err := store.GetOrCreateUserByEmail(ctx, "new.user@example.com", "Other", "Name")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "New", second.FirstName)
}

func TestStorage_PendingAnnouncements(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fx.CreateUser(ctx, "Ann", "Smith", models.LevelJunior)
	blocked := fx.CreateUser(ctx, "Bob", "Stone", models.LevelJunior)

	level := models.LevelMiddle
	require.NoError(t, store.UpdateUser(ctx, user.ID, models.UserUpdate{Level: &level}))
	require.NoError(t, store.UpdateUser(ctx, blocked.ID, models.UserUpdate{Level: &level}))
	fx.Block(ctx, blocked)

	pending, err := store.ListPendingAnnouncements(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{user.ID}, ids(pending))

	require.NoError(t, store.AddAnnouncement(ctx, &models.Announcement{
		ChatID:    1,
		MessageID: "42",
		UserID:    user.ID,
		Level:     models.LevelMiddle,
	}))

	pending, err = store.ListPendingAnnouncements(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	var announcements []*models.Announcement
	require.NoError(t, db.WithContext(ctx).Where("user_id = ?", user.ID).Find(&announcements).Error)
	require.Len(t, announcements, 1)
	assert.Equal(t, "42", announcements[0].MessageID)
}

func TestStorage_ListUsers_LastPassPerUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	base := time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

	ann := fx.CreateUser(ctx, "Ann", "Able", models.LevelJunior)
	fx.AddCompetence(ctx, ann, base)
	fx.AddCompetence(ctx, ann, base.Add(2*time.Hour))
	fx.AddCompetence(ctx, ann, base.Add(time.Hour))

	bob := fx.CreateUser(ctx, "Bob", "Baker", models.LevelJunior)
	fx.AddCompetence(ctx, bob, base.Add(-time.Hour))

	fx.CreateUser(ctx, "Cid", "Cole", models.LevelJunior)

	users, err := store.ListUsers(ctx, filter.Spec{})
	require.NoError(t, err)
	require.Len(t, users, 3)

	last := map[string]*time.Time{}
	for _, u := range users {
		last[u.FirstName] = u.LastDatetimePass
	}
	require.NotNil(t, last["Ann"])
	assert.True(t, base.Add(2*time.Hour).Equal(*last["Ann"]))
	require.NotNil(t, last["Bob"])
	assert.True(t, base.Add(-time.Hour).Equal(*last["Bob"]))
	assert.Nil(t, last["Cid"])
}

func TestStorage_UpdateUser_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := storage.New(db)
	fx := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ann := fx.CreateUser(ctx, "Ann", "Able", models.LevelJunior)
	bob := fx.CreateUser(ctx, "Bob", "Baker", models.LevelJunior)

	email := strings.ToUpper(bob.Email)
	err := store.UpdateUser(ctx, ann.ID, models.UserUpdate{Email: &email})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
