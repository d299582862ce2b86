package api

import (
	"time"

	"github.com/C4T-BuT-S4D/skillmatrix/internal/directory"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/models"
	"github.com/C4T-BuT-S4D/skillmatrix/internal/storage"
)

type UpdateUserRequest struct {
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=100"`
	Avatar    *string `json:"avatar" validate:"omitempty,max=2048"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Level     *string `json:"level" validate:"omitempty,oneof=TRAINEE JUNIOR MIDDLE SENIOR LEAD"`
	Blocked   *bool   `json:"blocked"`
}

func (r *UpdateUserRequest) toUpdate() models.UserUpdate {
	upd := models.UserUpdate{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Avatar:    r.Avatar,
		Email:     r.Email,
		Blocked:   r.Blocked,
	}
	if r.Level != nil {
		level := models.Level(*r.Level)
		upd.Level = &level
	}
	return upd
}

type LevelUpRequest struct {
	Level *string `json:"level" validate:"omitempty,oneof=TRAINEE JUNIOR MIDDLE SENIOR LEAD"`
}

type departmentResponse struct {
	Name string      `json:"name"`
	Role models.Role `json:"role"`
}

type competenceResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Specialization string    `json:"specialization,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type unavailabilityResponse struct {
	StartsAt time.Time `json:"startsAt"`
	EndsAt   time.Time `json:"endsAt"`
	Reason   string    `json:"reason,omitempty"`
}

type userResponse struct {
	ID               string       `json:"id"`
	FirstName        string       `json:"firstName"`
	LastName         string       `json:"lastName"`
	Avatar           string       `json:"avatar"`
	Email            string       `json:"email"`
	Level            models.Level `json:"level"`
	Blocked          bool         `json:"blocked"`
	NeedCongratulate bool         `json:"needCongratulate"`
	Role             models.Role  `json:"role"`
	LastDatetimePass *time.Time   `json:"lastDatetimePass"`

	Departments      []departmentResponse     `json:"departments"`
	Competences      []competenceResponse     `json:"competences,omitempty"`
	Unavailabilities []unavailabilityResponse `json:"unavailabilities,omitempty"`
}

type statisticResponse struct {
	userResponse
	CompetenceCount int64 `json:"competenceCount"`
}

type departmentGroupResponse struct {
	Name  string         `json:"name"`
	Users []userResponse `json:"users"`
}

func newUserResponse(u *models.User) userResponse {
	resp := userResponse{
		ID:               u.ID,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		Avatar:           u.Avatar,
		Email:            u.Email,
		Level:            u.Level,
		Blocked:          u.Blocked,
		NeedCongratulate: u.NeedCongratulate,
		Role:             u.Role,
		LastDatetimePass: u.LastDatetimePass,
		Departments:      make([]departmentResponse, 0, len(u.Memberships)),
	}

	for _, m := range u.Memberships {
		if m.Department == nil {
			continue
		}
		resp.Departments = append(resp.Departments, departmentResponse{
			Name: m.Department.Name,
			Role: m.Role,
		})
	}

	for _, uc := range u.Competences {
		c := competenceResponse{ID: uc.CompetenceID, UpdatedAt: uc.UpdatedAt}
		if uc.Competence != nil {
			c.Name = uc.Competence.Name
			if uc.Competence.Specialization != nil {
				c.Specialization = uc.Competence.Specialization.Name
			}
		}
		resp.Competences = append(resp.Competences, c)
	}

	for _, w := range u.Unavailabilities {
		resp.Unavailabilities = append(resp.Unavailabilities, unavailabilityResponse{
			StartsAt: w.StartsAt,
			EndsAt:   w.EndsAt,
			Reason:   w.Reason,
		})
	}

	return resp
}

func newUserListResponse(users []*models.User) []userResponse {
	result := make([]userResponse, 0, len(users))
	for _, u := range users {
		result = append(result, newUserResponse(u))
	}
	return result
}

func newStatisticsResponse(stats []*storage.UserStatistic) []statisticResponse {
	result := make([]statisticResponse, 0, len(stats))
	for _, s := range stats {
		result = append(result, statisticResponse{
			userResponse:    newUserResponse(s.User),
			CompetenceCount: s.CompetenceCount,
		})
	}
	return result
}

func newDepartmentGroupsResponse(groups []*directory.DepartmentGroup) []departmentGroupResponse {
	result := make([]departmentGroupResponse, 0, len(groups))
	for _, g := range groups {
		result = append(result, departmentGroupResponse{
			Name:  g.Name,
			Users: newUserListResponse(g.Users),
		})
	}
	return result
}
