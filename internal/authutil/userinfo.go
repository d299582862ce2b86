package authutil

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

// UserInfoResolver asks the identity provider who a token belongs to.
type UserInfoResolver struct {
	client *resty.Client
}

func NewUserInfoResolver(baseURL string) *UserInfoResolver {
	return &UserInfoResolver{
		client: resty.New().SetBaseURL(baseURL),
	}
}

func (r *UserInfoResolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	type userInfoResponse struct {
		Email      string `json:"email"`
		GivenName  string `json:"given_name"`
		FamilyName string `json:"family_name"`
	}

	resp, err := r.client.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&userInfoResponse{}).
		Get("/userinfo")
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: identity provider rejected token", ErrUnauthorized)
	default:
		return nil, fmt.Errorf("unexpected status code: %d %s", resp.StatusCode(), string(resp.Body()))
	}

	info := resp.Result().(*userInfoResponse)
	if info.Email == "" {
		return nil, fmt.Errorf("%w: identity has no email", ErrUnauthorized)
	}

	return &Identity{
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
	}, nil
}
