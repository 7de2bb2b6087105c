package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pilab-dev/identity-mongodb/domain"
	"gopkg.in/yaml.v3"
)

type claimView struct {
	Type  string `yaml:"type"`
	Value string `yaml:"value"`
}

type loginView struct {
	Provider    string `yaml:"provider"`
	Key         string `yaml:"key"`
	DisplayName string `yaml:"displayName,omitempty"`
}

type userView struct {
	ID                string      `yaml:"id"`
	UserName          string      `yaml:"userName"`
	Email             string      `yaml:"email,omitempty"`
	EmailConfirmed    bool        `yaml:"emailConfirmed"`
	PhoneNumber       string      `yaml:"phoneNumber,omitempty"`
	TwoFactorEnabled  bool        `yaml:"twoFactorEnabled"`
	LockoutEnabled    bool        `yaml:"lockoutEnabled"`
	LockoutEnd        *time.Time  `yaml:"lockoutEnd,omitempty"`
	AccessFailedCount int         `yaml:"accessFailedCount"`
	Roles             []string    `yaml:"roles,omitempty"`
	Claims            []claimView `yaml:"claims,omitempty"`
	Logins            []loginView `yaml:"logins,omitempty"`
	CreatedOn         time.Time   `yaml:"createdOn"`
}

type roleView struct {
	ID             string      `yaml:"id"`
	Name           string      `yaml:"name"`
	NormalizedName string      `yaml:"normalizedName"`
	Claims         []claimView `yaml:"claims,omitempty"`
}

func claimViews(claims []domain.Claim) []claimView {
	views := make([]claimView, 0, len(claims))
	for _, c := range claims {
		views = append(views, claimView{Type: c.Type, Value: c.Value})
	}
	return views
}

func newUserView(u *domain.User) userView {
	v := userView{
		ID:                u.ID,
		UserName:          u.UserName,
		Email:             u.Email,
		EmailConfirmed:    u.EmailConfirmed,
		PhoneNumber:       u.PhoneNumber,
		TwoFactorEnabled:  u.IsTwoFactorEnabled,
		LockoutEnabled:    u.IsLockoutEnabled,
		AccessFailedCount: u.AccessFailedCount,
		Roles:             u.Roles,
		Claims:            claimViews(u.Claims),
		CreatedOn:         u.CreatedOn.Instant,
	}
	if u.LockoutEndDate != nil {
		end := u.LockoutEndDate.Instant
		v.LockoutEnd = &end
	}
	for _, l := range u.Logins {
		v.Logins = append(v.Logins, loginView{Provider: l.LoginProvider, Key: l.ProviderKey, DisplayName: l.ProviderDisplayName})
	}
	return v
}

func newRoleView(r *domain.Role) roleView {
	return roleView{
		ID:             r.ID,
		Name:           r.Name,
		NormalizedName: r.NormalizedName,
		Claims:         claimViews(r.Claims),
	}
}

func printYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	return enc.Close()
}

// resultError turns a failed Result into an error naming every failure.
func resultError(action string, res domain.Result) error {
	if res.Succeeded {
		return nil
	}
	reasons := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		if e.Description != "" {
			reasons = append(reasons, fmt.Sprintf("%s (%s)", e.Code, e.Description))
		} else {
			reasons = append(reasons, e.Code)
		}
	}
	return fmt.Errorf("%s failed: %s", action, strings.Join(reasons, "; "))
}
