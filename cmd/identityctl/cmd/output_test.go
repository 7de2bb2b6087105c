package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/pilab-dev/identity-mongodb/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestResultError(t *testing.T) {
	assert.NoError(t, resultError("create", domain.Success()))

	err := resultError("role creation", domain.Failed(
		domain.ResultError{Code: domain.CodeDuplicateRoleName, Description: "role name 'admin' is already taken"},
		domain.ResultError{Code: "Custom"},
	))
	require.Error(t, err)
	assert.Equal(t, "role creation failed: DuplicateRoleName (role name 'admin' is already taken); Custom", err.Error())
}

func TestPrintUserView(t *testing.T) {
	u := domain.NewUser("alice", "alice@example.com")
	u.ID = "u1"
	u.AddClaim(domain.NewClaim("team", "blue"))
	require.NoError(t, u.AddLogin(domain.NewLogin("github", "alice-gh", "GitHub")))
	end := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	u.LockUntil(&end)

	var buf bytes.Buffer
	require.NoError(t, printYAML(&buf, newUserView(u)))

	var out map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "u1", out["id"])
	assert.Equal(t, "alice@example.com", out["email"])
	assert.Contains(t, buf.String(), "lockoutEnd: 2030-01-02T03:04:05Z\n")
	assert.NotContains(t, out, "phoneNumber")

	claims := out["claims"].([]interface{})
	assert.Equal(t, map[string]interface{}{"type": "team", "value": "blue"}, claims[0])
	logins := out["logins"].([]interface{})
	assert.Equal(t, "alice-gh", logins[0].(map[string]interface{})["key"])
}

func TestPrintRoleView(t *testing.T) {
	r := domain.NewRole("admin")
	r.ID = "r1"
	r.NormalizedName = "ADMIN"

	var buf bytes.Buffer
	require.NoError(t, printYAML(&buf, newRoleView(r)))
	assert.Equal(t, "id: r1\nname: admin\nnormalizedName: ADMIN\n", buf.String())
}
