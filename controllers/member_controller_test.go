package controller_test

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuehub/models"
)

func TestInviteSingleMember(t *testing.T) {
	app, db := setupApp(t)
	_, aliceToken := createUser(t, db, "a@x.com", "alice")
	bob, _ := createUser(t, db, "b@x.com", "bob")

	ws := createWorkspace(t, app, aliceToken, "Acme", "acme")

	resp := doJSON(t, app, fiber.MethodPost, "/workspaces/acme/members", aliceToken, fiber.Map{
		"email": "b@x.com",
		"role":  "MEMBER",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var member models.WorkspaceMember
	err := db.Where("user_id = ? AND workspace_id = ?", bob.ID, asUint(ws["id"])).
		First(&member).Error
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, member.Role)
}

func TestInviteRequiresAdmin(t *testing.T) {
	app, db := setupApp(t)
	_, aliceToken := createUser(t, db, "a@x.com", "alice")
	bob, bobToken := createUser(t, db, "b@x.com", "bob")
	createUser(t, db, "c@x.com", "carol")

	ws := createWorkspace(t, app, aliceToken, "Acme", "acme")
	addMember(t, db, bob.ID, asUint(ws["id"]), models.RoleMember)

	resp := doJSON(t, app, fiber.MethodPost, "/workspaces/acme/members", bobToken, fiber.Map{
		"email": "c@x.com",
		"role":  "MEMBER",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestInviteUnknownUser(t *testing.T) {
	app, db := setupApp(t)
	_, token := createUser(t, db, "a@x.com", "alice")
	createWorkspace(t, app, token, "Acme", "acme")

	resp := doJSON(t, app, fiber.MethodPost, "/workspaces/acme/members", token, fiber.Map{
		"email": "ghost@x.com",
		"role":  "MEMBER",
	})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestInviteExistingMemberConflicts(t *testing.T) {
	app, db := setupApp(t)
	_, aliceToken := createUser(t, db, "a@x.com", "alice")
	bob, _ := createUser(t, db, "b@x.com", "bob")

	ws := createWorkspace(t, app, aliceToken, "Acme", "acme")
	addMember(t, db, bob.ID, asUint(ws["id"]), models.RoleMember)

	resp := doJSON(t, app, fiber.MethodPost, "/workspaces/acme/members", aliceToken, fiber.Map{
		"email": "b@x.com",
		"role":  "MEMBER",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestInviteRejectsBadEntries(t *testing.T) {
	app, db := setupApp(t)
	_, token := createUser(t, db, "a@x.com", "alice")
	createUser(t, db, "b@x.com", "bob")
	createWorkspace(t, app, token, "Acme", "acme")

	// Malformed email
	resp := doJSON(t, app, fiber.MethodPost, "/workspaces/acme/members", token, fiber.Map{
		"email": "not-an-email",
		"role":  "MEMBER",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// Unknown role
	resp = doJSON(t, app, fiber.MethodPost, "/workspaces/acme/members", token, fiber.Map{
		"email": "b@x.com",
		"role":  "OWNER",
	})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestBulkInviteCollectsPerEntryErrors(t *testing.T) {
	app, db := setupApp(t)
	_, aliceToken := createUser(t, db, "a@x.com", "alice")
	createUser(t, db, "b@x.com", "bob")
	carol, _ := createUser(t, db, "c@x.com", "carol")

	ws := createWorkspace(t, app, aliceToken, "Acme", "acme")
	addMember(t, db, carol.ID, asUint(ws["id"]), models.RoleMember)

	resp := doJSON(t, app, fiber.MethodPost, "/workspaces/acme/members", aliceToken, []fiber.Map{
		{"email": "b@x.com", "role": "ADMIN"},      // ok
		{"email": "ghost@x.com", "role": "MEMBER"}, // no such user
		{"email": "c@x.com", "role": "MEMBER"},     // already a member
		{"email": "bad", "role": "MEMBER"},         // malformed email
	})
	require.Equal(t, fiber.StatusMultiStatus, resp.StatusCode)

	body := decodeBody(t, resp)
	invited := body["invited"].([]interface{})
	require.Len(t, invited, 1)
	assert.Equal(t, "b@x.com", invited[0])

	failures := body["errors"].([]interface{})
	assert.Len(t, failures, 3)
	for _, f := range failures {
		entry := f.(map[string]interface{})
		assert.NotEmpty(t, entry["email"])
		assert.NotEmpty(t, entry["message"])
	}
}

func TestListMembersVisibleToMembers(t *testing.T) {
	app, db := setupApp(t)
	_, aliceToken := createUser(t, db, "a@x.com", "alice")
	bob, bobToken := createUser(t, db, "b@x.com", "bob")
	_, carolToken := createUser(t, db, "c@x.com", "carol")

	ws := createWorkspace(t, app, aliceToken, "Acme", "acme")
	addMember(t, db, bob.ID, asUint(ws["id"]), models.RoleMember)

	resp := doJSON(t, app, fiber.MethodGet, "/workspaces/acme/members", bobToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	members := body["members"].([]interface{})
	require.Len(t, members, 2)
	first := members[0].(map[string]interface{})
	assert.NotNil(t, first["user"], "member entries carry the joined user")

	// Outsiders get nothing
	resp = doJSON(t, app, fiber.MethodGet, "/workspaces/acme/members", carolToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestChangeMemberRole(t *testing.T) {
	app, db := setupApp(t)
	_, aliceToken := createUser(t, db, "a@x.com", "alice")
	bob, _ := createUser(t, db, "b@x.com", "bob")

	ws := createWorkspace(t, app, aliceToken, "Acme", "acme")
	addMember(t, db, bob.ID, asUint(ws["id"]), models.RoleMember)

	resp := doJSON(t, app, fiber.MethodPatch,
		fmt.Sprintf("/workspaces/acme/members/%d", bob.ID), aliceToken, fiber.Map{"role": "ADMIN"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var member models.WorkspaceMember
	err := db.Where("user_id = ? AND workspace_id = ?", bob.ID, asUint(ws["id"])).
		First(&member).Error
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, member.Role)

	// Setting the role they already have is a no-fail no-op
	resp = doJSON(t, app, fiber.MethodPatch,
		fmt.Sprintf("/workspaces/acme/members/%d", bob.ID), aliceToken, fiber.Map{"role": "ADMIN"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestChangeRoleRejectsInvalidRole(t *testing.T) {
	app, db := setupApp(t)
	_, aliceToken := createUser(t, db, "a@x.com", "alice")
	bob, _ := createUser(t, db, "b@x.com", "bob")

	ws := createWorkspace(t, app, aliceToken, "Acme", "acme")
	addMember(t, db, bob.ID, asUint(ws["id"]), models.RoleMember)

	resp := doJSON(t, app, fiber.MethodPatch,
		fmt.Sprintf("/workspaces/acme/members/%d", bob.ID), aliceToken, fiber.Map{"role": "OWNER"})
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestChangeRoleUnknownTarget(t *testing.T) {
	app, db := setupApp(t)
	_, aliceToken := createUser(t, db, "a@x.com", "alice")

	createWorkspace(t, app, aliceToken, "Acme", "acme")

	resp := doJSON(t, app, fiber.MethodPatch,
		"/workspaces/acme/members/9999", aliceToken, fiber.Map{"role": "ADMIN"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestChangeRoleRequiresAdmin(t *testing.T) {
	app, db := setupApp(t)
	alice, aliceToken := createUser(t, db, "a@x.com", "alice")
	bob, bobToken := createUser(t, db, "b@x.com", "bob")

	ws := createWorkspace(t, app, aliceToken, "Acme", "acme")
	addMember(t, db, bob.ID, asUint(ws["id"]), models.RoleMember)

	resp := doJSON(t, app, fiber.MethodPatch,
		fmt.Sprintf("/workspaces/acme/members/%d", alice.ID), bobToken, fiber.Map{"role": "MEMBER"})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRemoveMember(t *testing.T) {
	app, db := setupApp(t)
	_, aliceToken := createUser(t, db, "a@x.com", "alice")
	bob, _ := createUser(t, db, "b@x.com", "bob")

	ws := createWorkspace(t, app, aliceToken, "Acme", "acme")
	addMember(t, db, bob.ID, asUint(ws["id"]), models.RoleMember)

	resp := doJSON(t, app, fiber.MethodDelete,
		fmt.Sprintf("/workspaces/acme/members/%d", bob.ID), aliceToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var count int64
	db.Model(&models.WorkspaceMember{}).
		Where("user_id = ? AND workspace_id = ?", bob.ID, asUint(ws["id"])).
		Count(&count)
	assert.EqualValues(t, 0, count)

	// Removing again is a 404
	resp = doJSON(t, app, fiber.MethodDelete,
		fmt.Sprintf("/workspaces/acme/members/%d", bob.ID), aliceToken, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

// A removed member can be invited back. The membership row is gone for
// real, so the unique index does not get in the way.
func TestRemovedMemberCanBeReinvited(t *testing.T) {
	app, db := setupApp(t)
	_, aliceToken := createUser(t, db, "a@x.com", "alice")
	bob, _ := createUser(t, db, "b@x.com", "bob")

	ws := createWorkspace(t, app, aliceToken, "Acme", "acme")
	addMember(t, db, bob.ID, asUint(ws["id"]), models.RoleMember)

	resp := doJSON(t, app, fiber.MethodDelete,
		fmt.Sprintf("/workspaces/acme/members/%d", bob.ID), aliceToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, fiber.MethodPost, "/workspaces/acme/members", aliceToken, fiber.Map{
		"email": "b@x.com",
		"role":  "MEMBER",
	})
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestRemoveMemberRequiresAdmin(t *testing.T) {
	app, db := setupApp(t)
	alice, aliceToken := createUser(t, db, "a@x.com", "alice")
	bob, bobToken := createUser(t, db, "b@x.com", "bob")

	ws := createWorkspace(t, app, aliceToken, "Acme", "acme")
	addMember(t, db, bob.ID, asUint(ws["id"]), models.RoleMember)

	resp := doJSON(t, app, fiber.MethodDelete,
		fmt.Sprintf("/workspaces/acme/members/%d", alice.ID), bobToken, nil)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestMemberEndpointsUnknownWorkspace(t *testing.T) {
	app, db := setupApp(t)
	_, token := createUser(t, db, "a@x.com", "alice")

	resp := doJSON(t, app, fiber.MethodGet, "/workspaces/nope/members", token, nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
