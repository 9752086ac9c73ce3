package server

import (
	"fmt"
	"net/http"
	"testing"

	"agora/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addComment(t *testing.T, env *testEnv, token string, discussionID uint, parentID *uint, content string) models.Comment {
	t.Helper()
	body := map[string]any{"content": content}
	if parentID != nil {
		body["parent_id"] = *parentID
	}
	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/discussions/%d/comments", discussionID), token, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[models.Comment](t, resp)
}

func TestCommentThreadAndDelete(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.seedUser(t, "alice")
	_, bobToken := env.seedUser(t, "bob")
	d := createDiscussion(t, env, aliceToken, "Thread", "general")

	root := addComment(t, env, bobToken, d.ID, nil, "root")
	require.NotNil(t, root.User)
	assert.Equal(t, "bob", root.User.Name)
	reply := addComment(t, env, aliceToken, d.ID, &root.ID, "reply")
	assert.Equal(t, root.ID, *reply.ParentID)

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/discussions/%d/comments", d.ID), bobToken,
		map[string]any{"content": "orphan", "parent_id": 9999})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/comments/%d", root.ID), aliceToken,
		map[string]string{"content": "hijack"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPut, fmt.Sprintf("/api/comments/%d", root.ID), bobToken,
		map[string]string{"content": "root, edited"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "root, edited", decode[models.Comment](t, resp).Content)

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", root.ID), bobToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/discussions/%d/comments", d.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.Comment](t, resp))
}

func TestMarkSolution_ExclusiveAndAuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	_, aliceToken := env.seedUser(t, "alice")
	_, bobToken := env.seedUser(t, "bob")
	d := createDiscussion(t, env, aliceToken, "Help me", "help")

	first := addComment(t, env, bobToken, d.ID, nil, "try this")
	second := addComment(t, env, bobToken, d.ID, nil, "or this")

	resp := env.do(t, http.MethodPost, fmt.Sprintf("/api/comments/%d/mark-solution", first.ID), bobToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, models.CodeForbidden, errorCode(t, resp))

	resp = env.do(t, http.MethodPost, "/api/comments/9999/mark-solution", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	for _, c := range []models.Comment{first, second} {
		resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/comments/%d/mark-solution", c.ID), aliceToken, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, decode[models.Comment](t, resp).IsSolution)
	}

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/discussions/%d/comments", d.ID), aliceToken, nil)
	comments := decode[[]models.Comment](t, resp)
	solutions := 0
	for _, c := range comments {
		if c.IsSolution {
			solutions++
			assert.Equal(t, second.ID, c.ID)
		}
	}
	assert.Equal(t, 1, solutions)
}
