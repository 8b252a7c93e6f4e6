package view

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Pitch_Board/internal/model"
)

func TestUserViewHidesPassword(t *testing.T) {
	u := &model.User{ID: 7, Username: "alice", Email: "a@example.com", Password: "$2a$10$hash", FirstName: "Alice"}

	raw, err := json.Marshal(NewUser(u))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "password")
	assert.NotContains(t, string(raw), "$2a$10$hash")
	assert.Equal(t, "alice", fields["username"])
	assert.Equal(t, "Alice", fields["first_name"])
}

func TestIdeaViewFields(t *testing.T) {
	now := time.Now()
	idea := &model.Idea{
		ID:          3,
		Title:       "Great Startup Idea",
		Description: "desc",
		PitcherID:   7,
		Pitcher:     &model.User{ID: 7, Username: "alice", Password: "secret"},
		LikesCount:  4,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	raw, err := json.Marshal(NewIdea(idea, true))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, true, fields["is_liked"])
	assert.Equal(t, float64(4), fields["likes_count"])
	assert.NotContains(t, fields, "comments")
	assert.NotContains(t, string(raw), "secret")

	pitcher := fields["pitcher"].(map[string]any)
	assert.Equal(t, "alice", pitcher["username"])
}

func TestIdeaDetailIncludesComments(t *testing.T) {
	idea := &model.Idea{ID: 1, Title: "t"}
	comments := []model.Comment{
		{ID: 2, Content: "newer", Commenter: &model.User{ID: 9, Username: "bob"}},
		{ID: 1, Content: "older"},
	}

	v := NewIdeaDetail(idea, comments, false)
	require.Len(t, v.Comments, 2)
	assert.Equal(t, "newer", v.Comments[0].Content)
	assert.Equal(t, "bob", v.Comments[0].Commenter.Username)
	assert.Equal(t, User{}, v.Comments[1].Commenter)

	raw, err := json.Marshal(NewIdeaDetail(idea, nil, false))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"comments":[]`)
	assert.Contains(t, string(raw), `"title":"t"`)
}

func TestNewIdeasUsesLikedSet(t *testing.T) {
	ideas := []model.Idea{{ID: 1}, {ID: 2}}
	out := NewIdeas(ideas, map[uint64]bool{2: true})

	require.Len(t, out, 2)
	assert.False(t, out[0].IsLiked)
	assert.True(t, out[1].IsLiked)

	assert.NotNil(t, NewIdeas(nil, nil))
}
