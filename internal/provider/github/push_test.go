package github

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplesurance/commitmailer/internal/notify"
)

func TestParsePushEvent(t *testing.T) {
	ev, err := ParsePushEvent([]byte(pushEventPayload))
	require.NoError(t, err)

	assert.Equal(t, "acme/repo", ev.Repository)
	assert.Equal(t, "alice", ev.Pusher)
	assert.Equal(
		t,
		[]*notify.Commit{
			{
				ID:      "abcdef1234567890abcdef1234567890abcdef12",
				Message: "fix bug",
				URL:     "https://github.com/acme/repo/commit/abcdef1234567890abcdef1234567890abcdef12",
			},
			{
				ID:      "0123456789abcdef0123456789abcdef01234567",
				Message: "add feature\n\nwith a longer description",
				URL:     "https://github.com/acme/repo/commit/0123456789abcdef0123456789abcdef01234567",
			},
		},
		ev.Commits,
	)
}

func TestParsePushEventDefaults(t *testing.T) {
	testcases := []struct {
		name               string
		payload            string
		expectErr          bool
		expectedRepository string
		expectedPusher     string
		expectedCommitCnt  int
	}{
		{
			name:               "emptyObject",
			payload:            `{}`,
			expectedRepository: UnknownPlaceholder,
			expectedPusher:     UnknownPlaceholder,
		},
		{
			name:               "missingRepositoryAndPusher",
			payload:            `{"commits":[{"id":"ab","message":"m","url":"u"}]}`,
			expectedRepository: UnknownPlaceholder,
			expectedPusher:     UnknownPlaceholder,
			expectedCommitCnt:  1,
		},
		{
			name:               "nullValues",
			payload:            `{"repository":null,"pusher":null,"commits":null}`,
			expectedRepository: UnknownPlaceholder,
			expectedPusher:     UnknownPlaceholder,
		},
		{
			name:               "nullCommitEntry",
			payload:            `{"repository":{"full_name":"a/b"},"commits":[null,{"id":"ab"}]}`,
			expectedRepository: "a/b",
			expectedPusher:     UnknownPlaceholder,
			expectedCommitCnt:  1,
		},
		{
			name:               "invalidJSON",
			payload:            `{"commits":[`,
			expectErr:          true,
			expectedRepository: UnknownPlaceholder,
			expectedPusher:     UnknownPlaceholder,
		},
		{
			name:               "wrongFieldType",
			payload:            `{"commits":"abc"}`,
			expectErr:          true,
			expectedRepository: UnknownPlaceholder,
			expectedPusher:     UnknownPlaceholder,
		},
		{
			name:               "repositoryIsString",
			payload:            `{"repository":"acme/repo","pusher":{"name":"alice"},"commits":[{"id":"ab","message":"m","url":"u"}]}`,
			expectErr:          true,
			expectedRepository: UnknownPlaceholder,
			expectedPusher:     "alice",
			expectedCommitCnt:  1,
		},
		{
			name:               "pusherNameIsNumber",
			payload:            `{"repository":{"full_name":"a/b"},"pusher":{"name":5},"commits":[{"id":"ab","message":"m","url":"u"}]}`,
			expectErr:          true,
			expectedRepository: "a/b",
			expectedPusher:     UnknownPlaceholder,
			expectedCommitCnt:  1,
		},
		{
			name:               "invalidCommitTimestampIsIgnored",
			payload:            `{"repository":{"full_name":"a/b"},"head_commit":{"timestamp":"yesterday"},"commits":[{"id":"ab","message":"m","url":"u","timestamp":"yesterday"}]}`,
			expectedRepository: "a/b",
			expectedPusher:     UnknownPlaceholder,
			expectedCommitCnt:  1,
		},
		{
			name:               "wrongTypesOfIgnoredFields",
			payload:            `{"ref":5,"created":"yes","sender":[],"repository":{"full_name":"a/b","id":"x"},"pusher":{"name":"bob","email":1},"commits":[{"id":"ab","added":"f","distinct":"no"}]}`,
			expectedRepository: "a/b",
			expectedPusher:     "bob",
			expectedCommitCnt:  1,
		},
		{
			name:               "commitIDIsNumber",
			payload:            `{"commits":[{"id":123,"message":"m","url":"u"}]}`,
			expectErr:          true,
			expectedRepository: UnknownPlaceholder,
			expectedPusher:     UnknownPlaceholder,
			expectedCommitCnt:  1,
		},
		{
			name:               "commitEntryIsNotAnObject",
			payload:            `{"commits":["abc",{"id":"ab"}]}`,
			expectErr:          true,
			expectedRepository: UnknownPlaceholder,
			expectedPusher:     UnknownPlaceholder,
			expectedCommitCnt:  1,
		},
		{
			name:               "payloadIsNotAnObject",
			payload:            `[{"id":"ab"}]`,
			expectErr:          true,
			expectedRepository: UnknownPlaceholder,
			expectedPusher:     UnknownPlaceholder,
		},
		{
			name:               "emptyBody",
			payload:            ``,
			expectErr:          true,
			expectedRepository: UnknownPlaceholder,
			expectedPusher:     UnknownPlaceholder,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := ParsePushEvent([]byte(tc.payload))
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			require.NotNil(t, ev)
			assert.Equal(t, tc.expectedRepository, ev.Repository)
			assert.Equal(t, tc.expectedPusher, ev.Pusher)
			assert.Len(t, ev.Commits, tc.expectedCommitCnt)
		})
	}
}

func TestParsePushEventKeepsValidCommitFields(t *testing.T) {
	ev, err := ParsePushEvent([]byte(
		`{"repository":{"full_name":"acme/repo"},"pusher":{"name":"alice"},` +
			`"commits":[{"id":123,"message":"fix bug","url":"https://example.com/c/1"},{"id":"0123456789","message":["x"],"url":"https://example.com/c/2"}]}`,
	))
	require.Error(t, err)

	assert.ErrorContains(t, err, "commits[0]: id")
	assert.ErrorContains(t, err, "commits[1]: message")

	assert.Equal(t, "acme/repo", ev.Repository)
	assert.Equal(t, "alice", ev.Pusher)
	assert.Equal(
		t,
		[]*notify.Commit{
			{Message: "fix bug", URL: "https://example.com/c/1"},
			{ID: "0123456789", URL: "https://example.com/c/2"},
		},
		ev.Commits,
	)
}
