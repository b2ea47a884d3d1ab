package github

const pushEventPayload = `{
  "ref": "refs/heads/main",
  "before": "9049f1265b7d61be4a8904a9a27120d2064dab3b",
  "after": "0123456789abcdef0123456789abcdef01234567",
  "repository": {
    "id": 186853002,
    "name": "repo",
    "full_name": "acme/repo",
    "private": false,
    "owner": {
      "name": "acme",
      "email": null
    },
    "html_url": "https://github.com/acme/repo"
  },
  "pusher": {
    "name": "alice",
    "email": "alice@example.com"
  },
  "sender": {
    "login": "alice",
    "id": 21031067
  },
  "created": false,
  "deleted": false,
  "forced": false,
  "compare": "https://github.com/acme/repo/compare/9049f1265b7d...0123456789ab",
  "commits": [
    {
      "id": "abcdef1234567890abcdef1234567890abcdef12",
      "tree_id": "f9d2a07e9488b91af2641b26b9407fe22a451433",
      "distinct": true,
      "message": "fix bug",
      "timestamp": "2021-05-11T16:48:42+02:00",
      "url": "https://github.com/acme/repo/commit/abcdef1234567890abcdef1234567890abcdef12",
      "author": {
        "name": "Alice",
        "email": "alice@example.com",
        "username": "alice"
      },
      "added": [],
      "removed": [],
      "modified": ["main.go"]
    },
    {
      "id": "0123456789abcdef0123456789abcdef01234567",
      "tree_id": "a9d2a07e9488b91af2641b26b9407fe22a451433",
      "distinct": true,
      "message": "add feature\n\nwith a longer description",
      "timestamp": "2021-05-11T16:49:42+02:00",
      "url": "https://github.com/acme/repo/commit/0123456789abcdef0123456789abcdef01234567",
      "author": {
        "name": "Alice",
        "email": "alice@example.com",
        "username": "alice"
      },
      "added": ["feature.go"],
      "removed": [],
      "modified": []
    }
  ],
  "head_commit": {
    "id": "0123456789abcdef0123456789abcdef01234567",
    "message": "add feature\n\nwith a longer description",
    "url": "https://github.com/acme/repo/commit/0123456789abcdef0123456789abcdef01234567"
  }
}`

const pushEventWithoutCommitsPayload = `{
  "ref": "refs/tags/v1.0.0",
  "repository": {
    "full_name": "acme/repo"
  },
  "pusher": {
    "name": "alice"
  },
  "commits": []
}`

const pingEventPayload = `{
  "zen": "Keep it logically awesome.",
  "hook_id": 123456
}`

const issuesEventPayload = `{
  "action": "opened",
  "issue": {
    "number": 1,
    "title": "bug"
  },
  "repository": {
    "full_name": "acme/repo"
  }
}`
