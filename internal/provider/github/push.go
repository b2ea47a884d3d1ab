package github

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/simplesurance/commitmailer/internal/logfields"
	"github.com/simplesurance/commitmailer/internal/notify"
)

// UnknownPlaceholder is used for the repository or pusher name, when it is
// missing in the push event payload.
const UnknownPlaceholder = "unknown"

const pushEventType = "push"

// PushEvent contains the fields of a github push webhook event that are
// relevant for notifications.
// All fields are always set, missing values are replaced by defaults.
type PushEvent struct {
	// Repository is the full name (owner/name) of the repository.
	Repository string
	// Pusher is the name of the user that pushed the commits.
	Pusher string
	// Commits are the pushed commits in the order of the payload.
	Commits []*notify.Commit
}

// pushPayload is the subset of a push event payload that is evaluated.
// The fields are decoded individually, a malformed field does not prevent
// decoding the others.
type pushPayload struct {
	Repository json.RawMessage `json:"repository"`
	Pusher     json.RawMessage `json:"pusher"`
	Commits    json.RawMessage `json:"commits"`
}

// ParsePushEvent converts a push event payload to a PushEvent.
// Only repository.full_name, pusher.name and the id, message and url of the
// commits are evaluated, all other fields of the payload are ignored.
// Fields that are missing or have an unexpected type are replaced by
// defaults, the returned error describes them. If the payload is not a JSON
// object, a PushEvent without commits is returned.
// The returned PushEvent is never nil.
func ParsePushEvent(payload []byte) (*PushEvent, error) {
	result := PushEvent{
		Repository: UnknownPlaceholder,
		Pusher:     UnknownPlaceholder,
		Commits:    []*notify.Commit{},
	}

	var pl pushPayload
	if err := json.Unmarshal(payload, &pl); err != nil {
		return &result, fmt.Errorf("decoding push event payload failed: %w", err)
	}

	var errs error

	name, err := stringField(pl.Repository, "full_name")
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("repository: %w", err))
	}
	if name != "" {
		result.Repository = name
	}

	name, err = stringField(pl.Pusher, "name")
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("pusher: %w", err))
	}
	if name != "" {
		result.Pusher = name
	}

	commits, err := parseCommits(pl.Commits)
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	result.Commits = append(result.Commits, commits...)

	return &result, errs
}

func parseCommits(raw json.RawMessage) ([]*notify.Commit, error) {
	if isNull(raw) {
		return nil, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("commits: %w", err)
	}

	var errs error
	result := make([]*notify.Commit, 0, len(entries))

	for i, entry := range entries {
		if isNull(entry) {
			continue
		}

		fields, err := objectFields(entry)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("commits[%d]: %w", i, err))
			continue
		}

		var c notify.Commit

		for _, f := range []struct {
			key string
			dst *string
		}{
			{key: "id", dst: &c.ID},
			{key: "message", dst: &c.Message},
			{key: "url", dst: &c.URL},
		} {
			*f.dst, err = stringValue(fields, f.key)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("commits[%d]: %w", i, err))
			}
		}

		if c.ID == "" && c.Message == "" && c.URL == "" {
			continue
		}

		result = append(result, &c)
	}

	return result, errs
}

// stringField returns the string value of the field key of the JSON object
// obj.
// An empty string is returned if obj or the field is null or missing.
func stringField(obj json.RawMessage, key string) (string, error) {
	fields, err := objectFields(obj)
	if err != nil {
		return "", err
	}

	return stringValue(fields, key)
}

// objectFields decodes a JSON object, nil is returned for null.
func objectFields(obj json.RawMessage) (map[string]json.RawMessage, error) {
	if isNull(obj) {
		return nil, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(obj, &fields); err != nil {
		return nil, err
	}

	return fields, nil
}

func stringValue(fields map[string]json.RawMessage, key string) (string, error) {
	val, exists := fields[key]
	if !exists || isNull(val) {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(val, &s); err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}

	return s, nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

func (e *PushEvent) LogFields() []zap.Field {
	return []zap.Field{
		logfields.Repository(e.Repository),
		logfields.Pusher(e.Pusher),
		logfields.CommitCount(len(e.Commits)),
	}
}
