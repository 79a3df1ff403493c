package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/url"
	"strings"
)

// Caller is the transport used by Client; *Gateway implements it
type Caller interface {
	Call(ctx context.Context, action string, params Params) (json.RawMessage, error)
}

// Client exposes the remote action catalog as typed methods
type Client struct {
	caller Caller
}

// NewClient creates a typed client on top of caller
func NewClient(caller Caller) *Client {
	return &Client{caller: caller}
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func decodeResult[T any](action string, raw json.RawMessage) (T, error) {
	var out T
	if isNull(raw) {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, &APIError{Kind: KindProtocol, Action: action, Message: "unexpected result shape", Err: err}
	}
	return out, nil
}

func call[T any](ctx context.Context, c *Client, action string, params Params) (T, error) {
	raw, err := c.caller.Call(ctx, action, params)
	if err != nil {
		var zero T
		return zero, err
	}
	return decodeResult[T](action, raw)
}

// decodeActivity decodes a full activity and enforces its team invariants
func decodeActivity(action string, raw json.RawMessage) (*Activity, error) {
	if isNull(raw) {
		return nil, &APIError{Kind: KindProtocol, Action: action, Message: "API did not return updated activity details"}
	}
	var a Activity
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, &APIError{Kind: KindProtocol, Action: action, Message: "unexpected activity shape", Err: err}
	}
	a.Normalize()
	if err := a.Validate(); err != nil {
		return nil, &APIError{Kind: KindProtocol, Action: action, Message: "activity violates team invariants", Err: err}
	}
	return &a, nil
}

func (c *Client) activityCall(ctx context.Context, action string, params Params) (*Activity, error) {
	raw, err := c.caller.Call(ctx, action, params)
	if err != nil {
		return nil, err
	}
	return decodeActivity(action, raw)
}

// EncodeMessageText applies URL component encoding to outgoing chat text
func EncodeMessageText(text string) string {
	return strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// VerifyToken verifies token explicitly, without the stored credential
func (c *Client) VerifyToken(ctx context.Context, token string) (VerifyResult, error) {
	return call[VerifyResult](ctx, c, VerifyAction, Params{TokenParam: token})
}

// GetGroups lists the groups the user belongs to
func (c *Client) GetGroups(ctx context.Context) ([]Group, error) {
	return call[[]Group](ctx, c, "getGroups", nil)
}

// CreateGroup creates a group named name
func (c *Client) CreateGroup(ctx context.Context, name string) (GroupResult, error) {
	return call[GroupResult](ctx, c, "createGroup", Params{"name": name})
}

// JoinGroup joins the group identified by code
func (c *Client) JoinGroup(ctx context.Context, code string) (GroupResult, error) {
	return call[GroupResult](ctx, c, "joinGroup", Params{"code": code})
}

// GetGroupDetails fetches a group's name and join code
func (c *Client) GetGroupDetails(ctx context.Context, groupID string) (GroupDetails, error) {
	return call[GroupDetails](ctx, c, "getGroupDetails", Params{"groupId": groupID})
}

// ResetGroupCode issues a new join code for the group
func (c *Client) ResetGroupCode(ctx context.Context, groupID string) (ResetCodeResult, error) {
	return call[ResetCodeResult](ctx, c, "resetGroupCode", Params{"groupId": groupID})
}

// GetChat fetches messages newer than since; since 0 fetches the whole log
func (c *Client) GetChat(ctx context.Context, groupID string, since int64) ([]ChatMessage, error) {
	params := Params{"groupId": groupID}
	if since > 0 {
		params["since"] = since
	}
	return call[[]ChatMessage](ctx, c, "getChat", params)
}

// SendMessage posts a chat message
func (c *Client) SendMessage(ctx context.Context, groupID, text string) error {
	_, err := c.caller.Call(ctx, "sendMessage", Params{
		"groupId": groupID,
		"message": EncodeMessageText(text),
	})
	return err
}

// GetPolls lists the group's polls
func (c *Client) GetPolls(ctx context.Context, groupID string) ([]Poll, error) {
	return call[[]Poll](ctx, c, "getPolls", Params{"groupId": groupID})
}

// CreatePoll creates a poll with the given options
func (c *Client) CreatePoll(ctx context.Context, groupID, title string, options []string) (Poll, error) {
	return call[Poll](ctx, c, "createPoll", Params{
		"groupId": groupID,
		"title":   title,
		"options": options,
	})
}

// DeletePoll deletes a poll; a {success:false} reply is reported as a remote error
func (c *Client) DeletePoll(ctx context.Context, groupID, pollID string) error {
	res, err := call[DeleteResult](ctx, c, "deletePoll", Params{"groupId": groupID, "pollId": pollID})
	if err != nil {
		return err
	}
	return deleteOutcome("deletePoll", res)
}

// CastVote records the user's vote. The remote store only acknowledges it.
func (c *Client) CastVote(ctx context.Context, groupID, pollID, optionID string) error {
	_, err := c.caller.Call(ctx, "castVote", Params{
		"groupId": groupID,
		"pollId":  pollID,
		"option":  optionID,
	})
	return err
}

// GetPollInfo fetches per-option vote counts
func (c *Client) GetPollInfo(ctx context.Context, groupID, pollID string) (PollInfo, error) {
	info, err := call[PollInfo](ctx, c, "getPollInfo", Params{"groupId": groupID, "pollId": pollID})
	if err != nil {
		return info, err
	}
	if info.Stats == nil {
		return info, &APIError{Kind: KindProtocol, Action: "getPollInfo", Message: "Received invalid data from API."}
	}
	return info, nil
}

// GetActivities lists the group's activities
func (c *Client) GetActivities(ctx context.Context, groupID string) ([]ActivitySummary, error) {
	return call[[]ActivitySummary](ctx, c, "getActivities", Params{"groupId": groupID})
}

// GetActivityDetail fetches one activity with its teams
func (c *Client) GetActivityDetail(ctx context.Context, groupID, activityID string) (*Activity, error) {
	return c.activityCall(ctx, "getActivityDetail", Params{"groupId": groupID, "activityId": activityID})
}

// CreateActivity creates an activity and returns its summary
func (c *Client) CreateActivity(ctx context.Context, groupID, title, description string) (ActivitySummary, error) {
	return call[ActivitySummary](ctx, c, "createActivity", Params{
		"groupId":     groupID,
		"title":       title,
		"description": description,
	})
}

// DeleteActivity deletes an activity; a {success:false} reply is reported as a remote error
func (c *Client) DeleteActivity(ctx context.Context, groupID, activityID string) error {
	res, err := call[DeleteResult](ctx, c, "deleteActivity", Params{"groupId": groupID, "activityId": activityID})
	if err != nil {
		return err
	}
	return deleteOutcome("deleteActivity", res)
}

// UpdateActivityDetail saves one field. The reply may or may not carry the
// updated activity; nil is returned when it does not.
func (c *Client) UpdateActivityDetail(ctx context.Context, groupID, activityID, field, value string) (*Activity, error) {
	raw, err := c.caller.Call(ctx, "updateActivityDetail", Params{
		"groupId":    groupID,
		"activityId": activityID,
		"field":      field,
		"value":      value,
	})
	if err != nil {
		return nil, err
	}
	if !looksLikeActivity(raw) {
		return nil, nil
	}
	return decodeActivity("updateActivityDetail", raw)
}

// UpdateTeams adds or removes a team; change is "+1" or "-1"
func (c *Client) UpdateTeams(ctx context.Context, groupID, activityID, change string) (*Activity, error) {
	return c.activityCall(ctx, "updateTeams", Params{
		"groupId":    groupID,
		"activityId": activityID,
		"change":     change,
	})
}

// AssignTeamMember moves memberID into teamID
func (c *Client) AssignTeamMember(ctx context.Context, groupID, activityID, memberID, teamID string) (*Activity, error) {
	return c.activityCall(ctx, "assignTeamMember", Params{
		"groupId":    groupID,
		"activityId": activityID,
		"memberId":   memberID,
		"teamId":     teamID,
	})
}

func deleteOutcome(action string, res DeleteResult) error {
	if res.Success {
		return nil
	}
	msg := res.Message
	if msg == "" {
		msg = "Backend reported failure but no specific error."
	}
	return &APIError{Kind: KindRemote, Action: action, Message: msg}
}

// looksLikeActivity reports whether an ack payload is a full activity object
func looksLikeActivity(raw json.RawMessage) bool {
	if isNull(raw) {
		return false
	}
	var probe struct {
		Teams json.RawMessage `json:"teams"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return false
	}
	return !isNull(probe.Teams)
}
