// Copyright 2024-2026 Aiku AI

package mattermost

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/mattermost/mattermost/server/public/model"

	"github.com/aiku/mattermost-proxybot/pkg/platform"
)

func (c *Client) GetUser(ctx context.Context, userID string) (*platform.User, error) {
	user, resp, err := c.client.GetUser(ctx, userID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", classify(err, resp))
	}
	return convertUser(user), nil
}

func (c *Client) GetUserByUsername(ctx context.Context, username string) (*platform.User, error) {
	user, resp, err := c.client.GetUserByUsername(ctx, strings.TrimPrefix(username, "@"), "")
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", classify(err, resp))
	}
	return convertUser(user), nil
}

func (c *Client) GetChannel(ctx context.Context, channelID string) (*platform.Channel, error) {
	channel, resp, err := c.client.GetChannel(ctx, channelID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", classify(err, resp))
	}
	return convertChannel(channel), nil
}

func (c *Client) GetChannelByName(ctx context.Context, teamID, name string) (*platform.Channel, error) {
	channel, resp, err := c.client.GetChannelByName(ctx, strings.TrimPrefix(name, "~"), teamID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", classify(err, resp))
	}
	return convertChannel(channel), nil
}

// IsTeamAdmin reports whether a user administers the team, either as a team
// admin or as a system admin.
func (c *Client) IsTeamAdmin(ctx context.Context, teamID, userID string) (bool, error) {
	member, resp, err := c.client.GetTeamMember(ctx, teamID, userID, "")
	if err != nil {
		return false, fmt.Errorf("failed to get team member: %w", classify(err, resp))
	}
	if member.SchemeAdmin || hasRole(member.Roles, model.TeamAdminRoleId) {
		return true, nil
	}
	user, resp, err := c.client.GetUser(ctx, userID, "")
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", classify(err, resp))
	}
	return hasRole(user.Roles, model.SystemAdminRoleId), nil
}

func hasRole(roles, role string) bool {
	return slices.Contains(strings.Fields(roles), role)
}
