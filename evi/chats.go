package evi

import (
	"context"
	"net/http"
	"net/url"

	attune "github.com/attune-ai/attune-go"
)

// ChatsClient reads recorded chat history.
type ChatsClient struct {
	c *attune.Client
}

// List returns one page of recorded chats.
func (c *ChatsClient) List(ctx context.Context, page attune.PageParams) (*ChatsPage, error) {
	var out ChatsPage
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/chats", nil, &out, attune.WithPageParams(page))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one recorded chat.
func (c *ChatsClient) Get(ctx context.Context, chatID string) (*Chat, error) {
	var out Chat
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/chats/"+url.PathEscape(chatID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvents returns one page of a chat's transcript events.
func (c *ChatsClient) ListEvents(ctx context.Context, chatID string, page attune.PageParams) (*ChatEventsPage, error) {
	var out ChatEventsPage
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/chats/"+url.PathEscape(chatID)+"/events", nil, &out, attune.WithPageParams(page))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ChatGroupsClient reads resumable conversation threads.
type ChatGroupsClient struct {
	c *attune.Client
}

// List returns one page of chat groups.
func (c *ChatGroupsClient) List(ctx context.Context, page attune.PageParams) (*ChatGroupsPage, error) {
	var out ChatGroupsPage
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/chat_groups", nil, &out, attune.WithPageParams(page))
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Get returns one chat group.
func (c *ChatGroupsClient) Get(ctx context.Context, groupID string) (*ChatGroup, error) {
	var out ChatGroup
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/chat_groups/"+url.PathEscape(groupID), nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListChats returns one page of the chats belonging to a group.
func (c *ChatGroupsClient) ListChats(ctx context.Context, groupID string, page attune.PageParams) (*ChatsPage, error) {
	var out ChatsPage
	err := c.c.Do(ctx, http.MethodGet, "/v0/evi/chat_groups/"+url.PathEscape(groupID)+"/chats", nil, &out, attune.WithPageParams(page))
	if err != nil {
		return nil, err
	}
	return &out, nil
}
