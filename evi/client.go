// Package evi is the client for the empathic voice interface: the realtime
// chat socket plus CRUD for configs, prompts, tools, custom voices and
// recorded chat history.
package evi

import attune "github.com/attune-ai/attune-go"

// Client groups the EVI surface. Build one with New; all sub-clients share
// the root client's credential and retry policy.
type Client struct {
	Chat         *ChatClient
	Configs      *ConfigsClient
	Prompts      *PromptsClient
	Tools        *ToolsClient
	CustomVoices *CustomVoicesClient
	Chats        *ChatsClient
	ChatGroups   *ChatGroupsClient
}

// New builds the EVI client as a view over c.
func New(c *attune.Client) *Client {
	return &Client{
		Chat:         &ChatClient{c: c},
		Configs:      &ConfigsClient{c: c},
		Prompts:      &PromptsClient{c: c},
		Tools:        &ToolsClient{c: c},
		CustomVoices: &CustomVoicesClient{c: c},
		Chats:        &ChatsClient{c: c},
		ChatGroups:   &ChatGroupsClient{c: c},
	}
}
