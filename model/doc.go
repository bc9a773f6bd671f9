// Package model defines the provider-agnostic chat primitive used by agents
// and text generation tasks.
//
// A Chat starts Conversations. A Conversation keeps the provider specific
// message history; Send asks the model for the next reply given the declared
// tools, and AddToolResult appends the result of a requested function call in
// the provider's format. Provider adapters live in the openai and anthropic
// sub-packages.
//
// Providers that decline to produce a usable answer fail Send with a
// *GenerationFailedError or *PromptBlockedError carrying a Reason from a small
// fixed vocabulary.
package model
