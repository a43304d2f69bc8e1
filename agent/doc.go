// Copyright 2024 AgentFlow Authors. All rights reserved.
// Use of this source code is governed by a MIT license that can be
// found in the LICENSE file.

/*
Package agent provides conversable agents for MarketStream.

# Overview

An agent keeps one message history per peer, answers through an ordered
chain of reply providers and talks to other agents with Send/Receive.
Two flavours are built in: an assistant backed by an LLM client and a
user proxy that answers with a fixed policy, optional human input and
any providers registered on top.

# Architecture

	┌─────────────────────────────────────────────────────────────┐
	│                    Conversable Interface                    │
	│           (Name, Send, Receive, GenerateReply)              │
	├─────────────────────────────────────────────────────────────┤
	│                          Agent                              │
	│  (per-peer history, auto-reply counter, termination check)  │
	├─────────────────────────────────────────────────────────────┤
	│  ┌─────────────┐  ┌─────────────────────────────────────┐  │
	│  │ Human gate  │  │            ReplyChain               │  │
	│  │ (NEVER,     │  │  priority → trigger → provider      │  │
	│  │  ALWAYS,    │  │  first Handled reply wins           │  │
	│  │  TERMINATE) │  │                                     │  │
	│  └─────────────┘  └─────────────────────────────────────┘  │
	├─────────────────────────────────────────────────────────────┤
	│                      llm.Client                             │
	└─────────────────────────────────────────────────────────────┘

# Reply Chain

Providers implement [ReplyProvider] and return a [Reply], which is either
[Declined] or [Handled]. A provider is registered with a priority, an
optional [Trigger] and an optional config payload:

	user.RegisterReply(provider,
	    agent.WithPriority(2),
	    agent.WithTrigger(agent.SenderIn(assistant)),
	    agent.WithConfig(cfg),
	)

Lower priorities run first; equal priorities keep registration order.
An error from a provider aborts the chain.

# Auto Reply Policy

[AutoReplyPolicy] caps consecutive automatic replies per peer and selects
the human input mode. In NEVER mode the agent stops once the cap is hit
or a termination message arrives, and the counter is reset so a later
chat starts fresh.

# Chats

[Agent.InitiateChat] sends the opening message, lets the two sides talk
until one of them has nothing to say and returns a [ChatResult] with the
history, a summary (last message or LLM reflection) and the combined
cost of both sides.
*/
package agent
