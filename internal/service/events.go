package service

import (
	"context"
	"time"
)

// Notifier delivers the hired notification to a freelancer's private channel.
type Notifier interface {
	NotifyHired(ctx context.Context, freelancerID, gigID, gigTitle string) error
}

// EventPublisher ships domain events to the outside world, keyed for partitioning.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

const (
	EventGigHired    = "gig.hired"
	EventChatMessage = "chat.message"
)

type HiredEvent struct {
	Type         string    `json:"type"`
	GigID        string    `json:"gigId"`
	GigTitle     string    `json:"gigTitle"`
	BidID        string    `json:"bidId"`
	OwnerID      string    `json:"ownerId"`
	FreelancerID string    `json:"freelancerId"`
	RejectedBids int64     `json:"rejectedBids"`
	At           time.Time `json:"at"`
}

type ChatMessageEvent struct {
	Type      string    `json:"type"`
	MessageID string    `json:"messageId"`
	GigID     string    `json:"gigId"`
	SenderID  string    `json:"senderId"`
	At        time.Time `json:"at"`
}

type noopNotifier struct{}

func (noopNotifier) NotifyHired(context.Context, string, string, string) error { return nil }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, any) error { return nil }
