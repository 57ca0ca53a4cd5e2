// Package events publishes article lifecycle notifications.
package events

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// Event types
const (
	ArticleCreated = "article.created"
	ArticleUpdated = "article.updated"
	ArticleDeleted = "article.deleted"
	ArticleLiked   = "article.liked"
	ArticleUnliked = "article.unliked"
)

// Event is the message body sent to subscribers
type Event struct {
	Type      string    `json:"type"`
	ArticleID uint      `json:"article_id"`
	UserID    uint      `json:"user_id"`
	LikeCount *int64    `json:"like_count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// New builds an event stamped with the current time
func New(eventType string, articleID, userID uint) Event {
	return Event{
		Type:      eventType,
		ArticleID: articleID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

// WithLikeCount attaches the like count after a like or unlike
func (e Event) WithLikeCount(count int64) Event {
	e.LikeCount = &count
	return e
}

// Publisher delivers events to subscribers
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the standard logger
type LogPublisher struct{}

// NewLogPublisher creates a publisher that only logs
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

// Publish logs the event as JSON
func (LogPublisher) Publish(_ context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	log.Printf("event: %s", body)
	return nil
}

// Close is a no-op
func (LogPublisher) Close() error { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Publish records the event
func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Close is a no-op
func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the recorded event types in order
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]string, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// Emit publishes and logs failures. Event delivery never fails a request.
func Emit(ctx context.Context, p Publisher, e Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		log.Printf("Failed to publish %s for article %d: %v", e.Type, e.ArticleID, err)
	}
}
