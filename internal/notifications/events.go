package notifications

import "encoding/json"

// Redis channels carrying domain events.
const (
	ChannelPosts   = "chirp:events:posts"
	ChannelVotes   = "chirp:events:votes"
	ChannelPattern = "chirp:events:*"
)

// Event types.
const (
	EventPostCreated = "post_created"
	EventPostUpdated = "post_updated"
	EventPostDeleted = "post_deleted"
	EventVoteAdded   = "vote_added"
	EventVoteRemoved = "vote_removed"
)

// Event is the envelope written to Redis and forwarded to feed clients.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PostEventPayload describes a post mutation.
type PostEventPayload struct {
	PostID    uint   `json:"post_id"`
	OwnerID   uint   `json:"owner_id"`
	Title     string `json:"title,omitempty"`
	Published bool   `json:"published"`
}

// VoteEventPayload describes an applied vote.
type VoteEventPayload struct {
	PostID uint `json:"post_id"`
	UserID uint `json:"user_id"`
	Dir    int  `json:"dir"`
}
