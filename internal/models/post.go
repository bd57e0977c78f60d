package models

import "time"

// Post represents a post owned by exactly one user.
type Post struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Published bool      `gorm:"not null" json:"published"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	Owner     User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner"`
	// VoteCount is not persisted; computed at query time
	VoteCount int64 `gorm:"->;-:migration" json:"-"`
}

// PostWithVotes is the read shape of a post: the post itself plus its vote tally.
type PostWithVotes struct {
	Post  Post  `json:"Post"`
	Votes int64 `json:"votes"`
}

// WithVotes pairs the post with the vote count loaded alongside it.
func (p Post) WithVotes() PostWithVotes {
	return PostWithVotes{Post: p, Votes: p.VoteCount}
}
