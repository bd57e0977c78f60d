package models

// Vote records that a user voted for a post. The row's presence is the vote;
// the composite primary key allows at most one row per (user, post).
type Vote struct {
	UserID uint `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	PostID uint `gorm:"primaryKey;autoIncrement:false;index" json:"post_id"`
	User   User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Post   Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// VoteDirection is the requested transition for a (user, post) vote.
type VoteDirection int

const (
	// VoteDown removes an existing vote.
	VoteDown VoteDirection = 0
	// VoteUp adds a vote.
	VoteUp VoteDirection = 1
)

// Valid reports whether d is one of the two supported directions.
func (d VoteDirection) Valid() bool {
	return d == VoteDown || d == VoteUp
}

func (d VoteDirection) String() string {
	if d == VoteUp {
		return "up"
	}
	return "down"
}
