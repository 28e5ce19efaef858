package model

import "time"

// Review is one user's scored opinion of a title. A user may review a given
// title only once.
type Review struct {
	ID       int64     `json:"id"`
	TitleID  int64     `json:"-"`
	AuthorID int64     `json:"-"`
	Author   string    `json:"author"` // author's username
	Text     string    `json:"text"`
	Score    int       `json:"score"`
	PubDate  time.Time `json:"pub_date"`
}

// Owner returns the id of the user who wrote the review.
func (r *Review) Owner() int64 { return r.AuthorID }

// Comment is a reply attached to a review.
type Comment struct {
	ID       int64     `json:"id"`
	ReviewID int64     `json:"-"`
	AuthorID int64     `json:"-"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	PubDate  time.Time `json:"pub_date"`
}

func (c *Comment) Owner() int64 { return c.AuthorID }
