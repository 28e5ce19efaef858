package model

// Category groups titles ("Films", "Books", ...). A Title keeps at most one.
type Category struct {
	ID   int64  `json:"-"    db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Genre is attached to titles through the genre_title join table.
type Genre struct {
	ID   int64  `json:"-"    db:"id"`
	Name string `json:"name" db:"name"`
	Slug string `json:"slug" db:"slug"`
}

// Title is a reviewable work.
//
// Rating is the integer part of the average review score and is nil while the
// title has no reviews. Category is nil when unset or when its category was
// deleted.
type Title struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Year        int       `json:"year"`
	Rating      *int      `json:"rating"`
	Description string    `json:"description"`
	Genres      []Genre   `json:"genre"`
	Category    *Category `json:"category"`
}
