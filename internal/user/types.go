package user

import "time"

// User represents a single directory record.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Email     string    `json:"email"`
	Telephone string    `json:"telephone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Page is the envelope returned by paginated queries.
type Page struct {
	Content       []User `json:"content"`
	Page          int    `json:"page"`
	Size          int    `json:"size"`
	TotalElements int    `json:"totalElements"`
	TotalPages    int    `json:"totalPages"`
	HasNext       bool   `json:"hasNext"`
	HasPrevious   bool   `json:"hasPrevious"`
}

// NewPage assembles a Page envelope from a slice of results and the
// total match count the slice was cut from.
func NewPage(content []User, page, size, total int) Page {
	if content == nil {
		content = []User{}
	}
	totalPages := 0
	if size > 0 {
		totalPages = (total + size - 1) / size
	}
	return Page{
		Content:       content,
		Page:          page,
		Size:          size,
		TotalElements: total,
		TotalPages:    totalPages,
		HasNext:       page+1 < totalPages,
		HasPrevious:   page > 0 && total > 0,
	}
}
