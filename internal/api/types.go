// ABOUTME: Wire and domain types exchanged with the book-recommendation backend
// ABOUTME: Decodes the backend's Mongo-style JSON (_id, nested user) into flat records

package api

import (
	"encoding/json"
	"time"
)

// UserRecord is the authenticated user's profile. It is persisted as JSON
// under the "user" credential key, so its own encoding must round-trip.
type UserRecord struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	ProfileImageURL string    `json:"profileImage"`
	CreatedAt       time.Time `json:"createdAt"`
}

// UnmarshalJSON accepts both "id" and Mongo's "_id".
func (u *UserRecord) UnmarshalJSON(data []byte) error {
	var w struct {
		ID           string `json:"id"`
		MongoID      string `json:"_id"`
		Username     string `json:"username"`
		Email        string `json:"email"`
		ProfileImage string `json:"profileImage"`
		CreatedAt    string `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*u = UserRecord{
		ID:              firstNonEmpty(w.ID, w.MongoID),
		Username:        w.Username,
		Email:           w.Email,
		ProfileImageURL: w.ProfileImage,
		CreatedAt:       parseTime(w.CreatedAt),
	}
	return nil
}

// Book is a single feed item. ID is its identity; every other field is data.
type Book struct {
	ID                   string
	Title                string
	Caption              string
	Rating               int
	ImageURL             string
	OwnerUserID          string
	OwnerUsername        string
	OwnerProfileImageURL string
	CreatedAt            time.Time
}

// bookOwner is the "user" field of a book, which the backend sends either
// populated (object) or as a bare id string.
type bookOwner struct {
	ID           string
	Username     string
	ProfileImage string
}

func (o *bookOwner) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		o.ID = id
		return nil
	}
	var w struct {
		ID           string `json:"id"`
		MongoID      string `json:"_id"`
		Username     string `json:"username"`
		ProfileImage string `json:"profileImage"`
		ProfilImage  string `json:"profilImage"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	o.ID = firstNonEmpty(w.ID, w.MongoID)
	o.Username = w.Username
	o.ProfileImage = firstNonEmpty(w.ProfileImage, w.ProfilImage)
	return nil
}

// UnmarshalJSON decodes the backend book representation.
func (b *Book) UnmarshalJSON(data []byte) error {
	var w struct {
		ID        string    `json:"id"`
		MongoID   string    `json:"_id"`
		Title     string    `json:"title"`
		Caption   string    `json:"caption"`
		Rating    int       `json:"rating"`
		Image     string    `json:"image"`
		User      bookOwner `json:"user"`
		CreatedAt string    `json:"createdAt"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = Book{
		ID:                   firstNonEmpty(w.ID, w.MongoID),
		Title:                w.Title,
		Caption:              w.Caption,
		Rating:               w.Rating,
		ImageURL:             w.Image,
		OwnerUserID:          w.User.ID,
		OwnerUsername:        w.User.Username,
		OwnerProfileImageURL: w.User.ProfileImage,
		CreatedAt:            parseTime(w.CreatedAt),
	}
	return nil
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token string      `json:"token"`
	User  *UserRecord `json:"user"`
}

// BooksPage is one page of the public feed.
type BooksPage struct {
	Books       []Book `json:"books"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
	TotalBooks  int    `json:"totalBooks"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateBookRequest is the body of POST /books. Image is a data URL.
type CreateBookRequest struct {
	Title   string `json:"title"`
	Caption string `json:"caption"`
	Rating  int    `json:"rating"`
	Image   string `json:"image"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseTime accepts RFC3339 with or without fractional seconds; anything
// else yields the zero time.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
