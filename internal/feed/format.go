// ABOUTME: Display helpers for feed items: publish dates and rating stars
// ABOUTME: Pure functions shared by every renderer of books

package feed

import (
	"strings"
	"time"
)

// MaxRating is the highest rating a book can carry.
const MaxRating = 5

// FormatPublishDate renders t as "Jan 2006 2".
func FormatPublishDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2006 2")
}

// FormatMemberSince renders t as "Jan 2006".
func FormatMemberSince(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("Jan 2006")
}

// RatingStars renders rating as filled and empty stars. Out of range
// ratings are clamped to [0, MaxRating].
func RatingStars(rating int) string {
	rating = max(0, min(rating, MaxRating))
	return strings.Repeat("★", rating) + strings.Repeat("☆", MaxRating-rating)
}
