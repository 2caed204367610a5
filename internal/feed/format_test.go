// ABOUTME: Tests for book display formatting helpers
// ABOUTME: Covers publish dates, member-since dates, and star ratings

package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatPublishDate(t *testing.T) {
	ts := time.Date(2024, time.March, 7, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "Mar 2024 7", FormatPublishDate(ts))
	assert.Equal(t, "", FormatPublishDate(time.Time{}))
}

func TestFormatMemberSince(t *testing.T) {
	ts := time.Date(2023, time.November, 20, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "Nov 2023", FormatMemberSince(ts))
	assert.Equal(t, "", FormatMemberSince(time.Time{}))
}

func TestRatingStars(t *testing.T) {
	tests := []struct {
		rating int
		want   string
	}{
		{0, "☆☆☆☆☆"},
		{3, "★★★☆☆"},
		{5, "★★★★★"},
		{9, "★★★★★"},
		{-2, "☆☆☆☆☆"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RatingStars(tt.rating), "rating %d", tt.rating)
	}
}
