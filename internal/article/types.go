// Package article defines the search hit and sheet row types and the mapping between them.
package article

import (
	"encoding/json"
	"time"
)

// Width is the number of columns in a Row.
const Width = 11

// KeyIndex is the position of the Object ID column within a Row.
const KeyIndex = 9

// Hit is one raw article record returned by the search API.
//
// Fields whose JSON type varies between records are held raw and resolved
// once by the Mapper:
//   - Author falls back to Display.Byline labels when absent or empty.
//   - Faculty is used only when it is a JSON array.
//   - Topic is decoded to []any so non-string entries survive until normalization.
type Hit struct {
	ID          string          `json:"id"`
	URL         string          `json:"url"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	SortDate    string          `json:"sortDate"`
	Author      json.RawMessage `json:"author,omitempty"`
	Faculty     json.RawMessage `json:"faculty,omitempty"`
	Topic       json.RawMessage `json:"topic,omitempty"`
	Display     *Display        `json:"display,omitempty"`
}

// Display holds the presentation block nested in a Hit.
type Display struct {
	Date      string          `json:"date"`
	Byline    json.RawMessage `json:"byline,omitempty"`
	Thumbnail *Thumbnail      `json:"thumbnail,omitempty"`
}

// Thumbnail references the hit's preview image.
type Thumbnail struct {
	Src string `json:"src"`
}

// Row is the fixed-width record appended to the table store.
type Row struct {
	Title           string
	PublicationDate string
	Author          string
	Faculty         string
	Summary         string
	ArticleURL      string
	ImageURL        string
	Category        string
	NewCategory     string
	ObjectID        string
	Timestamp       string
}

// Values returns the row's cells in column order.
func (r Row) Values() []any {
	return []any{
		r.Title,
		r.PublicationDate,
		r.Author,
		r.Faculty,
		r.Summary,
		r.ArticleURL,
		r.ImageURL,
		r.Category,
		r.NewCategory,
		r.ObjectID,
		r.Timestamp,
	}
}

// Strings is Values with string cells, used by SQL backends.
func (r Row) Strings() [Width]string {
	return [Width]string{
		r.Title,
		r.PublicationDate,
		r.Author,
		r.Faculty,
		r.Summary,
		r.ArticleURL,
		r.ImageURL,
		r.Category,
		r.NewCategory,
		r.ObjectID,
		r.Timestamp,
	}
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// UTCClock is the wall clock in UTC.
type UTCClock struct{}

// Now returns time.Now in UTC.
func (UTCClock) Now() time.Time { return time.Now().UTC() }
