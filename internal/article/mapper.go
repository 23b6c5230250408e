package article

import (
	"encoding/json"
	"strings"
)

// TimestampLayout formats the row creation instant.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

const listSeparator = ", "

// Mapped is the result of mapping one hit.
type Mapped struct {
	Row Row
	// DateErr is set when the publication date was absent (ErrNoDate) or
	// malformed. The row still carries an empty date in either case.
	DateErr error
}

// Mapper converts search hits into rows.
type Mapper struct {
	categories Categories
	clock      Clock
}

// NewMapper constructs a Mapper. A nil clock uses the wall clock in UTC.
func NewMapper(categories Categories, clock Clock) *Mapper {
	if clock == nil {
		clock = UTCClock{}
	}
	return &Mapper{categories: categories, clock: clock}
}

// Map builds the row for hit.
func (m *Mapper) Map(hit Hit) Mapped {
	date, dateErr := ParseDate(hit.publicationDate())
	allowed, unknown := m.categories.Normalize(decodeList(hit.Topic))

	row := Row{
		Title:           hit.Title,
		PublicationDate: date,
		Author:          strings.Join(hit.authors(), listSeparator),
		Faculty:         strings.Join(stringsOf(decodeList(hit.Faculty)), listSeparator),
		Summary:         hit.Description,
		ArticleURL:      hit.URL,
		ImageURL:        hit.imageURL(),
		Category:        strings.Join(allowed, listSeparator),
		NewCategory:     strings.Join(unknown, listSeparator),
		ObjectID:        hit.ID,
		Timestamp:       m.clock.Now().Format(TimestampLayout),
	}
	return Mapped{Row: row, DateErr: dateErr}
}

func (h Hit) publicationDate() string {
	if h.SortDate != "" {
		return h.SortDate
	}
	if h.Display != nil {
		return h.Display.Date
	}
	return ""
}

func (h Hit) authors() []string {
	if authors := stringsOf(decodeList(h.Author)); len(authors) > 0 {
		return authors
	}
	if h.Display == nil {
		return nil
	}
	var byline []struct {
		Label string `json:"label"`
	}
	if err := json.Unmarshal(h.Display.Byline, &byline); err != nil {
		return nil
	}
	labels := make([]string, 0, len(byline))
	for _, b := range byline {
		labels = append(labels, b.Label)
	}
	return labels
}

func (h Hit) imageURL() string {
	if h.Display == nil || h.Display.Thumbnail == nil {
		return ""
	}
	src := h.Display.Thumbnail.Src
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}

// decodeList returns raw as a list, or nil when it is absent or not a JSON array.
func decodeList(raw json.RawMessage) []any {
	if len(raw) == 0 {
		return nil
	}
	var out []any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil
	}
	return out
}

func stringsOf(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
