package models

import (
	"time"
)

// EventDateLayout is the calendar-date form the events API uses for Event.Date.
const EventDateLayout = "2006-01-02"

type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	Time        *string   `json:"time"`
	StartTime   string    `json:"startTime,omitempty"`
	Location    string    `json:"location,omitempty"`
	Image       string    `json:"image,omitempty"`
	CategoryID  *string   `json:"categoryId"`
	Category    *Category `json:"category"`
	Batches     []Batch   `json:"batches"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Batch struct {
	ID        string    `json:"id"`
	EventID   string    `json:"eventId"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Day returns the event's calendar date in loc. Date-only values are read as
// local calendar days; full timestamps are converted into loc. The second
// result is false when the date cannot be parsed.
func (e Event) Day(loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	if d, err := time.ParseInLocation(EventDateLayout, e.Date, loc); err == nil {
		return d, true
	}
	if d, err := time.Parse(time.RFC3339, e.Date); err == nil {
		return d.In(loc), true
	}
	return time.Time{}, false
}

// Batch looks a batch up by id.
func (e Event) Batch(id string) (Batch, bool) {
	for _, b := range e.Batches {
		if b.ID == id {
			return b, true
		}
	}
	return Batch{}, false
}

type Pagination struct {
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
}

type EventPage struct {
	Data       []Event    `json:"data"`
	Pagination Pagination `json:"pagination"`
}
