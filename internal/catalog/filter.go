// Package catalog narrows a fetched event list down to what the visitor asked
// to see. Everything here is a pure function of its inputs.
package catalog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/farellandr/storefront/internal/models"
)

const (
	CategoryAll = "all"

	DefaultPriceCeiling = 500.0
	priceFloor          = 0.0
)

type DateWindow string

const (
	DateAll   DateWindow = "all"
	DateToday DateWindow = "today"
	DateWeek  DateWindow = "week"
	DateMonth DateWindow = "month"
)

func (w DateWindow) Valid() bool {
	switch w {
	case DateAll, DateToday, DateWeek, DateMonth:
		return true
	}
	return false
}

var (
	ErrInvalidPrice      = errors.New("invalid price ceiling")
	ErrInvalidDateWindow = errors.New("invalid date window")
)

type Criteria struct {
	Category     string     `json:"category"`
	Search       string     `json:"search"`
	PriceCeiling float64    `json:"priceCeiling"`
	DateWindow   DateWindow `json:"dateWindow"`
}

func DefaultCriteria() Criteria {
	return Criteria{
		Category:     CategoryAll,
		Search:       "",
		PriceCeiling: DefaultPriceCeiling,
		DateWindow:   DateAll,
	}
}

// Reset puts every criterion back to its default.
func (c *Criteria) Reset() {
	*c = DefaultCriteria()
}

// ParseCriteria builds criteria from raw query values. Blank values keep the
// default for that criterion.
func ParseCriteria(category, search, maxPrice, date string) (Criteria, error) {
	c := DefaultCriteria()

	if category = strings.TrimSpace(category); category != "" {
		c.Category = category
	}
	c.Search = search

	if maxPrice = strings.TrimSpace(maxPrice); maxPrice != "" {
		ceiling, err := strconv.ParseFloat(maxPrice, 64)
		if err != nil || ceiling < priceFloor {
			return Criteria{}, fmt.Errorf("%w: %q", ErrInvalidPrice, maxPrice)
		}
		c.PriceCeiling = ceiling
	}

	if date = strings.TrimSpace(date); date != "" {
		w := DateWindow(date)
		if !w.Valid() {
			return Criteria{}, fmt.Errorf("%w: %q", ErrInvalidDateWindow, date)
		}
		c.DateWindow = w
	}

	return c, nil
}

// Visible returns the events matching every criterion, in their original
// order. The result is always a fresh slice and events is left as it was,
// but the returned events share their Batches with the input.
func Visible(events []models.Event, c Criteria, now time.Time) []models.Event {
	visible := make([]models.Event, 0, len(events))
	for _, e := range events {
		if c.matches(e, now) {
			visible = append(visible, e)
		}
	}
	return visible
}

func (c Criteria) matches(e models.Event, now time.Time) bool {
	return c.matchesCategory(e) &&
		c.matchesSearch(e) &&
		c.matchesPrice(e) &&
		c.matchesDate(e, now)
}

func (c Criteria) matchesCategory(e models.Event) bool {
	if c.Category == CategoryAll {
		return true
	}
	return e.Category != nil && e.Category.Title == c.Category
}

func (c Criteria) matchesSearch(e models.Event) bool {
	if c.Search == "" {
		return true
	}
	term := strings.ToLower(c.Search)
	return strings.Contains(strings.ToLower(e.Title), term) ||
		strings.Contains(strings.ToLower(e.Description), term)
}

func (c Criteria) matchesPrice(e models.Event) bool {
	lowest := LowestPrice(e)
	return lowest >= priceFloor && lowest <= c.PriceCeiling
}

func (c Criteria) matchesDate(e models.Event, now time.Time) bool {
	if c.DateWindow == DateAll || c.DateWindow == "" {
		return true
	}

	day, ok := e.Day(now.Location())
	if !ok {
		return false
	}

	switch c.DateWindow {
	case DateToday:
		y1, m1, d1 := day.Date()
		y2, m2, d2 := now.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case DateWeek:
		return within(day, now.AddDate(0, 0, -7), now)
	case DateMonth:
		return within(day, now.AddDate(0, -1, 0), now)
	}
	return true
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}

// LowestPrice is the cheapest batch price of e, or 0 when e has no batches.
func LowestPrice(e models.Event) float64 {
	if len(e.Batches) == 0 {
		return 0
	}
	lowest := e.Batches[0].Price
	for _, b := range e.Batches[1:] {
		if b.Price < lowest {
			lowest = b.Price
		}
	}
	return lowest
}
