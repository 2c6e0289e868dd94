// Package hotel provides the demonstration booking tools offered to the
// model: availability checks, today's date, bookings and a hotel listing.
package hotel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moorebrett0/concierge/internal/tool"
)

const dateLayout = "2006-01-02"

// Hotel is one property in the inventory.
type Hotel struct {
	Name        string  `yaml:"name"`
	City        string  `yaml:"city"`
	Rooms       int     `yaml:"rooms"`
	NightlyRate float64 `yaml:"nightly_rate"`
}

// Booking is a confirmed reservation.
type Booking struct {
	Confirmation string  `json:"confirmation"`
	Hotel        string  `json:"hotel"`
	CheckIn      string  `json:"checkin_date"`
	CheckOut     string  `json:"checkout_date"`
	Nights       int     `json:"nights"`
	Guests       int     `json:"guests"`
	Rooms        int     `json:"rooms"`
	GuestDetails string  `json:"guest_details,omitempty"`
	Total        float64 `json:"total"`
}

// Inventory tracks rooms left per hotel. Rooms are taken for the whole stay
// regardless of dates; it is a demo, not a reservation system.
type Inventory struct {
	mu       sync.Mutex
	hotels   []Hotel
	left     map[string]int
	bookings []Booking
	now      func() time.Time
}

func NewInventory(hotels []Hotel) *Inventory {
	inv := &Inventory{
		hotels: append([]Hotel(nil), hotels...),
		left:   make(map[string]int, len(hotels)),
		now:    time.Now,
	}
	for _, h := range hotels {
		inv.left[key(h.Name)] = h.Rooms
	}
	return inv
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds check_hotel, get_date, book_hotel and list_hotels to r.
func (inv *Inventory) Register(r *tool.Registry) error {
	tools := []struct {
		desc    tool.Descriptor
		handler tool.Handler
	}{
		{
			desc: tool.Descriptor{
				Name:        "check_hotel",
				Description: "Tells whether a hotel is available or not.",
				Params: []tool.Param{
					{Name: "name", Type: tool.TypeString, Description: "Hotel name", Required: true},
				},
			},
			handler: inv.checkHotel,
		},
		{
			desc: tool.Descriptor{
				Name:        "get_date",
				Description: "Returns today's date (YYYY-MM-DD) and weekday.",
			},
			handler: inv.getDate,
		},
		{
			desc: tool.Descriptor{
				Name:        "book_hotel",
				Description: "Books rooms at a hotel and returns the confirmation.",
				Params: []tool.Param{
					{Name: "name", Type: tool.TypeString, Description: "Hotel name", Required: true},
					{Name: "checkin_date", Type: tool.TypeString, Description: "Check-in date, YYYY-MM-DD", Required: true},
					{Name: "checkout_date", Type: tool.TypeString, Description: "Check-out date, YYYY-MM-DD", Required: true},
					{Name: "guests", Type: tool.TypeInteger, Description: "Number of guests", Required: true},
					{Name: "rooms", Type: tool.TypeInteger, Description: "Number of rooms", Required: true},
					{Name: "guest_details", Type: tool.TypeString, Description: "Lead guest name and contact"},
				},
			},
			handler: inv.bookHotel,
		},
		{
			desc: tool.Descriptor{
				Name:        "list_hotels",
				Description: "Lists the hotels on offer with their city, nightly rate and rooms left.",
			},
			handler: inv.listHotels,
		},
	}
	for _, t := range tools {
		if err := r.Register(t.desc, t.handler); err != nil {
			return err
		}
	}
	return nil
}

func (inv *Inventory) checkHotel(_ context.Context, args tool.Args) (any, error) {
	name, err := args.String("name")
	if err != nil {
		return nil, err
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()
	if left, ok := inv.left[key(name)]; ok && left > 0 {
		return "yes available", nil
	}
	return "not available", nil
}

func (inv *Inventory) getDate(context.Context, tool.Args) (any, error) {
	now := inv.now()
	return map[string]any{
		"date":    now.Format(dateLayout),
		"weekday": now.Weekday().String(),
	}, nil
}

func (inv *Inventory) listHotels(context.Context, tool.Args) (any, error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	out := make([]map[string]any, 0, len(inv.hotels))
	for _, h := range inv.hotels {
		out = append(out, map[string]any{
			"name":         h.Name,
			"city":         h.City,
			"nightly_rate": h.NightlyRate,
			"rooms_left":   inv.left[key(h.Name)],
		})
	}
	return out, nil
}

func (inv *Inventory) bookHotel(_ context.Context, args tool.Args) (any, error) {
	name, err := args.String("name")
	if err != nil {
		return nil, err
	}
	checkIn, err := parseDate(args, "checkin_date")
	if err != nil {
		return nil, err
	}
	checkOut, err := parseDate(args, "checkout_date")
	if err != nil {
		return nil, err
	}
	guests, err := args.Int("guests")
	if err != nil {
		return nil, err
	}
	rooms, err := args.Int("rooms")
	if err != nil {
		return nil, err
	}
	details, err := args.OptionalString("guest_details", "")
	if err != nil {
		return nil, err
	}

	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	switch {
	case nights < 1:
		return nil, &tool.InvalidArgumentsError{Reason: "checkout_date must be after checkin_date"}
	case guests < 1:
		return nil, &tool.InvalidArgumentsError{Reason: "guests must be at least 1"}
	case rooms < 1:
		return nil, &tool.InvalidArgumentsError{Reason: "rooms must be at least 1"}
	}
	today := inv.now().Format(dateLayout)
	if checkIn.Format(dateLayout) < today {
		return nil, &tool.InvalidArgumentsError{Reason: fmt.Sprintf("checkin_date %s is in the past (today is %s)", checkIn.Format(dateLayout), today)}
	}

	inv.mu.Lock()
	defer inv.mu.Unlock()

	h, ok := inv.find(name)
	if !ok {
		return nil, fmt.Errorf("no hotel named %q", name)
	}
	left := inv.left[key(h.Name)]
	if rooms > left {
		return nil, fmt.Errorf("only %d rooms left at %s", left, h.Name)
	}

	b := Booking{
		Confirmation: strings.ToUpper(uuid.NewString()[:8]),
		Hotel:        h.Name,
		CheckIn:      checkIn.Format(dateLayout),
		CheckOut:     checkOut.Format(dateLayout),
		Nights:       nights,
		Guests:       guests,
		Rooms:        rooms,
		GuestDetails: details,
		Total:        float64(nights*rooms) * h.NightlyRate,
	}
	inv.left[key(h.Name)] = left - rooms
	inv.bookings = append(inv.bookings, b)
	slog.Info("hotel: booked", "hotel", h.Name, "confirmation", b.Confirmation, "nights", nights, "rooms", rooms)
	return b, nil
}

func (inv *Inventory) find(name string) (Hotel, bool) {
	for _, h := range inv.hotels {
		if key(h.Name) == key(name) {
			return h, true
		}
	}
	return Hotel{}, false
}

// Bookings returns the confirmed bookings in order.
func (inv *Inventory) Bookings() []Booking {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return append([]Booking(nil), inv.bookings...)
}

func parseDate(args tool.Args, name string) (time.Time, error) {
	s, err := args.String(name)
	if err != nil {
		return time.Time{}, err
	}
	d, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &tool.InvalidArgumentsError{Reason: fmt.Sprintf("%s must be a date like 2024-06-01, got %q", name, s)}
	}
	return d, nil
}
