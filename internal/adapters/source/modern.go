package source

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/gridelo/internal/domain/model"
)

// DefaultModernBaseURL is the OpenF1 API root.
const DefaultModernBaseURL = "https://api.openf1.org/v1"

const modernProvider = "modern"

type openf1Session struct {
	SessionKey  int    `json:"session_key"`
	SessionName string `json:"session_name"`
	DateStart   string `json:"date_start"`
	DateEnd     string `json:"date_end"`
	Location    string `json:"location"`
	CountryName string `json:"country_name"`
	Year        int    `json:"year"`
}

type openf1Result struct {
	Position     *int `json:"position"`
	DriverNumber int  `json:"driver_number"`
}

type openf1Driver struct {
	DriverNumber int    `json:"driver_number"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	FullName     string `json:"full_name"`
}

// Modern reads recent seasons from OpenF1. Round r of a season is the r-th
// finished race session by start time.
type Modern struct {
	client *Client
	base   string
	now    func() time.Time
}

// ModernOption configures Modern.
type ModernOption func(*Modern)

// WithNow overrides the clock used to decide which sessions are finished.
func WithNow(now func() time.Time) ModernOption {
	return func(m *Modern) {
		if now != nil {
			m.now = now
		}
	}
}

// NewModern creates a Modern provider. An empty base selects DefaultModernBaseURL.
func NewModern(client *Client, base string, opts ...ModernOption) *Modern {
	if base == "" {
		base = DefaultModernBaseURL
	}
	m := &Modern{client: client, base: strings.TrimRight(base, "/"), now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Name identifies the provider in logs and metrics.
func (m *Modern) Name() string { return modernProvider }

// EventCount returns the number of race sessions of season that have ended.
func (m *Modern) EventCount(ctx context.Context, season int) (int, error) {
	sessions, err := m.races(ctx, season)
	if err != nil {
		return 0, err
	}
	return len(sessions), nil
}

// EventResults joins the session classification with the driver list.
func (m *Modern) EventResults(ctx context.Context, season, round int) (model.RawEvent, error) {
	sessions, err := m.races(ctx, season)
	if err != nil {
		return model.RawEvent{}, err
	}
	if round < 1 || round > len(sessions) {
		return model.RawEvent{}, fmt.Errorf("%w: %d/%d not in calendar", ErrNotAvailable, season, round)
	}
	s := sessions[round-1]

	var results []openf1Result
	resultsURL := fmt.Sprintf("%s/session_result?session_key=%d", m.base, s.SessionKey)
	if err := m.client.GetJSON(ctx, modernProvider, resultsURL, &results); err != nil {
		return model.RawEvent{}, err
	}
	if len(results) == 0 {
		m.client.Forget(ctx, resultsURL)
		return model.RawEvent{}, fmt.Errorf("%w: session %d has no results", ErrNotAvailable, s.SessionKey)
	}

	var drivers []openf1Driver
	driversURL := fmt.Sprintf("%s/drivers?session_key=%d", m.base, s.SessionKey)
	if err := m.client.GetJSON(ctx, modernProvider, driversURL, &drivers); err != nil {
		return model.RawEvent{}, err
	}
	if len(drivers) == 0 {
		m.client.Forget(ctx, driversURL)
	}
	names := make(map[int]string, len(drivers))
	for _, d := range drivers {
		name := strings.TrimSpace(d.FirstName + " " + d.LastName)
		if name == "" {
			name = strings.TrimSpace(d.FullName)
		}
		names[d.DriverNumber] = name
	}

	ev := model.RawEvent{
		Key:     model.EventKey{Season: season, Round: round},
		Name:    sessionName(s),
		Records: make([]model.RawRecord, 0, len(results)),
	}
	for _, r := range results {
		pos := ""
		if r.Position != nil {
			pos = strconv.Itoa(*r.Position)
		}
		ev.Records = append(ev.Records, model.RawRecord{Competitor: names[r.DriverNumber], Position: pos})
	}
	return ev, nil
}

// races returns the finished race sessions of season ordered by start time.
func (m *Modern) races(ctx context.Context, season int) ([]openf1Session, error) {
	var sessions []openf1Session
	url := fmt.Sprintf("%s/sessions?year=%d&session_name=Race", m.base, season)
	if err := m.client.GetJSON(ctx, modernProvider, url, &sessions); err != nil {
		return nil, err
	}

	now := m.now()
	type dated struct {
		s     openf1Session
		start time.Time
	}
	done := make([]dated, 0, len(sessions))
	for _, s := range sessions {
		if s.SessionName != "" && s.SessionName != "Race" {
			continue
		}
		start, err := time.Parse(time.RFC3339, s.DateStart)
		if err != nil {
			continue
		}
		end, err := time.Parse(time.RFC3339, s.DateEnd)
		if err != nil || !end.Before(now) {
			continue
		}
		done = append(done, dated{s: s, start: start})
	}
	slices.SortStableFunc(done, func(a, b dated) int { return a.start.Compare(b.start) })

	out := make([]openf1Session, len(done))
	for i, d := range done {
		out[i] = d.s
	}
	return out, nil
}

func sessionName(s openf1Session) string {
	switch {
	case s.CountryName != "" && s.Location != "":
		return s.CountryName + " - " + s.Location
	case s.Location != "":
		return s.Location
	default:
		return s.CountryName
	}
}
