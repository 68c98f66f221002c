package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/gridelo/internal/domain/model"
)

// DefaultLegacyBaseURL serves the Ergast wire format.
const DefaultLegacyBaseURL = "https://api.jolpi.ca/ergast/f1"

const legacyProvider = "legacy"

// ergastResponse covers both the season calendar and the race results payloads.
type ergastResponse struct {
	MRData struct {
		RaceTable struct {
			Races []ergastRace `json:"Races"`
		} `json:"RaceTable"`
	} `json:"MRData"`
}

type ergastRace struct {
	Season   string         `json:"season"`
	Round    string         `json:"round"`
	RaceName string         `json:"raceName"`
	Date     string         `json:"date"`
	Results  []ergastResult `json:"Results"`
}

type ergastResult struct {
	Position     string `json:"position"`
	PositionText string `json:"positionText"`
	Driver       struct {
		DriverID   string `json:"driverId"`
		GivenName  string `json:"givenName"`
		FamilyName string `json:"familyName"`
	} `json:"Driver"`
}

// Legacy reads historical seasons from an Ergast-format API.
type Legacy struct {
	client *Client
	base   string
}

// NewLegacy creates a Legacy provider. An empty base selects DefaultLegacyBaseURL.
func NewLegacy(client *Client, base string) *Legacy {
	if base == "" {
		base = DefaultLegacyBaseURL
	}
	return &Legacy{client: client, base: strings.TrimRight(base, "/")}
}

// Name identifies the provider in logs and metrics.
func (l *Legacy) Name() string { return legacyProvider }

// EventCount returns the number of races on the season calendar.
func (l *Legacy) EventCount(ctx context.Context, season int) (int, error) {
	var resp ergastResponse
	url := fmt.Sprintf("%s/%d.json?limit=100", l.base, season)
	if err := l.client.GetJSON(ctx, legacyProvider, url, &resp); err != nil {
		return 0, err
	}
	n := len(resp.MRData.RaceTable.Races)
	if n == 0 {
		l.client.Forget(ctx, url)
	}
	return n, nil
}

// EventResults returns the classification of one race.
func (l *Legacy) EventResults(ctx context.Context, season, round int) (model.RawEvent, error) {
	var resp ergastResponse
	url := fmt.Sprintf("%s/%d/%d/results.json?limit=100", l.base, season, round)
	if err := l.client.GetJSON(ctx, legacyProvider, url, &resp); err != nil {
		return model.RawEvent{}, err
	}
	races := resp.MRData.RaceTable.Races
	if len(races) == 0 || len(races[0].Results) == 0 {
		l.client.Forget(ctx, url)
		return model.RawEvent{}, fmt.Errorf("%w: %d/%d has no results", ErrNotAvailable, season, round)
	}

	race := races[0]
	ev := model.RawEvent{
		Key:     model.EventKey{Season: season, Round: round},
		Name:    race.RaceName,
		Records: make([]model.RawRecord, 0, len(race.Results)),
	}
	for _, r := range race.Results {
		ev.Records = append(ev.Records, model.RawRecord{
			Competitor: strings.TrimSpace(r.Driver.GivenName + " " + r.Driver.FamilyName),
			Position:   r.Position,
		})
	}
	return ev, nil
}
