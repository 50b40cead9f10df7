package exchange

import (
	"context"
	"strconv"
	"time"

	"racebot/internal/domain"
	"racebot/internal/infra"
)

// catalogueRequest is the wire filter for the market catalogue listing.
type catalogueRequest struct {
	Filter struct {
		EventTypeIDs    []string `json:"eventTypeIds"`
		MarketTypes     []string `json:"marketTypeCodes"`
		MarketCountries []string `json:"marketCountries"`
		StartTime       struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"marketStartTime"`
	} `json:"filter"`
	MaxResults int    `json:"maxResults"`
	Sort       string `json:"sort"`
}

// catalogueResponse mirrors the fields this core consumes.
type catalogueResponse []struct {
	MarketID        string  `json:"marketId"`
	MarketName      string  `json:"marketName"`
	MarketStartTime string  `json:"marketStartTime"`
	TotalMatched    float64 `json:"totalMatched"`
	MarketType      string  `json:"marketType"`
	Event           struct {
		Name        string `json:"name"`
		CountryCode string `json:"countryCode"`
		Venue       string `json:"venue"`
	} `json:"event"`
	EventType struct {
		Name string `json:"name"`
	} `json:"eventType"`
	Runners []struct {
		SelectionID int64  `json:"selectionId"`
		RunnerName  string `json:"runnerName"`
	} `json:"runners"`
}

// Catalogue fetches current markets from the exchange.
type Catalogue struct {
	client *Client
	cfg    *infra.Config
}

// NewCatalogue creates a catalogue source.
func NewCatalogue(client *Client, cfg *infra.Config) *Catalogue {
	return &Catalogue{client: client, cfg: cfg}
}

// FetchCatalogue lists currently tradable markets, one request per
// configured market type, merged into a single snapshot.
func (c *Catalogue) FetchCatalogue(ctx context.Context) ([]domain.CatalogueEntry, error) {
	now := time.Now().UTC()
	from := now.Add(-time.Duration(c.cfg.Exchange.KeepAfterStartMin) * time.Minute)
	to := now.Add(time.Duration(c.cfg.Exchange.HoursToFetch) * time.Hour)

	var entries []domain.CatalogueEntry
	for _, marketType := range c.cfg.Exchange.MarketTypes {
		req := catalogueRequest{MaxResults: c.cfg.Exchange.MaxMarkets, Sort: "FIRST_TO_START"}
		req.Filter.EventTypeIDs = c.cfg.Exchange.EventTypeIDs
		req.Filter.MarketTypes = []string{marketType}
		req.Filter.MarketCountries = c.cfg.Exchange.Countries
		req.Filter.StartTime.From = from.Format(time.RFC3339)
		req.Filter.StartTime.To = to.Format(time.RFC3339)

		var resp catalogueResponse
		if err := c.client.doRequest(ctx, "/listMarketCatalogue", req, &resp); err != nil {
			return nil, err
		}

		for _, m := range resp {
			start, err := time.Parse(time.RFC3339, m.MarketStartTime)
			if err != nil {
				// Entry without a usable start time; keep it but let the
				// engine defer until the next refresh fixes it.
				start = time.Time{}
			}
			entry := domain.CatalogueEntry{
				MarketID:  m.MarketID,
				StartTime: start,
				Meta: domain.MarketMeta{
					MarketName:   m.MarketName,
					MarketType:   m.MarketType,
					EventType:    m.EventType.Name,
					EventTitle:   m.EventType.Name + " " + m.MarketName + " " + m.Event.Name + " " + m.Event.CountryCode,
					Country:      m.Event.CountryCode,
					Venue:        m.Event.Venue,
					TotalMatched: m.TotalMatched,
				},
			}
			for _, r := range m.Runners {
				entry.Runners = append(entry.Runners, domain.RunnerDesc{
					SelectionID: strconv.FormatInt(r.SelectionID, 10),
					Name:        r.RunnerName,
				})
			}
			entries = append(entries, entry)
		}
	}
	return entries, nil
}
