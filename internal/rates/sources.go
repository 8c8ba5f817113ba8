package rates

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Upstream endpoints. Forex sources get a 10s budget, the gold tickers 5s;
// a slow source is dropped rather than holding up the whole refresh.
const (
	frankfurterURL  = "https://api.frankfurter.app/latest?from=USD&to=EUR,GBP,SAR"
	exchangeRateURL = "https://api.exchangerate-api.com/v4/latest/USD"
	tcmbURL         = "https://www.tcmb.gov.tr/kurlar/today.xml"
	metalsLiveURL   = "https://api.metals.live/v1/spot/gold"
	truncgilURL     = "https://finans.truncgil.com/v4/today.json"

	forexTimeout = 10 * time.Second
	goldTimeout  = 5 * time.Second
)

// sarPegged is the SAR/USD peg, used when no source reports a live rate.
const sarPegged = 3.75

// Fetcher pulls raw quotes from the individual upstream sources. Each fetch
// returns an error instead of a partial result; the service layer decides
// what the document looks like when sources are down.
type Fetcher struct {
	frankfurterURL  string
	exchangeRateURL string
	tcmbURL         string
	metalsLiveURL   string
	truncgilURL     string
	forexClient     *http.Client
	goldClient      *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		frankfurterURL:  frankfurterURL,
		exchangeRateURL: exchangeRateURL,
		tcmbURL:         tcmbURL,
		metalsLiveURL:   metalsLiveURL,
		truncgilURL:     truncgilURL,
		forexClient:     &http.Client{Timeout: forexTimeout},
		goldClient:      &http.Client{Timeout: goldTimeout},
	}
}

// frankfurterRates is the fallback forex source: EUR, GBP and SAR per USD.
type frankfurterRates struct {
	EUR float64
	GBP float64
	SAR float64
}

func (f *Fetcher) Frankfurter(ctx context.Context) (*frankfurterRates, error) {
	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := f.getJSON(ctx, f.forexClient, f.frankfurterURL, &payload); err != nil {
		return nil, fmt.Errorf("frankfurter: %w", err)
	}

	out := &frankfurterRates{
		EUR: payload.Rates["EUR"],
		GBP: payload.Rates["GBP"],
		SAR: payload.Rates["SAR"],
	}
	if out.SAR == 0 {
		out.SAR = sarPegged
	}
	return out, nil
}

// ExchangeRateAPI is the primary forex source; it quotes every currency the
// app cares about, TRY included.
func (f *Fetcher) ExchangeRateAPI(ctx context.Context) (map[string]float64, error) {
	var payload struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := f.getJSON(ctx, f.forexClient, f.exchangeRateURL, &payload); err != nil {
		return nil, fmt.Errorf("exchangerate-api: %w", err)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("exchangerate-api: empty rates payload")
	}
	return payload.Rates, nil
}

// tcmbRates are TRY selling rates from the Turkish central bank's daily
// bulletin. Any field may be zero when the bulletin omits a currency.
type tcmbRates struct {
	USDTRY float64
	EURTRY float64
	GBPTRY float64
}

type tcmbBulletin struct {
	XMLName    xml.Name `xml:"Tarih_Date"`
	Currencies []struct {
		Code         string `xml:"CurrencyCode,attr"`
		ForexSelling string `xml:"ForexSelling"`
	} `xml:"Currency"`
}

// TCMB fetches today's bulletin. The bulletin is XML with fixed-point
// decimal strings.
func (f *Fetcher) TCMB(ctx context.Context) (*tcmbRates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.tcmbURL, nil)
	if err != nil {
		return nil, fmt.Errorf("tcmb: %w", err)
	}
	req.Header.Set("Accept", "application/xml")
	// TCMB rejects requests without a browser-like user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.forexClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tcmb: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tcmb: status %d", resp.StatusCode)
	}

	var bulletin tcmbBulletin
	if err := xml.NewDecoder(resp.Body).Decode(&bulletin); err != nil {
		return nil, fmt.Errorf("tcmb: decode bulletin: %w", err)
	}

	var out tcmbRates
	for _, c := range bulletin.Currencies {
		selling, err := strconv.ParseFloat(strings.TrimSpace(c.ForexSelling), 64)
		if err != nil {
			continue
		}
		switch c.Code {
		case "USD":
			out.USDTRY = selling
		case "EUR":
			out.EURTRY = selling
		case "GBP":
			out.GBPTRY = selling
		}
	}
	if out.USDTRY == 0 && out.EURTRY == 0 && out.GBPTRY == 0 {
		return nil, fmt.Errorf("tcmb: no usable rates in bulletin")
	}
	return &out, nil
}

// MetalsLive fetches the global gold spot in USD per troy ounce.
func (f *Fetcher) MetalsLive(ctx context.Context) (float64, error) {
	var payload []struct {
		Price float64 `json:"price"`
	}
	if err := f.getJSON(ctx, f.goldClient, f.metalsLiveURL, &payload); err != nil {
		return 0, fmt.Errorf("metals.live: %w", err)
	}
	if len(payload) == 0 || payload[0].Price <= 0 {
		return 0, fmt.Errorf("metals.live: no spot price in payload")
	}
	return payload[0].Price, nil
}

// TruncgilGold fetches the Turkish gram-gold selling price in TRY. Truncgil
// quotes prices inconsistently as numbers or strings, so the field is
// coerced.
func (f *Fetcher) TruncgilGold(ctx context.Context) (float64, error) {
	var payload struct {
		GRA struct {
			Selling flexFloat `json:"Selling"`
		} `json:"GRA"`
	}
	if err := f.getJSON(ctx, f.goldClient, f.truncgilURL, &payload); err != nil {
		return 0, fmt.Errorf("truncgil: %w", err)
	}
	if payload.GRA.Selling <= 0 {
		return 0, fmt.Errorf("truncgil: no gram gold price in payload")
	}
	return float64(payload.GRA.Selling), nil
}

func (f *Fetcher) getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}
