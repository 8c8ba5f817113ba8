package rates

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/vantag/assistant-gateway/internal/metrics"
)

// gramsPerOz converts between the global troy-ounce spot and the Turkish
// gram-gold market.
const gramsPerOz = 31.1035

// Service refreshes the rates document: a parallel fan-out to all sources,
// a deterministic reconciliation, and a write to the store. A source being
// down degrades the document instead of failing the refresh.
type Service struct {
	fetcher *Fetcher
	store   *Store
	now     func() time.Time
}

func NewService(fetcher *Fetcher, store *Store) *Service {
	return &Service{
		fetcher: fetcher,
		store:   store,
		now:     time.Now,
	}
}

// Refresh fetches all sources, compiles the document and stores it.
func (s *Service) Refresh(ctx context.Context) (*Document, error) {
	var (
		wg       sync.WaitGroup
		frank    *frankfurterRates
		era      map[string]float64
		tcmb     *tcmbRates
		metals   float64
		truncgil float64
	)

	fetch := func(name string, run func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := run(); err != nil {
				slog.Warn("rates source failed", "source", name, "error", err)
			}
		}()
	}

	fetch("frankfurter", func() (err error) { frank, err = s.fetcher.Frankfurter(ctx); return })
	fetch("exchangerate-api", func() (err error) { era, err = s.fetcher.ExchangeRateAPI(ctx); return })
	fetch("tcmb", func() (err error) { tcmb, err = s.fetcher.TCMB(ctx); return })
	fetch("metals.live", func() (err error) { metals, err = s.fetcher.MetalsLive(ctx); return })
	fetch("truncgil", func() (err error) { truncgil, err = s.fetcher.TruncgilGold(ctx); return })
	wg.Wait()

	doc := compile(frank, era, tcmb, metals, truncgil, s.now())
	if len(doc.Rates) <= 1 {
		metrics.RatesRefreshTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("rates: every forex source failed")
	}

	if err := s.store.Save(ctx, doc); err != nil {
		metrics.RatesRefreshTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	metrics.RatesRefreshTotal.WithLabelValues("ok").Inc()
	slog.Info("rates refreshed",
		"rates_source", doc.Sources.Rates,
		"try_source", doc.Sources.TRY,
		"gold_source", doc.Sources.Gold)
	return doc, nil
}

// compile reconciles the raw source results into one document. ExchangeRate-API
// is the primary forex source with Frankfurter as fallback; TCMB overrides TRY
// since its Istanbul bulletin tracks the local market more closely; Truncgil
// wins the gram-gold price for the same reason.
func compile(frank *frankfurterRates, era map[string]float64, tcmb *tcmbRates, metalsUSDPerOz, truncgilTRYPerGram float64, now time.Time) *Document {
	rates := map[string]float64{"USD": 1.0}
	ratesSource := "none"

	switch {
	case era != nil:
		ratesSource = "exchangerate-api"
		for _, code := range []string{"EUR", "GBP", "TRY"} {
			if v := era[code]; v > 0 {
				rates[code] = v
			}
		}
		rates["SAR"] = sarPegged
		if v := era["SAR"]; v > 0 {
			rates["SAR"] = v
		}
	case frank != nil:
		ratesSource = "frankfurter"
		if frank.EUR > 0 {
			rates["EUR"] = frank.EUR
		}
		if frank.GBP > 0 {
			rates["GBP"] = frank.GBP
		}
		rates["SAR"] = frank.SAR
	}

	trySource := "exchangerate-api"
	if tcmb != nil && tcmb.USDTRY > 0 {
		rates["TRY"] = tcmb.USDTRY
		trySource = "tcmb"
	}

	cross := map[string]float64{}
	if eur := rates["EUR"]; eur > 0 {
		cross["EUR_USD"] = round4(1 / eur)
	}
	if gbp := rates["GBP"]; gbp > 0 {
		cross["GBP_USD"] = round4(1 / gbp)
	}
	if try := rates["TRY"]; try > 0 {
		cross["USD_TRY"] = try
	}
	if tcmb != nil && tcmb.EURTRY > 0 {
		cross["EUR_TRY"] = tcmb.EURTRY
	} else if rates["EUR"] > 0 && rates["TRY"] > 0 {
		cross["EUR_TRY"] = round4(rates["TRY"] / rates["EUR"])
	}
	if tcmb != nil && tcmb.GBPTRY > 0 {
		cross["GBP_TRY"] = tcmb.GBPTRY
	} else if rates["GBP"] > 0 && rates["TRY"] > 0 {
		cross["GBP_TRY"] = round4(rates["TRY"] / rates["GBP"])
	}

	var gold Gold
	if metalsUSDPerOz > 0 {
		gold.USDPerOz = metalsUSDPerOz
		gold.Source = "metals.live"
		if try := rates["TRY"]; try > 0 {
			gold.TRYPerGram = round2(metalsUSDPerOz * try / gramsPerOz)
		}
	}
	if truncgilTRYPerGram > 0 {
		gold.TRYPerGram = truncgilTRYPerGram
		if gold.USDPerOz == 0 {
			if try := rates["TRY"]; try > 0 {
				gold.USDPerOz = round2(truncgilTRYPerGram * gramsPerOz / try)
			}
			gold.Source = "truncgil"
		}
	}

	goldSource := gold.Source
	if goldSource == "" {
		goldSource = "none"
	}

	return &Document{
		Rates:      rates,
		CrossRates: cross,
		Gold:       gold,
		Sources: Sources{
			Rates: ratesSource,
			TRY:   trySource,
			Gold:  goldSource,
		},
		UpdatedAt: now,
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
