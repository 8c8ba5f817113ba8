package rates

import "time"

// Document is the compiled exchange-rates snapshot the mobile app reads.
// Rates are per 1 USD. Gold carries both the global spot and the Turkish
// gram price since the app shows both.
type Document struct {
	Rates      map[string]float64 `json:"rates"`
	CrossRates map[string]float64 `json:"crossRates"`
	Gold       Gold               `json:"gold"`
	Sources    Sources            `json:"sources"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

type Gold struct {
	USDPerOz   float64 `json:"usdPerOz,omitempty"`
	TRYPerGram float64 `json:"tryPerGram,omitempty"`
	Source     string  `json:"source,omitempty"`
}

// Sources records which upstream won each part of the document, for
// debugging stale or divergent prices in production.
type Sources struct {
	Rates string `json:"rates"`
	TRY   string `json:"try"`
	Gold  string `json:"gold"`
}
