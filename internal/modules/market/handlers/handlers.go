// Package handlers provides HTTP handlers for market data.
package handlers

import (
	"net/http"
	"sort"
	"time"

	"github.com/dalia-app/dalia/internal/api"
	"github.com/dalia-app/dalia/internal/clients/databursatil"
	"github.com/dalia-app/dalia/internal/modules/market"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler handles market data HTTP requests
type Handler struct {
	service *market.Service
	log     zerolog.Logger
}

// NewHandler creates a new market handler
func NewHandler(service *market.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "market").Logger(),
	}
}

// IssuerResponse is the API shape of a catalog entry
type IssuerResponse struct {
	Symbol            string `json:"symbol"`
	Ticker            string `json:"ticker"`
	Series            string `json:"series"`
	Name              string `json:"name"`
	ISIN              string `json:"isin,omitempty"`
	Exchange          string `json:"exchange,omitempty"`
	SecurityType      string `json:"security_type,omitempty"`
	Status            string `json:"status,omitempty"`
	SharesOutstanding *int64 `json:"shares_outstanding,omitempty"`
}

func toIssuerResponse(is market.Issuer) IssuerResponse {
	return IssuerResponse{
		Symbol:            is.Symbol(),
		Ticker:            is.Ticker,
		Series:            is.Series,
		Name:              is.Name,
		ISIN:              is.ISIN,
		Exchange:          is.Exchange,
		SecurityType:      is.SecurityType,
		Status:            is.Status,
		SharesOutstanding: is.SharesOutstanding,
	}
}

// QuoteResponse is the API shape of a quote
type QuoteResponse struct {
	Ticker   string   `json:"ticker"`
	Exchange string   `json:"exchange"`
	Last     *float64 `json:"last"`
	Average  *float64 `json:"average"`
	Volume   *float64 `json:"volume"`
	Date     string   `json:"date,omitempty"`
}

func toQuoteResponse(q databursatil.Quote) QuoteResponse {
	resp := QuoteResponse{Ticker: q.Ticker, Exchange: q.Exchange, Date: q.Date}
	if q.Last != nil {
		v := q.Last.InexactFloat64()
		resp.Last = &v
	}
	if q.Average != nil {
		v := q.Average.InexactFloat64()
		resp.Average = &v
	}
	if q.Volume != nil {
		v := q.Volume.InexactFloat64()
		resp.Volume = &v
	}
	return resp
}

// MoverResponse is one entry of a top list
type MoverResponse struct {
	Ticker        string   `json:"ticker"`
	Last          float64  `json:"last"`
	ChangePercent *float64 `json:"change_percent,omitempty"`
	Amount        *float64 `json:"amount,omitempty"`
	Trades        *int64   `json:"trades,omitempty"`
}

// TopResponse groups the top lists of a session
type TopResponse struct {
	Gainers []MoverResponse `json:"gainers"`
	Losers  []MoverResponse `json:"losers"`
	Amount  []MoverResponse `json:"amount"`
	Volume  []MoverResponse `json:"volume"`
	Trades  []MoverResponse `json:"trades"`
}

func changes(list []databursatil.TopChange) []MoverResponse {
	out := make([]MoverResponse, 0, len(list))
	for _, m := range list {
		pct := m.ChangePercent
		out = append(out, MoverResponse{Ticker: m.Ticker, Last: m.Last, ChangePercent: &pct})
	}
	return out
}

func amounts(list []databursatil.TopAmount) []MoverResponse {
	out := make([]MoverResponse, 0, len(list))
	for _, m := range list {
		amt := m.Amount
		out = append(out, MoverResponse{Ticker: m.Ticker, Last: m.Last, Amount: &amt})
	}
	return out
}

// IndexResponse is the API shape of an index quote
type IndexResponse struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Last          float64 `json:"last"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Volume        float64 `json:"volume"`
	YTDPercent    float64 `json:"ytd_percent"`
	Date          string  `json:"date,omitempty"`
}

// FxResponse is the API shape of a currency quote
type FxResponse struct {
	Pair          string  `json:"pair"`
	Last          float64 `json:"last"`
	Low           float64 `json:"low"`
	ChangePercent float64 `json:"change_percent"`
}

// RateResponse is the API shape of a reference rate
type RateResponse struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Date  string  `json:"date"`
}

// TapeItemResponse is one entry of the ticker tape
type TapeItemResponse struct {
	Symbol        string  `json:"symbol"`
	Label         string  `json:"label"`
	Last          float64 `json:"last"`
	ChangePercent float64 `json:"change_percent"`
}

// StatementResponse is the API shape of a financial statement
type StatementResponse struct {
	Ticker    string             `json:"ticker"`
	Period    string             `json:"period"`
	Kind      string             `json:"kind"`
	Concepts  map[string]float64 `json:"concepts"`
	FetchedAt string             `json:"fetched_at"`
	Cached    bool               `json:"cached"`
}

// AssetResponse is the API shape of asset details
type AssetResponse struct {
	Ticker     string          `json:"ticker"`
	Issuer     *IssuerResponse `json:"issuer"`
	Quote      *QuoteResponse  `json:"quote"`
	Samples    int             `json:"samples"`
	SMA20      *float64        `json:"sma_20"`
	RSI14      *float64        `json:"rsi_14"`
	Volatility *float64        `json:"volatility"`
}

// HandleSearchIssuers handles GET /api/market/issuers?q=
func (h *Handler) HandleSearchIssuers(w http.ResponseWriter, r *http.Request) {
	issuers, err := h.service.SearchIssuers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	resp := make([]IssuerResponse, 0, len(issuers))
	for _, is := range issuers {
		resp = append(resp, toIssuerResponse(is))
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

// HandleSyncIssuers handles POST /api/market/issuers/sync
func (h *Handler) HandleSyncIssuers(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.SyncIssuers(r.Context())
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]int{
		"fetched":            result.Fetched,
		"upserted":           result.Upserted,
		"duplicates_removed": result.DuplicatesRemoved,
	})
}

// HandleGetQuote handles GET /api/market/quotes/{ticker}
func (h *Handler) HandleGetQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.Quote(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, toQuoteResponse(q))
}

type intradaySyncBody struct {
	Tickers []string `json:"tickers"`
	Days    int      `json:"days"`
}

// HandleSyncIntraday handles POST /api/market/intraday/sync
func (h *Handler) HandleSyncIntraday(w http.ResponseWriter, r *http.Request) {
	var body intradaySyncBody
	if !api.DecodeJSON(w, r, &body) {
		return
	}

	stored, err := h.service.SyncIntraday(r.Context(), body.Tickers, body.Days)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]int{"stored": stored})
}

// HandleGetTop handles GET /api/market/top
func (h *Handler) HandleGetTop(w http.ResponseWriter, r *http.Request) {
	top, err := h.service.Top(r.Context())
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	trades := make([]MoverResponse, 0, len(top.Trades))
	for _, m := range top.Trades {
		n := m.Trades
		trades = append(trades, MoverResponse{Ticker: m.Ticker, Last: m.Last, Trades: &n})
	}
	api.WriteJSON(w, http.StatusOK, TopResponse{
		Gainers: changes(top.Gainers),
		Losers:  changes(top.Losers),
		Amount:  amounts(top.Amount),
		Volume:  amounts(top.Volume),
		Trades:  trades,
	})
}

// HandleGetIndices handles GET /api/market/indices
func (h *Handler) HandleGetIndices(w http.ResponseWriter, r *http.Request) {
	indices, err := h.service.Indices(r.Context())
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	resp := make([]IndexResponse, 0, len(indices))
	for _, symbol := range sortedKeys(indices) {
		q := indices[symbol]
		resp = append(resp, IndexResponse{
			Symbol:        symbol,
			Name:          q.Name,
			Last:          q.Last,
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
			Open:          q.Open,
			High:          q.High,
			Low:           q.Low,
			Volume:        q.Volume,
			YTDPercent:    q.YTDPercent,
			Date:          q.Date,
		})
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

// HandleGetForex handles GET /api/market/forex
func (h *Handler) HandleGetForex(w http.ResponseWriter, r *http.Request) {
	fx, err := h.service.Forex(r.Context())
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	pairs := make([]FxResponse, 0, len(fx.Pairs))
	for _, pair := range sortedKeys(fx.Pairs) {
		q := fx.Pairs[pair]
		pairs = append(pairs, FxResponse{Pair: pair, Last: q.Last, Low: q.Low, ChangePercent: q.ChangePercent})
	}
	api.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp": fx.Timestamp,
		"pairs":     pairs,
	})
}

// HandleGetRates handles GET /api/market/rates
func (h *Handler) HandleGetRates(w http.ResponseWriter, r *http.Request) {
	rates, err := h.service.Rates(r.Context())
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	resp := make([]RateResponse, 0, len(rates))
	for _, name := range sortedKeys(rates) {
		resp = append(resp, RateResponse{Name: name, Value: rates[name].Value, Date: rates[name].Date})
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

// HandleGetTape handles GET /api/market/tape
func (h *Handler) HandleGetTape(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.Tape(r.Context())
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	resp := make([]TapeItemResponse, 0, len(items))
	for _, it := range items {
		resp = append(resp, TapeItemResponse(it))
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

// HandleGetStatement handles GET /api/market/statements/{ticker}/{kind}?period=
func (h *Handler) HandleGetStatement(w http.ResponseWriter, r *http.Request) {
	kind := databursatil.StatementKind(chi.URLParam(r, "kind"))
	st, err := h.service.Statement(r.Context(), chi.URLParam(r, "ticker"), r.URL.Query().Get("period"), kind)
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	concepts := make(map[string]float64, len(st.Concepts))
	for k, v := range st.Concepts {
		concepts[k] = v.InexactFloat64()
	}
	api.WriteJSON(w, http.StatusOK, StatementResponse{
		Ticker:    st.Ticker,
		Period:    st.Period,
		Kind:      string(st.Kind),
		Concepts:  concepts,
		FetchedAt: st.FetchedAt.Format(time.RFC3339),
		Cached:    st.Cached,
	})
}

// HandleGetAsset handles GET /api/market/assets/{ticker}
func (h *Handler) HandleGetAsset(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.AssetDetails(r.Context(), chi.URLParam(r, "ticker"))
	if err != nil {
		api.WriteDomainError(w, h.log, err)
		return
	}

	resp := AssetResponse{
		Ticker:     details.Ticker,
		Samples:    details.Indicators.Samples,
		SMA20:      details.Indicators.SMA20,
		RSI14:      details.Indicators.RSI14,
		Volatility: details.Indicators.Volatility,
	}
	if details.Issuer != nil {
		is := toIssuerResponse(*details.Issuer)
		resp.Issuer = &is
	}
	if details.Quote != nil {
		q := toQuoteResponse(*details.Quote)
		resp.Quote = &q
	}
	api.WriteJSON(w, http.StatusOK, resp)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
