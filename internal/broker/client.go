package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"TradePilot/internal/model"
)

// Transaction IDs for the brokerage REST endpoints.
const (
	trCurrentPrice  = "HHDFS00000300"
	trChartBars     = "HHDFS76950200"
	trCashKRW       = "TTTC8908R"
	trPositions     = "JTTT3012R"
	trPresentBal    = "CTRP6504R"
	trOrderableCash = "TTTT3012R"
	trBuyOrder      = "TTTT1002U"
	trSellOrder     = "TTTT1006U"
)

var eastern *time.Location

func init() {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic("broker: load America/New_York: " + err.Error())
	}
	eastern = loc
}

// Client talks to the brokerage REST API. All calls are synchronous
// with a short timeout and are authenticated through the Session; no
// call retries internally; the next cycle is the retry.
type Client struct {
	baseURL     string
	appKey      string
	appSecret   string
	accountNo   string
	productCode string
	quoteExch   string // e.g. "NAS", quotation endpoints
	orderExch   string // e.g. "NASD", trading endpoints
	session     *Session
	client      *http.Client
}

// ClientConfig carries the account identity for the brokerage client.
type ClientConfig struct {
	BaseURL            string
	AppKey             string
	AppSecret          string
	AccountNo          string
	AccountProductCode string
	QuoteExchange      string
	OrderExchange      string
	Proxy              string
}

// NewClient creates the brokerage client and its session, with optional
// proxy support.
func NewClient(cfg ClientConfig, tokenFile string) *Client {
	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	httpClient := &http.Client{
		Timeout:   5 * time.Second,
		Transport: transport,
	}
	return &Client{
		baseURL:     cfg.BaseURL,
		appKey:      cfg.AppKey,
		appSecret:   cfg.AppSecret,
		accountNo:   cfg.AccountNo,
		productCode: cfg.AccountProductCode,
		quoteExch:   cfg.QuoteExchange,
		orderExch:   cfg.OrderExchange,
		session:     NewSession(cfg.BaseURL, cfg.AppKey, cfg.AppSecret, tokenFile, httpClient),
		client:      httpClient,
	}
}

// Session exposes the credential manager, mainly for tests.
func (c *Client) Session() *Session { return c.session }

func (c *Client) authHeaders(ctx context.Context, trID string) (http.Header, error) {
	token, err := c.session.Token(ctx)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("authorization", "Bearer "+token)
	h.Set("appKey", c.appKey)
	h.Set("appSecret", c.appSecret)
	h.Set("tr_id", trID)
	return h, nil
}

func (c *Client) get(ctx context.Context, path, trID string, params map[string]string, out interface{}) error {
	headers, err := c.authHeaders(ctx, trID)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	q := req.URL.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	req.URL.RawQuery = q.Encode()
	req.Header = headers
	req.Header.Set("custtype", "P")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request %s: status %d, body: %s", path, resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// wrapMarketData classifies a fetch failure: auth failures pass
// through unchanged (they abort the cycle), everything else becomes a
// MarketDataError (degrades, never aborts).
func wrapMarketData(err error, symbol, op string) error {
	var ae *AuthError
	if errors.As(err, &ae) {
		return err
	}
	return &MarketDataError{Symbol: symbol, Op: op, Err: err}
}

// f64 parses the brokerage's numeric strings, treating empty or
// malformed values as 0: partial rows degrade, they do not abort.
func f64(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// CurrentPrice fetches the last trade price for a symbol.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, error) {
	var resp struct {
		Output struct {
			Last string `json:"last"`
		} `json:"output"`
	}
	err := c.get(ctx, "/uapi/overseas-price/v1/quotations/price", trCurrentPrice, map[string]string{
		"AUTH": "", "EXCD": c.quoteExch, "SYMB": symbol,
	}, &resp)
	if err != nil {
		return 0, wrapMarketData(err, symbol, "current price")
	}
	return f64(resp.Output.Last), nil
}

// kisBar mirrors one row of the minute-chart response. The API has
// shipped the date and time under two field names each; the fallback
// order (tymd then xymd, xhms then khms) is fixed here once, by
// intention, rather than probed per call.
type kisBar struct {
	Tymd string `json:"tymd"`
	Xymd string `json:"xymd"`
	Xhms string `json:"xhms"`
	Khms string `json:"khms"`
	Open string `json:"open"`
	High string `json:"high"`
	Low  string `json:"low"`
	Last string `json:"last"`
	Evol string `json:"evol"`
}

// ChartBars fetches up to `count` one-minute bars for a symbol, newest
// first, as delivered by the brokerage. Rows without a parseable
// timestamp are dropped.
func (c *Client) ChartBars(ctx context.Context, symbol string, count int) ([]model.PriceBar, error) {
	var resp struct {
		Output2 []kisBar `json:"output2"`
	}
	err := c.get(ctx, "/uapi/overseas-price/v1/quotations/inquire-time-itemchartprice", trChartBars, map[string]string{
		"AUTH": "", "EXCD": c.quoteExch, "SYMB": symbol,
		"TIMETYPE": "1", "CNT": strconv.Itoa(count), "INTERVAL": "1",
	}, &resp)
	if err != nil {
		return nil, wrapMarketData(err, symbol, "chart bars")
	}

	bars := make([]model.PriceBar, 0, len(resp.Output2))
	for _, row := range resp.Output2 {
		date := row.Tymd
		if date == "" {
			date = row.Xymd
		}
		hms := row.Xhms
		if hms == "" {
			hms = row.Khms
		}
		if date == "" || hms == "" {
			continue
		}
		ts, err := time.ParseInLocation("20060102150405", date+hms, eastern)
		if err != nil {
			continue
		}
		bars = append(bars, model.PriceBar{
			Time:   ts,
			Open:   f64(row.Open),
			High:   f64(row.High),
			Low:    f64(row.Low),
			Last:   f64(row.Last),
			Volume: int64(f64(row.Evol)),
		})
	}
	return bars, nil
}

// CashBalanceKRW fetches the orderable cash in the account currency.
func (c *Client) CashBalanceKRW(ctx context.Context) (float64, error) {
	var resp struct {
		Output struct {
			OrdPsblCash string `json:"ord_psbl_cash"`
		} `json:"output"`
	}
	err := c.get(ctx, "/uapi/domestic-stock/v1/trading/inquire-psbl-order", trCashKRW, map[string]string{
		"CANO":                 c.accountNo,
		"ACNT_PRDT_CD":         c.productCode,
		"PDNO":                 "005930",
		"ORD_UNPR":             "0",
		"ORD_DVSN":             "01",
		"CMA_EVLU_AMT_ICLD_YN": "Y",
		"OVRS_ICLD_YN":         "Y",
	}, &resp)
	if err != nil {
		return 0, wrapMarketData(err, "", "cash balance")
	}
	return f64(resp.Output.OrdPsblCash), nil
}

// ExchangeRate fetches the first published KRW/USD rate.
func (c *Client) ExchangeRate(ctx context.Context) (float64, error) {
	var resp struct {
		Output2 []struct {
			FrstBltnExrt string `json:"frst_bltn_exrt"`
		} `json:"output2"`
	}
	err := c.get(ctx, "/uapi/overseas-stock/v1/trading/inquire-present-balance", trPresentBal, map[string]string{
		"CANO":              c.accountNo,
		"ACNT_PRDT_CD":      c.productCode,
		"OVRS_EXCG_CD":      c.orderExch,
		"WCRC_FRCR_DVSN_CD": "01",
		"NATN_CD":           "840",
		"TR_MKET_CD":        "01",
		"INQR_DVSN_CD":      "00",
	}, &resp)
	if err != nil {
		return 0, wrapMarketData(err, "", "exchange rate")
	}
	if len(resp.Output2) == 0 {
		return 0, &MarketDataError{Op: "exchange rate", Err: fmt.Errorf("empty output2")}
	}
	return f64(resp.Output2[0].FrstBltnExrt), nil
}

// Positions fetches open overseas positions with a non-zero quantity.
func (c *Client) Positions(ctx context.Context) (model.Holdings, error) {
	var resp struct {
		Output1 []struct {
			Symbol   string `json:"ovrs_pdno"`
			Quantity string `json:"ovrs_cblc_qty"`
		} `json:"output1"`
	}
	err := c.get(ctx, "/uapi/overseas-stock/v1/trading/inquire-balance", trPositions, map[string]string{
		"CANO":           c.accountNo,
		"ACNT_PRDT_CD":   c.productCode,
		"OVRS_EXCG_CD":   c.orderExch,
		"TR_CRCY_CD":     "USD",
		"CTX_AREA_FK200": "",
		"CTX_AREA_NK200": "",
	}, &resp)
	if err != nil {
		return nil, wrapMarketData(err, "", "positions")
	}
	holdings := model.Holdings{}
	for _, row := range resp.Output1 {
		if qty := int(f64(row.Quantity)); qty > 0 {
			holdings[row.Symbol] = qty
		}
	}
	return holdings, nil
}

// cashRow mirrors one balance row. The API publishes the USD orderable
// amount under different field names depending on account type; the
// fallback order below is fixed and intentional, first match wins.
type cashRow struct {
	DrwgPsblAmt1 string `json:"frcr_drwg_psbl_amt_1"`
	DnclAmt2     string `json:"frcr_dncl_amt_2"`
	UsePsblAmt   string `json:"frcr_use_psbl_amt"`
	OvrsAvlbOrd  string `json:"ovrs_avlb_ord_amt"`
	FrcrPsblOrd  string `json:"frcr_psbl_ord_amt"`
	PsblOrdAmt   string `json:"psbl_ord_amt"`
}

func (r cashRow) amount() float64 {
	for _, s := range []string{r.DrwgPsblAmt1, r.DnclAmt2, r.UsePsblAmt, r.OvrsAvlbOrd, r.FrcrPsblOrd, r.PsblOrdAmt} {
		if v := f64(s); v > 0 {
			return v
		}
	}
	return 0
}

// OrderableCashUSD fetches the USD amount available for new orders.
// Rows from output2 and output3 are preferred, output1 is the fallback.
func (c *Client) OrderableCashUSD(ctx context.Context) (float64, error) {
	var resp struct {
		Output1 []cashRow `json:"output1"`
		Output2 []cashRow `json:"output2"`
		Output3 []cashRow `json:"output3"`
	}
	err := c.get(ctx, "/uapi/overseas-stock/v1/trading/inquire-balance", trOrderableCash, map[string]string{
		"CANO":           c.accountNo,
		"ACNT_PRDT_CD":   c.productCode,
		"OVRS_EXCG_CD":   c.orderExch,
		"TR_CRCY_CD":     "",
		"CTX_AREA_FK200": "",
		"CTX_AREA_NK200": "",
	}, &resp)
	if err != nil {
		return 0, wrapMarketData(err, "", "orderable cash")
	}
	rows := append(append([]cashRow{}, resp.Output2...), resp.Output3...)
	if len(rows) == 0 {
		rows = resp.Output1
	}
	for _, row := range rows {
		if v := row.amount(); v > 0 {
			return v, nil
		}
	}
	return 0, nil
}

// hashkey signs an order body; the brokerage requires the digest header
// on every order submission.
func (c *Client) hashkey(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uapi/hashkey", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build hashkey request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("appKey", c.appKey)
	req.Header.Set("appSecret", c.appSecret)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request hashkey: %w", err)
	}
	defer resp.Body.Close()
	var out struct {
		Hash string `json:"HASH"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode hashkey: %w", err)
	}
	return out.Hash, nil
}

// Buy submits a whole-share limit buy order.
func (c *Client) Buy(ctx context.Context, symbol string, qty int, price float64) (model.OrderResult, error) {
	return c.submitOrder(ctx, trBuyOrder, symbol, qty, price)
}

// Sell submits a whole-share limit sell order.
func (c *Client) Sell(ctx context.Context, symbol string, qty int, price float64) (model.OrderResult, error) {
	return c.submitOrder(ctx, trSellOrder, symbol, qty, price)
}

func (c *Client) submitOrder(ctx context.Context, trID, symbol string, qty int, price float64) (model.OrderResult, error) {
	body, err := json.Marshal(map[string]string{
		"CANO":            c.accountNo,
		"ACNT_PRDT_CD":    c.productCode,
		"OVRS_EXCG_CD":    c.orderExch,
		"PDNO":            symbol,
		"ORD_DVSN":        "00", // limit order, whole shares
		"ORD_QTY":         strconv.Itoa(qty),
		"OVRS_ORD_UNPR":   fmt.Sprintf("%.2f", price),
		"ORD_SVR_DVSN_CD": "0",
	})
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("marshal order: %w", err)
	}

	headers, err := c.authHeaders(ctx, trID)
	if err != nil {
		return model.OrderResult{}, err
	}
	hash, err := c.hashkey(ctx, body)
	if err != nil {
		return model.OrderResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uapi/overseas-stock/v1/trading/order", bytes.NewReader(body))
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("build order request: %w", err)
	}
	req.Header = headers
	req.Header.Set("custtype", "P")
	req.Header.Set("hashkey", hash)

	resp, err := c.client.Do(req)
	if err != nil {
		return model.OrderResult{}, fmt.Errorf("submit order: %w", err)
	}
	defer resp.Body.Close()

	var out struct {
		RtCd string `json:"rt_cd"`
		Msg1 string `json:"msg1"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return model.OrderResult{}, fmt.Errorf("decode order response: %w", err)
	}
	if out.RtCd != "0" {
		msg := out.Msg1
		if msg == "" {
			msg = "unknown error"
		}
		return model.OrderResult{Accepted: false, Message: msg}, &OrderError{Symbol: symbol, Message: msg}
	}
	return model.OrderResult{Accepted: true, Message: out.Msg1}, nil
}
