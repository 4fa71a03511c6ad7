package binance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"trailbot/internal/gateway/exchange"
	"trailbot/internal/logger"
	"trailbot/internal/market"
	"trailbot/internal/scheduler"
	"trailbot/internal/sizing"
)

const (
	maxHistoryLimit = 1500
	clientIDPrefix  = "tb"
)

// Session 基于 go-binance SDK 实现 exchange.Session（USDT-M 永续）。
type Session struct {
	cfg        Config
	client     *futures.Client
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ exchange.Session = (*Session)(nil)

// NewSession builds a client without touching the network.
func NewSession(cfg Config) (*Session, error) {
	final := cfg.withDefaults()
	client := futures.NewClient(final.APIKey, final.APISecret)
	client.BaseURL = final.RESTBaseURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyURL != "" {
		proxyURL, err := url.Parse(final.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	burst := int(final.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return &Session{
		cfg:        final,
		client:     client,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(final.RequestsPerSecond), burst),
	}, nil
}

// Dial builds a session, checks connectivity and syncs the clock offset.
func Dial(ctx context.Context, cfg Config) (*Session, error) {
	s, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if err := s.client.NewPingService().Do(ctx); err != nil {
		s.Close()
		return nil, classify("ping", err)
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	offset, err := s.client.NewSetServerTimeService().Do(ctx)
	if err != nil {
		logger.Warnf("[binance] server time sync failed, using local clock: %v", err)
	} else {
		logger.Debugf("[binance] server time offset=%dms", offset)
	}
	return s, nil
}

// Dialer adapts Dial to exchange.Dialer.
func Dialer(cfg Config) exchange.Dialer {
	return func(ctx context.Context) (exchange.Session, error) {
		return Dial(ctx, cfg)
	}
}

func (s *Session) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return exchange.NewError(exchange.KindTransient, "rate limit", err)
	}
	return nil
}

func (s *Session) recvWindow() futures.RequestOption {
	return futures.WithRecvWindow(s.cfg.RecvWindow.Milliseconds())
}

func (s *Session) Candles(ctx context.Context, symbol, interval string, limit int) (market.Candles, error) {
	if limit <= 0 {
		limit = 100
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, exchange.NewError(exchange.KindConfiguration, "klines", fmt.Errorf("symbol is required"))
	}
	interval = scheduler.NormalizeInterval(interval)
	if interval == "" {
		return nil, exchange.NewError(exchange.KindConfiguration, "klines", fmt.Errorf("interval is required"))
	}
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	kls, err := s.client.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, classify("klines", err)
	}
	out := make(market.Candles, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		out = append(out, market.Candle{
			OpenTime:  kl.OpenTime,
			CloseTime: kl.CloseTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
			Trades:    kl.TradeNum,
		})
	}
	return out, nil
}

func (s *Session) OpenPosition(ctx context.Context, symbol string) (*exchange.Position, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	risks, err := s.client.NewGetPositionRiskService().Symbol(symbol).Do(ctx, s.recvWindow())
	if err != nil {
		return nil, classify("position risk", err)
	}
	for _, r := range risks {
		if r == nil || !strings.EqualFold(r.Symbol, symbol) {
			continue
		}
		amt := parseFloat(r.PositionAmt)
		if amt == 0 {
			continue
		}
		lev, _ := strconv.Atoi(strings.TrimSpace(r.Leverage))
		return &exchange.Position{
			Symbol:     symbol,
			Amount:     amt,
			EntryPrice: parseFloat(r.EntryPrice),
			MarkPrice:  parseFloat(r.MarkPrice),
			Leverage:   lev,
			UpdatedAt:  time.Now().UTC(),
		}, nil
	}
	return nil, nil
}

func (s *Session) AvailableBalance(ctx context.Context, asset string) (float64, error) {
	asset = strings.ToUpper(strings.TrimSpace(asset))
	if err := s.wait(ctx); err != nil {
		return 0, err
	}
	balances, err := s.client.NewGetBalanceService().Do(ctx, s.recvWindow())
	if err != nil {
		return 0, classify("balance", err)
	}
	for _, b := range balances {
		if b != nil && strings.EqualFold(b.Asset, asset) {
			return parseFloat(b.AvailableBalance), nil
		}
	}
	return 0, nil
}

func (s *Session) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	res, err := s.client.NewChangeLeverageService().
		Symbol(strings.ToUpper(strings.TrimSpace(symbol))).
		Leverage(leverage).
		Do(ctx, s.recvWindow())
	if err != nil {
		return classify("change leverage", err)
	}
	if res != nil && res.Leverage != leverage {
		return exchange.NewError(exchange.KindConfiguration, "change leverage",
			fmt.Errorf("exchange applied leverage %d instead of %d", res.Leverage, leverage))
	}
	return nil
}

func (s *Session) SubmitMarketOrder(ctx context.Context, req exchange.MarketOrder) (exchange.OrderAck, error) {
	if req.Quantity <= 0 {
		return exchange.OrderAck{}, exchange.NewError(exchange.KindConfiguration, "market order", fmt.Errorf("quantity must be positive"))
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = NewClientOrderID()
	}
	if err := s.wait(ctx); err != nil {
		return exchange.OrderAck{}, err
	}
	res, err := s.client.NewCreateOrderService().
		Symbol(strings.ToUpper(req.Symbol)).
		Side(futures.SideType(req.Side)).
		Type(futures.OrderTypeMarket).
		Quantity(sizing.Format(req.Quantity, req.Precision)).
		ReduceOnly(false).
		NewClientOrderID(req.ClientOrderID).
		NewOrderResponseType(futures.NewOrderRespTypeRESULT).
		Do(ctx, s.recvWindow())
	if err != nil {
		return exchange.OrderAck{}, classify("market order", err)
	}
	return ackFromResponse(res), nil
}

func (s *Session) SubmitTrailingStop(ctx context.Context, req exchange.TrailingStopOrder) (exchange.OrderAck, error) {
	if req.Quantity <= 0 {
		return exchange.OrderAck{}, exchange.NewError(exchange.KindConfiguration, "trailing stop", fmt.Errorf("quantity must be positive"))
	}
	if req.CallbackRate <= 0 {
		return exchange.OrderAck{}, exchange.NewError(exchange.KindConfiguration, "trailing stop", fmt.Errorf("callback rate must be positive"))
	}
	if req.ClientOrderID == "" {
		req.ClientOrderID = NewClientOrderID()
	}
	if err := s.wait(ctx); err != nil {
		return exchange.OrderAck{}, err
	}
	res, err := s.client.NewCreateOrderService().
		Symbol(strings.ToUpper(req.Symbol)).
		Side(futures.SideType(req.Side)).
		Type(futures.OrderTypeTrailingStopMarket).
		Quantity(sizing.Format(req.Quantity, req.Precision)).
		CallbackRate(strconv.FormatFloat(req.CallbackRate, 'f', -1, 64)).
		TimeInForce(futures.TimeInForceTypeGTC).
		ReduceOnly(true).
		NewClientOrderID(req.ClientOrderID).
		Do(ctx, s.recvWindow())
	if err != nil {
		return exchange.OrderAck{}, classify("trailing stop", err)
	}
	return ackFromResponse(res), nil
}

func (s *Session) ListOpenOrders(ctx context.Context, symbol string) ([]exchange.OpenOrder, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	orders, err := s.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx, s.recvWindow())
	if err != nil {
		return nil, classify("open orders", err)
	}
	out := make([]exchange.OpenOrder, 0, len(orders))
	for _, o := range orders {
		if o == nil {
			continue
		}
		out = append(out, exchange.OpenOrder{
			OrderID:       o.OrderID,
			ClientOrderID: o.ClientOrderID,
			Symbol:        o.Symbol,
			Type:          exchange.OrderType(o.Type),
			Side:          exchange.Side(o.Side),
			Quantity:      parseFloat(o.OrigQuantity),
			ReduceOnly:    o.ReduceOnly,
		})
	}
	return out, nil
}

func (s *Session) CancelOrder(ctx context.Context, symbol string, orderID int64) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	_, err := s.client.NewCancelOrderService().
		Symbol(strings.ToUpper(strings.TrimSpace(symbol))).
		OrderID(orderID).
		Do(ctx, s.recvWindow())
	if err != nil {
		return classify("cancel order", err)
	}
	return nil
}

// Filters reads LOT_SIZE and quantityPrecision from exchangeInfo. A symbol
// without a LOT_SIZE filter yields a zero step and the precision alone.
func (s *Session) Filters(ctx context.Context, symbol string) (sizing.Filters, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := s.wait(ctx); err != nil {
		return sizing.Filters{}, err
	}
	info, err := s.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return sizing.Filters{}, classify("exchange info", err)
	}
	if info == nil {
		return sizing.Filters{}, exchange.NewError(exchange.KindTransient, "exchange info", exchange.ErrFiltersUnavailable)
	}
	for i := range info.Symbols {
		sym := &info.Symbols[i]
		if !strings.EqualFold(sym.Symbol, symbol) {
			continue
		}
		filters := sizing.Filters{Precision: sym.QuantityPrecision}
		if lot := sym.LotSizeFilter(); lot != nil {
			if step, err := decimalFromString(lot.StepSize); err == nil && step.IsPositive() {
				filters.StepSize = step
			}
		}
		return filters, nil
	}
	return sizing.Filters{}, exchange.NewError(exchange.KindConfiguration, "exchange info",
		fmt.Errorf("%w: symbol %s not listed", exchange.ErrFiltersUnavailable, symbol))
}

// Close drops pooled connections; the session must not be used afterwards.
func (s *Session) Close() error {
	if s == nil || s.httpClient == nil {
		return nil
	}
	s.httpClient.CloseIdleConnections()
	return nil
}

// NewClientOrderID returns a Binance-compatible (<=36 chars) unique client id.
func NewClientOrderID() string {
	return clientIDPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func ackFromResponse(res *futures.CreateOrderResponse) exchange.OrderAck {
	if res == nil {
		return exchange.OrderAck{}
	}
	return exchange.OrderAck{
		OrderID:          res.OrderID,
		ClientOrderID:    res.ClientOrderID,
		Symbol:           res.Symbol,
		Side:             exchange.Side(res.Side),
		Type:             exchange.OrderType(res.Type),
		Status:           string(res.Status),
		OrigQuantity:     parseFloat(res.OrigQuantity),
		ExecutedQuantity: parseFloat(res.ExecutedQuantity),
		AvgPrice:         parseFloat(res.AvgPrice),
	}
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}

func decimalFromString(v string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(v))
}
