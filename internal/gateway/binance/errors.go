package binance

import (
	"errors"

	"github.com/adshao/go-binance/v2/common"

	"trailbot/internal/gateway/exchange"
	"trailbot/internal/logger"
)

// API error codes, see https://developers.binance.com/docs/derivatives/usds-margined-futures/error-code
var (
	transientCodes = map[int64]struct{}{
		-1000: {}, // unknown error while processing
		-1001: {}, // internal disconnected
		-1003: {}, // too many requests
		-1006: {}, // unexpected response
		-1007: {}, // timeout waiting for backend
		-1008: {}, // server busy
		-1015: {}, // too many new orders
		-1021: {}, // timestamp outside recvWindow
		-2010: {}, // new order rejected
		-2011: {}, // cancel rejected
		-2019: {}, // margin insufficient
		-2021: {}, // order would immediately trigger
		-2022: {}, // reduce-only rejected
		-4131: {}, // counterparty best price does not meet PERCENT_PRICE filter
		-5021: {}, // FOK could not be filled
	}
	fatalCodes = map[int64]struct{}{
		-1002: {}, // unauthorized
		-1022: {}, // invalid signature
		-2014: {}, // API key format invalid
		-2015: {}, // invalid API key, IP or permissions
		-2017: {}, // API keys locked
	}
	configurationCodes = map[int64]struct{}{
		-1102: {}, // mandatory parameter missing
		-1111: {}, // precision over maximum
		-1121: {}, // invalid symbol
		-4003: {}, // quantity less than zero
		-4028: {}, // leverage not valid
		-4164: {}, // notional too small
	}
)

// classify wraps err with the exchange error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		return &exchange.Error{Kind: kindForCode(apiErr.Code), Op: op, Code: apiErr.Code, Err: err}
	}
	if kind, ok := exchange.KindOf(err); ok {
		return &exchange.Error{Kind: kind, Op: op, Err: err}
	}
	return &exchange.Error{Kind: exchange.KindTransient, Op: op, Err: err}
}

func kindForCode(code int64) exchange.Kind {
	if _, ok := fatalCodes[code]; ok {
		return exchange.KindFatalSession
	}
	if _, ok := configurationCodes[code]; ok {
		return exchange.KindConfiguration
	}
	if _, ok := transientCodes[code]; ok {
		return exchange.KindTransient
	}
	// unmapped codes are usually per-order rejections; the next cycle re-evaluates
	logger.Debugf("[binance] unmapped error code %d treated as transient", code)
	return exchange.KindTransient
}
