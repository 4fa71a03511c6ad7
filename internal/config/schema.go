package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// settingsSchema guards the raw file structure: unknown sections and
// wrongly typed scalars are rejected before decoding.
const settingsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "include": {"type": "array", "items": {"type": "string"}},
    "app": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "env": {"type": "string"},
        "log_level": {"type": "string"},
        "log_format": {"enum": ["text", "json"]},
        "log_path": {"type": "string"},
        "http_addr": {"type": "string"}
      }
    },
    "exchange": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "rest_base_url": {"type": "string"},
        "testnet": {"type": "boolean"},
        "http_timeout_seconds": {"type": "integer", "minimum": 1},
        "proxy_url": {"type": "string"},
        "recv_window_ms": {"type": "integer", "minimum": 1},
        "requests_per_second": {"type": "number", "exclusiveMinimum": 0},
        "api_key": {"type": "string"},
        "api_secret": {"type": "string"}
      }
    },
    "strategy": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "symbol": {"type": "string", "pattern": "^[A-Za-z0-9]+$"},
        "interval": {"type": "string"},
        "kline_limit": {"type": "integer"},
        "closed_candles_only": {"type": "boolean"},
        "fast_period": {"type": "integer", "minimum": 1},
        "slow_period": {"type": "integer", "minimum": 2},
        "leverage": {"type": "integer"},
        "capital_fraction": {"type": "number"},
        "quote_asset": {"type": "string"}
      }
    },
    "protection": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "callback_rate": {"type": "number"},
        "fallback_callback_rate": {"type": "number"}
      }
    },
    "loop": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "poll_interval_seconds": {"type": "integer"},
        "cooldown_seconds": {"type": "integer"},
        "align_to_candle_close": {"type": "boolean"},
        "align_offset_seconds": {"type": "integer"}
      }
    },
    "eventlog": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "csv_path": {"type": "string"},
        "db_path": {"type": "string"},
        "write_timeout_ms": {"type": "integer"},
        "memory_size": {"type": "integer"}
      }
    },
    "notify": {
      "type": "object",
      "additionalProperties": false,
      "properties": {
        "telegram_enabled": {"type": "boolean"},
        "telegram_bot_token": {"type": "string"},
        "telegram_chat_id": {"type": ["string", "integer"]},
        "include_trades": {"type": "boolean"}
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	schemaCompiled *jsonschema.Schema
	schemaErr      error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("settings.json", strings.NewReader(settingsSchema)); err != nil {
			schemaErr = err
			return
		}
		schemaCompiled, schemaErr = compiler.Compile("settings.json")
	})
	return schemaCompiled, schemaErr
}

// validateSchema checks merged file settings. Values are normalized through
// encoding/json so YAML integer types validate as JSON numbers.
func validateSchema(settings map[string]any) error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("config schema: %w", err)
	}
	return nil
}
