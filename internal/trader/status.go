package trader

import (
	"sync"
	"time"

	"trailbot/internal/analysis/indicator"
	"trailbot/internal/market"
)

type State string

const (
	StateFlat         State = "FLAT"
	StatePositionOpen State = "POSITION_OPEN"
)

// Action is what a cycle ended up doing.
type Action string

const (
	ActionSkipped       Action = "skipped"
	ActionNone          Action = "none"
	ActionEntered       Action = "entered"
	ActionEntryFailed   Action = "entry_failed"
	ActionNotActionable Action = "not_actionable"
	ActionProtected     Action = "protected"
	ActionVerified      Action = "verified"
	ActionUnprotected   Action = "unprotected"
)

// Status is a point-in-time view of the loop for the status API.
type Status struct {
	Symbol         string    `json:"symbol"`
	State          State     `json:"state"`
	Signal         string    `json:"signal"`
	Action         Action    `json:"action"`
	PositionAmount float64   `json:"position_amount"`
	LastPrice      float64   `json:"last_price"`
	RSI            float64   `json:"rsi14,omitempty"`
	ATR            float64   `json:"atr14,omitempty"`
	Cycles         int       `json:"cycles"`
	Failures       int       `json:"failures"`
	Reconnects     int       `json:"reconnects"`
	Generation     int       `json:"session_generation"`
	Connected      bool      `json:"connected"`
	Degraded       bool      `json:"degraded"`
	LastError      string    `json:"last_error,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	LastCycleAt    time.Time `json:"last_cycle_at"`
	Tunables       Tunables  `json:"tunables"`
}

// Window is the candle series the last cycle evaluated, with its averages.
type Window struct {
	Symbol    string
	Interval  string
	Indicator indicator.Settings
	Candles   market.Candles
	Points    []indicator.Point
	Signal    string
}

// Tracker holds the latest Status. The loop is the only writer.
type Tracker struct {
	mu sync.RWMutex
	s  Status
	w  Window
}

func NewTracker(symbol string) *Tracker {
	return &Tracker{s: Status{Symbol: symbol, State: StateFlat, Signal: "NONE", StartedAt: time.Now().UTC()}}
}

func (t *Tracker) Snapshot() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.s
}

func (t *Tracker) update(fn func(*Status)) {
	t.mu.Lock()
	fn(&t.s)
	t.mu.Unlock()
}

// Window returns the last evaluated series. Callers must not mutate it.
func (t *Tracker) Window() Window {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.w
}

func (t *Tracker) setWindow(w Window) {
	t.mu.Lock()
	t.w = w
	t.mu.Unlock()
}
