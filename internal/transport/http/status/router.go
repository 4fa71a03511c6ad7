package statushttp

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"trailbot/internal/analysis/visual"
	"trailbot/internal/eventlog"
	"trailbot/internal/store/model"
	"trailbot/internal/trader"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit   = 100
	maxLimit       = 500
	summaryMaxLen  = 160
	maxLogLineSize = 1024 * 1024
)

type StatusSource interface {
	Snapshot() trader.Status
}

// ChartSource exposes the candle window the loop last evaluated.
type ChartSource interface {
	Window() trader.Window
}

type RecentEvents interface {
	Recent(limit int) []eventlog.Event
}

type StoredEvents interface {
	Recent(ctx context.Context, kind string, limit int) ([]eventlog.Event, error)
}

type OrderLister interface {
	ListOrders(ctx context.Context, limit int) ([]model.OrderModel, error)
}

// Router 暴露状态、事件、订单与日志查询接口。
type Router struct {
	status   StatusSource
	chart    ChartSource
	memory   RecentEvents
	events   StoredEvents
	orders   OrderLister
	logPaths map[string]string
	logNames []string
}

func NewRouter(cfg ServerConfig) *Router {
	names := make([]string, 0, len(cfg.LogPaths))
	for name, path := range cfg.LogPaths {
		if strings.TrimSpace(path) == "" || strings.TrimSpace(name) == "" {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return &Router{
		status:   cfg.Status,
		chart:    cfg.Chart,
		memory:   cfg.Memory,
		events:   cfg.Events,
		orders:   cfg.Orders,
		logPaths: cfg.LogPaths,
		logNames: names,
	}
}

// Register 将路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/status", r.handleStatus)
	group.GET("/events", r.handleEvents)
	group.GET("/orders", r.handleOrders)
	group.GET("/logs", r.handleLogs)
	group.GET("/chart", r.handleChart)
}

func (r *Router) handleStatus(c *gin.Context) {
	st := r.status.Snapshot()
	resp := gin.H{"status": st}
	if !st.LastCycleAt.IsZero() {
		resp["since_last_cycle_seconds"] = int(time.Since(st.LastCycleAt).Seconds())
	}
	c.JSON(http.StatusOK, resp)
}

type eventView struct {
	eventlog.Event
	Summary string `json:"summary,omitempty"`
	Failed  bool   `json:"failed"`
}

func (r *Router) handleEvents(c *gin.Context) {
	limit := parseLimit(c)
	kind := strings.TrimSpace(c.Query("kind"))
	source := strings.ToLower(strings.TrimSpace(c.DefaultQuery("source", "")))

	var (
		events []eventlog.Event
		from   string
	)
	switch {
	case r.events != nil && (source == "store" || kind != "" || r.memory == nil):
		list, err := r.events.Recent(c.Request.Context(), kind, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		events, from = list, "store"
	case r.memory != nil:
		events, from = filterKind(r.memory.Recent(0), kind, limit), "memory"
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event log disabled"})
		return
	}
	views := make([]eventView, 0, len(events))
	for _, evt := range events {
		views = append(views, eventView{
			Event:   evt,
			Summary: eventlog.Summarize(evt.FieldsJSON(), summaryMaxLen),
			Failed:  evt.Failed(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"source": from, "count": len(views), "events": views})
}

func (r *Router) handleOrders(c *gin.Context) {
	if r.orders == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "order journal disabled"})
		return
	}
	rows, err := r.orders.ListOrders(c.Request.Context(), parseLimit(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, o := range rows {
		out = append(out, gin.H{
			"time":            time.UnixMilli(o.CreatedAtUnix).UTC(),
			"action":          o.Action,
			"symbol":          o.Symbol,
			"order_id":        o.OrderID,
			"client_order_id": o.ClientOrderID,
			"side":            o.Side,
			"type":            o.Type,
			"status":          o.Status,
			"quantity":        o.Quantity,
			"price":           o.Price,
			"callback_rate":   o.CallbackRate,
			"attempt":         o.Attempt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"count": len(out), "orders": out})
}

func (r *Router) handleLogs(c *gin.Context) {
	if len(r.logNames) == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no log files configured"})
		return
	}
	name := strings.TrimSpace(c.DefaultQuery("name", ""))
	path := ""
	if name != "" {
		path = strings.TrimSpace(r.logPaths[name])
	}
	if path == "" {
		name = r.logNames[0]
		path = r.logPaths[name]
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "200"))
	if limit <= 0 {
		limit = 200
	}
	lines, err := readLastLines(path, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "path": path})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"name":      name,
		"path":      path,
		"lines":     lines,
		"available": r.logNames,
	})
}

func (r *Router) handleChart(c *gin.Context) {
	if r.chart == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "chart disabled"})
		return
	}
	w := r.chart.Window()
	in := visual.ChartInput{
		Symbol:     w.Symbol,
		Interval:   w.Interval,
		Candles:    w.Candles,
		Points:     w.Points,
		FastPeriod: w.Indicator.FastPeriod,
		SlowPeriod: w.Indicator.SlowPeriod,
		Subtitle:   fmt.Sprintf("signal %s", w.Signal),
	}
	if strings.EqualFold(c.Query("format"), "png") {
		img, err := visual.RenderPNG(c.Request.Context(), in)
		if err != nil {
			chartError(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", img)
		return
	}
	var buf bytes.Buffer
	if err := visual.RenderHTML(&buf, in); err != nil {
		chartError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func chartError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, visual.ErrNoCandles) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func parseLimit(c *gin.Context) int {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func filterKind(events []eventlog.Event, kind string, limit int) []eventlog.Event {
	out := make([]eventlog.Event, 0, limit)
	for _, evt := range events {
		if kind != "" && evt.Kind != kind {
			continue
		}
		out = append(out, evt)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func readLastLines(path string, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxLogLineSize)
	lines := make([]string, 0, limit)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if len(lines) > limit {
			lines = lines[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
