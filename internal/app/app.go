package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"trailbot/internal/config"
	"trailbot/internal/gateway/notifier"
	"trailbot/internal/logger"
	"trailbot/internal/trader"
	statushttp "trailbot/internal/transport/http/status"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：交易循环、状态接口与配置热加载。
type App struct {
	cfg        *config.Config
	controller *trader.Controller
	statusHTTP *statushttp.Server
	watcher    *config.Watcher
	alerts     *notifier.AlertSink
	tunables   chan trader.Tunables
	closers    []func() error
	Summary    *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）
func NewApp(cfg *config.Config, opts ...AppBuilderOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg, opts)
}

// Run 启动所有组件，直到 ctx 取消或任一组件返回错误。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.controller == nil {
		return fmt.Errorf("app not initialized")
	}
	defer a.close()
	if a.Summary != nil {
		a.Summary.Print()
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.statusHTTP != nil {
		// the status API is read-only; losing it must not stop the loop
		group.Go(func() error {
			if err := a.statusHTTP.Start(ctx); err != nil {
				logger.Errorf("状态接口已停止: %v", err)
			}
			return nil
		})
	}
	if a.alerts != nil {
		// stops after the loop so the shutdown notice is delivered
		alertCtx, stopAlerts := context.WithCancel(context.WithoutCancel(ctx))
		alertDone := make(chan struct{})
		go func() {
			defer close(alertDone)
			_ = a.alerts.Run(alertCtx)
		}()
		defer func() {
			stopAlerts()
			<-alertDone
		}()
	}
	if a.watcher != nil {
		if err := a.watcher.Start(); err != nil {
			logger.Warnf("配置热加载未启用: %v", err)
		} else {
			group.Go(func() error {
				a.forwardReloads(ctx)
				return nil
			})
		}
	}
	group.Go(func() error {
		err := a.controller.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return group.Wait()
}

// Controller exposes the trading loop (for status and test harnesses).
func (a *App) Controller() *trader.Controller {
	if a == nil {
		return nil
	}
	return a.controller
}

func (a *App) forwardReloads(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case next := <-a.watcher.Updates():
			a.applyReload(next)
		}
	}
}

// applyReload hands live tunables to the loop; everything else waits for a restart.
func (a *App) applyReload(next *config.Config) {
	if next == nil {
		return
	}
	if changed := a.cfg.RestartRequired(next); len(changed) > 0 {
		logger.Warnf("配置变更需重启生效: %s", strings.Join(changed, ", "))
	}
	t := TunablesFromConfig(next)
	for {
		select {
		case a.tunables <- t:
			return
		default:
		}
		select {
		case <-a.tunables:
		default:
		}
	}
}

func (a *App) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warnf("close failed: %v", err)
		}
	}
	a.closers = nil
}
