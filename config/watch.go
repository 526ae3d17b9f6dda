package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 基于 fsnotify 监听配置文件变更，变更通过校验后回调最新配置。
// 校验失败的新配置会被丢弃，当前生效配置保持不变。
type Watcher struct {
	Path     string
	Cooldown time.Duration // 两次回调的最小间隔，抵御编辑器的连环写入
}

// Start blocks until ctx is done; callback receives each validated config.
func (w Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	// 监听目录而不是文件本身：多数编辑器通过 rename 原子替换文件
	dir := filepath.Dir(w.Path)
	if err := fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	cooldown := w.Cooldown
	if cooldown <= 0 {
		cooldown = time.Second
	}
	base := filepath.Base(w.Path)
	var last time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if time.Since(last) < cooldown {
				continue
			}
			cfg, err := LoadWithEnvOverrides(w.Path)
			if err != nil {
				continue
			}
			last = time.Now()
			if onUpdate != nil {
				onUpdate(cfg)
			}
		case _, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
		}
	}
}
