package i18n

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"farmprofit/internal/log"

	"github.com/fsnotify/fsnotify"
)

const settleDelay = 300 * time.Millisecond

// Watch drops cached catalogs when files in the catalog directory change, calling onChange (if set) for each reloaded language.
// It blocks until ctx is cancelled.
func (l *Loader) Watch(ctx context.Context, onChange func(lang string)) error {
	if l.opts.Dir == "" {
		return errors.New("no translations directory configured")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(l.opts.Dir); err != nil {
		return err
	}
	l.logger.Info("Watching translations", "dir", l.opts.Dir)

	// Editors write in bursts; act once a file has been quiet for settleDelay.
	pending := map[string]time.Time{}
	ticker := time.NewTicker(settleDelay / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) &&
				!ev.Op.Has(fsnotify.Remove) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Base(ev.Name)
			if strings.ToLower(filepath.Ext(name)) != ".json" {
				continue
			}
			pending[strings.TrimSuffix(name, filepath.Ext(name))] = time.Now()
		case <-ticker.C:
			now := time.Now()
			for lang, at := range pending {
				if now.Sub(at) < settleDelay {
					continue
				}
				delete(pending, lang)
				// Fallback catalogs may be cached under other languages.
				l.cache.Purge()
				l.logger.Info("Translation catalog changed", log.FieldLanguage, lang)
				if onChange != nil {
					onChange(lang)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("Translation watch error", log.FieldError, err.Error())
		}
	}
}
