package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/skyhue-weather/internal/config"
	"github.com/kjstillabower/skyhue-weather/internal/search"
)

func searchStdin(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	_, geocoder, _, err := newClients(cfg)
	if err != nil {
		return err
	}
	return runSearch(ctx, geocoder, cfg.SearchDebounce, os.Stdin, os.Stdout, logger)
}

type searchLine struct {
	Query  string      `json:"query"`
	Cities interface{} `json:"cities,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// runSearch treats every input line as one keystroke-state of the search box
// and writes one JSON line per delivered result. It returns once input ends
// and the last pending search has settled.
func runSearch(ctx context.Context, searcher search.Searcher, delay time.Duration, in io.Reader, out io.Writer, logger *zap.Logger) error {
	var (
		mu        sync.Mutex
		enc       = json.NewEncoder(out)
		last      = make(chan struct{}, 1)
		want      string
		submitted bool
	)
	deliver := func(r search.Result) {
		line := searchLine{Query: r.Query, Cities: r.Cities}
		if r.Err != nil {
			line = searchLine{Query: r.Query, Error: r.Err.Error()}
		}
		mu.Lock()
		_ = enc.Encode(line)
		final := r.Query == want
		mu.Unlock()
		if final {
			select {
			case last <- struct{}{}:
			default:
			}
		}
	}

	d := search.NewDebouncer(searcher, delay, deliver, logger)
	defer d.Stop()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		q := scanner.Text()
		mu.Lock()
		want, submitted = q, true
		mu.Unlock()
		select {
		case <-last:
		default:
		}
		d.Submit(q)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read queries: %w", err)
	}

	if !submitted {
		return nil
	}
	select {
	case <-last:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
