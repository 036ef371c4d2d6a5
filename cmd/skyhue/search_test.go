package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/skyhue-weather/internal/models"
)

type recordingSearcher struct {
	mu      sync.Mutex
	queries []string
	err     error
}

func (s *recordingSearcher) Search(ctx context.Context, query string) ([]models.CityCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return []models.CityCandidate{{Name: query, Country: "FR"}}, nil
}

func decodeLines(t *testing.T, out *bytes.Buffer) []searchLine {
	t.Helper()
	var lines []searchLine
	sc := bufio.NewScanner(out)
	for sc.Scan() {
		var l searchLine
		require.NoError(t, json.Unmarshal(sc.Bytes(), &l))
		lines = append(lines, l)
	}
	return lines
}

func TestRunSearch_OnlyLastQueryHitsGeocoder(t *testing.T) {
	searcher := &recordingSearcher{}
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := runSearch(ctx, searcher, 50*time.Millisecond, strings.NewReader("Pa\nPar\nParis\n"), &out, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Paris"}, searcher.queries)
	lines := decodeLines(t, &out)
	require.Len(t, lines, 1)
	assert.Equal(t, "Paris", lines[0].Query)
	assert.Empty(t, lines[0].Error)
}

func TestRunSearch_ShortQueryAnsweredWithoutLookup(t *testing.T) {
	searcher := &recordingSearcher{}
	var out bytes.Buffer

	err := runSearch(context.Background(), searcher, 50*time.Millisecond, strings.NewReader("P\n"), &out, nil)
	require.NoError(t, err)

	assert.Empty(t, searcher.queries)
	lines := decodeLines(t, &out)
	require.Len(t, lines, 1)
	assert.Equal(t, "P", lines[0].Query)
}

func TestRunSearch_ErrorsAreReportedPerLine(t *testing.T) {
	searcher := &recordingSearcher{err: errors.New("geocoding failed")}
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, runSearch(ctx, searcher, 10*time.Millisecond, strings.NewReader("Tokyo\n"), &out, nil))

	lines := decodeLines(t, &out)
	require.Len(t, lines, 1)
	assert.Equal(t, "geocoding failed", lines[0].Error)
}

func TestRunSearch_EmptyInput(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, runSearch(context.Background(), &recordingSearcher{}, time.Millisecond, strings.NewReader(""), &out, nil))
	assert.Zero(t, out.Len())
}
