package idgen

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestNewSnowflake_WorkerRange(t *testing.T) {
	if _, err := NewSnowflake(-1); !errors.Is(err, ErrInvalidWorkerID) {
		t.Errorf("want ErrInvalidWorkerID, got %v", err)
	}
	if _, err := NewSnowflake(1024); !errors.Is(err, ErrInvalidWorkerID) {
		t.Errorf("want ErrInvalidWorkerID, got %v", err)
	}
	if _, err := NewSnowflake(1023); err != nil {
		t.Errorf("1023 is valid: %v", err)
	}
}

func TestGenerate_UniqueUnderConcurrency(t *testing.T) {
	s, _ := NewSnowflake(3)

	const n = 2000
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < n/4; j++ {
				ids <- s.Generate()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		if seen[id] {
			t.Fatalf("duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestNext_Prefixes(t *testing.T) {
	s, _ := NewSnowflake(1)
	tests := map[string]string{
		SeriesCustomer:    "CUS",
		SeriesAccount:     "ACC",
		SeriesTransaction: "TXN",
		SeriesLoan:        "LN",
		SeriesLoanPayment: "LPY",
	}
	for series, prefix := range tests {
		no, err := s.Next(context.Background(), series)
		if err != nil {
			t.Fatalf("%s: %v", series, err)
		}
		if !strings.HasPrefix(no, prefix) || len(no) != len(prefix)+14+8 {
			t.Errorf("%s: unexpected number %q", series, no)
		}
	}
}

func TestNext_UnknownSeries(t *testing.T) {
	s, _ := NewSnowflake(1)
	if _, err := s.Next(context.Background(), "card"); !errors.Is(err, ErrUnknownSeries) {
		t.Fatalf("want ErrUnknownSeries, got %v", err)
	}
}
