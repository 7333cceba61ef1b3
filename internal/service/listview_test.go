package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/msomdec/pyq-archive/internal/domain"
	"github.com/msomdec/pyq-archive/internal/service"
)

func fetchOK(records ...domain.PyqRecord) func(context.Context) ([]domain.PyqRecord, error) {
	return func(context.Context) ([]domain.PyqRecord, error) { return records, nil }
}

func TestListView_States(t *testing.T) {
	l := service.NewListView()
	if l.State() != service.ListIdle {
		t.Fatalf("expected idle, got %s", l.State())
	}

	var during service.ListState
	err := l.Load(context.Background(), func(context.Context) ([]domain.PyqRecord, error) {
		during = l.State()
		return []domain.PyqRecord{{ID: "a"}}, nil
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if during != service.ListLoading {
		t.Fatalf("expected loading during fetch, got %s", during)
	}
	if l.State() != service.ListLoaded || len(l.Records()) != 1 {
		t.Fatalf("expected loaded with 1 record, got %s with %d", l.State(), len(l.Records()))
	}
}

func TestListView_LoadErrorKeepsPriorRecords(t *testing.T) {
	l := service.NewListView()
	if err := l.Load(context.Background(), fetchOK(domain.PyqRecord{ID: "a"}, domain.PyqRecord{ID: "b"})); err != nil {
		t.Fatalf("Load: %v", err)
	}

	boom := errors.New("boom")
	err := l.Load(context.Background(), func(context.Context) ([]domain.PyqRecord, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if l.State() != service.ListLoadError || !errors.Is(l.Err(), boom) {
		t.Fatalf("expected load-error state, got %s (%v)", l.State(), l.Err())
	}
	if len(l.Records()) != 2 {
		t.Fatalf("expected prior records to remain, got %d", len(l.Records()))
	}
}

func TestListView_InPlaceMutation(t *testing.T) {
	l := service.NewListView()
	l.Load(context.Background(), fetchOK(domain.PyqRecord{ID: "a"}, domain.PyqRecord{ID: "b", DownloadCount: 4}))

	got, ok := l.IncrementDownloads("b")
	if !ok || got.DownloadCount != 5 {
		t.Fatalf("expected count 5, got %d (%v)", got.DownloadCount, ok)
	}
	if _, ok := l.IncrementDownloads("missing"); ok {
		t.Fatal("expected missing id to report false")
	}

	if !l.Remove("a") {
		t.Fatal("expected Remove to succeed")
	}
	if l.Remove("a") {
		t.Fatal("expected second Remove to report false")
	}
	if _, ok := l.Find("a"); ok {
		t.Fatal("expected record to be gone")
	}
	if l.State() != service.ListLoaded {
		t.Fatalf("mutation changed state to %s", l.State())
	}
}

func TestListView_RecordsIsACopy(t *testing.T) {
	l := service.NewListView()
	l.Load(context.Background(), fetchOK(domain.PyqRecord{ID: "a"}))

	records := l.Records()
	records[0].DownloadCount = 99

	if got, _ := l.Find("a"); got.DownloadCount != 0 {
		t.Fatalf("held record changed through copy: %d", got.DownloadCount)
	}
}

func TestListView_SupersededLoadIgnored(t *testing.T) {
	l := service.NewListView()
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		l.Load(context.Background(), func(context.Context) ([]domain.PyqRecord, error) {
			<-release
			return []domain.PyqRecord{{ID: "stale"}}, nil
		})
	}()

	// Wait until the slow load has started.
	for l.State() != service.ListLoading {
	}
	if err := l.Load(context.Background(), fetchOK(domain.PyqRecord{ID: "fresh"})); err != nil {
		t.Fatalf("Load: %v", err)
	}
	close(release)
	<-done

	if _, ok := l.Find("fresh"); !ok {
		t.Fatalf("expected the newer load to win, got %v", ids(l.Records()))
	}
}
