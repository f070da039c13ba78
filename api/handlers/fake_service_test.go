package handlers

import (
	"context"
	"strings"
	"sync"

	crossref "github.com/AAreesha/Cross-Reference-Database-System"
	"github.com/AAreesha/Cross-Reference-Database-System/rag"
	"github.com/AAreesha/Cross-Reference-Database-System/types"
)

// fakeService 内存版引擎，记录调用参数
type fakeService struct {
	mu sync.Mutex

	searchErr   error
	queries     []string
	suggestions []string

	submitErr error
	uploads   map[string][]byte
	jobs      map[string]types.JobStatus

	insertErr error
	inserted  []types.Record
}

func newFakeService() *fakeService {
	return &fakeService{
		uploads: make(map[string][]byte),
		jobs:    make(map[string]types.JobStatus),
	}
}

func (f *fakeService) Search(_ context.Context, query string) (*crossref.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if strings.TrimSpace(query) == "" {
		return nil, types.ErrEmptyQuery
	}
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.queries = append(f.queries, query)
	return &crossref.SearchResponse{
		Query:   query,
		Kind:    rag.OutcomeResults,
		Answer:  "Acme renewed in 2023.",
		Context: "[1] Acme logistics contract renewed 2023",
		Sources: []types.Partition{types.PartitionDB2},
	}, nil
}

func (f *fakeService) KnownQueries(context.Context) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.suggestions == nil {
		return []string{}
	}
	return f.suggestions
}

func (f *fakeService) SubmitIngest(_ context.Context, data []byte, filename, partition string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return "", f.submitErr
	}
	p, err := types.ParsePartition(partition)
	if err != nil {
		return "", err
	}
	id := "job-" + filename
	f.uploads[id] = data
	f.jobs[id] = types.JobStatus{ID: id, Partition: p, Filename: filename, State: types.JobPending}
	return id, nil
}

func (f *fakeService) IngestStatus(_ context.Context, jobID string) (types.JobStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.jobs[jobID]
	if !ok {
		return types.JobStatus{}, types.ErrUnknownJob
	}
	return job, nil
}

func (f *fakeService) InsertRecord(_ context.Context, partition, id, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	p, err := types.ParsePartition(partition)
	if err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" || strings.TrimSpace(text) == "" {
		return types.ErrInvalidRecord
	}
	f.inserted = append(f.inserted, types.Record{ID: id, Partition: p, Text: text})
	return nil
}
