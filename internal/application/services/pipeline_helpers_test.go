package services_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/application/oracle"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/application/services"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/entities"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
)

const highWBCAnalysis = "```json\n" + `{
  "reportDate": "2024-03-01",
  "parameters": [
    {"name": "WBC", "value": "14.2", "unit": "10^9/L", "category": "Hematology"},
    {"name": "Hemoglobin", "value": 13.5, "unit": "g/dL", "category": "Hematology"}
  ],
  "summary": "White cell count is elevated.",
  "redFlags": ["High WBC"]
}` + "\n```"

const normalAnalysis = `{"reportDate":"2024-01-10","parameters":[{"name":"WBC","value":"7.1","unit":"10^9/L","category":"Hematology"}],"summary":"All values within range.","redFlags":[]}`

const validComparison = `{
  "summary": "WBC rose since the previous test.",
  "parameterChanges": [
    {"name": "WBC", "prevValue": "7.1", "newValue": "14.2", "unit": "10^9/L", "changeType": "deterioration", "insight": "Possible infection."}
  ],
  "redFlagsStatus": {"resolved": [], "persisting": [], "new": ["High WBC"]},
  "recommendations": ["Repeat CBC in two weeks."]
}`

var (
	patientS1 = entities.Identity{SubjectID: "S1", Role: entities.RolePatient}
	patientS2 = entities.Identity{SubjectID: "S2", Role: entities.RolePatient}
	doctorD1  = entities.Identity{SubjectID: "D1", Role: entities.RoleDoctor}
	doctorD2  = entities.Identity{SubjectID: "D2", Role: entities.RoleDoctor}
)

type stubTextAnalyzer struct {
	name    string
	replies []string
	err     error

	mu      sync.Mutex
	prompts []string
}

func (s *stubTextAnalyzer) Name() string { return s.name }

func (s *stubTextAnalyzer) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	reply := s.replies[0]
	if len(s.replies) > 1 {
		s.replies = s.replies[1:]
	}
	return reply, nil
}

func (s *stubTextAnalyzer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

func newChain(analyzers ...*stubTextAnalyzer) *oracle.Chain {
	entries := make([]oracle.Provider, 0, len(analyzers))
	for _, a := range analyzers {
		entries = append(entries, oracle.Provider{Analyzer: a, Timeout: time.Second})
	}
	return oracle.NewChain(entries...)
}

type stubExtractor struct {
	text string
	err  error
}

func (s *stubExtractor) Extract(ctx context.Context, document []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.text != "" {
		return s.text, nil
	}
	return string(document), nil
}

type memoryDocumentStore struct {
	mu      sync.Mutex
	docs    map[string][]byte
	puts    int
	deletes int
	putErr  error
}

func newMemoryDocumentStore() *memoryDocumentStore {
	return &memoryDocumentStore{docs: make(map[string][]byte)}
}

func (s *memoryDocumentStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return "", s.putErr
	}
	s.docs[key] = append([]byte(nil), data...)
	return key, nil
}

func (s *memoryDocumentStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.docs[ref]
	if !ok {
		return nil, providers.ErrDocumentNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryDocumentStore) Delete(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes++
	if _, ok := s.docs[ref]; !ok {
		return providers.ErrDocumentNotFound
	}
	delete(s.docs, ref)
	return nil
}

func (s *memoryDocumentStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

type recordingEventBus struct {
	mu     sync.Mutex
	events map[string][]*entities.ReportEvent
	err    error
}

func newRecordingEventBus() *recordingEventBus {
	return &recordingEventBus{events: make(map[string][]*entities.ReportEvent)}
}

func (b *recordingEventBus) Publish(ctx context.Context, channel string, event *entities.ReportEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events[channel] = append(b.events[channel], event)
	return nil
}

func (b *recordingEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.ReportEvent, error) {
	return nil, errors.New("not supported")
}

func (b *recordingEventBus) Unsubscribe(ctx context.Context, channel string) error { return nil }

func (b *recordingEventBus) Close() error { return nil }

func (b *recordingEventBus) eventTypes(channel string) []entities.ReportEventType {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []entities.ReportEventType
	for _, e := range b.events[channel] {
		out = append(out, e.EventType)
	}
	return out
}

func bloodTestUpload(text string) services.UploadInput {
	return services.UploadInput{
		Filename:    "cbc.txt",
		ContentType: "text/plain",
		Data:        []byte(text),
		Metadata: entities.ReportMetadata{
			Name: "CBC March",
			Type: "Blood Test",
			Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}
