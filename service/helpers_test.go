package service

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/BerniceZTT/leads_end/config"
	"github.com/BerniceZTT/leads_end/models"
	"github.com/BerniceZTT/leads_end/repository"
)

var testTimeouts = config.Timeouts{
	Primary:    time.Second,
	Newsletter: time.Second,
	Event:      time.Second,
	Notify:     time.Second,
	Query:      time.Second,
}

// faultyStore 在内存存储之上注入错误与阻塞
type faultyStore struct {
	Store

	mu        sync.Mutex
	createErr map[string]error
	queryErr  map[string]error
	block     map[string]chan struct{}
	creates   map[string]int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{
		Store:     repository.NewMemoryStore(),
		createErr: map[string]error{},
		queryErr:  map[string]error{},
		block:     map[string]chan struct{}{},
		creates:   map[string]int{},
	}
}

func (f *faultyStore) failCreate(collection string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr[collection] = err
}

func (f *faultyStore) failQuery(collection string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryErr[collection] = err
}

// blockCreate 让 Create 挂起，直到返回的函数被调用
func (f *faultyStore) blockCreate(collection string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.block[collection] = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (f *faultyStore) createCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates[collection]
}

func (f *faultyStore) Create(ctx context.Context, collection string, doc interface{}) (repository.Document, error) {
	f.mu.Lock()
	f.creates[collection]++
	err := f.createErr[collection]
	block := f.block[collection]
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if err != nil {
		return repository.Document{}, err
	}
	return f.Store.Create(ctx, collection, doc)
}

func (f *faultyStore) QueryByField(ctx context.Context, collection, field string, value interface{}, opts repository.QueryOptions) (repository.Page, error) {
	f.mu.Lock()
	err := f.queryErr[collection]
	f.mu.Unlock()
	if err != nil {
		return repository.Page{}, err
	}
	return f.Store.QueryByField(ctx, collection, field, value, opts)
}

func storeErr(code repository.ErrorCode, collection string) error {
	return &repository.StoreError{Code: code, Op: "create", Collection: collection}
}

type staticProbe bool

func (p staticProbe) IsOnline() bool { return bool(p) }

type mockEventLogger struct {
	mock.Mock
}

func (m *mockEventLogger) LogEvent(ctx context.Context, event string, payload map[string]interface{}) error {
	args := m.Called(ctx, event, payload)
	return args.Error(0)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) LeadCreated(ctx context.Context, lead models.LeadRecord) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func validSubmission() models.LeadSubmission {
	return models.LeadSubmission{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@x.com",
		Message:   "need diesel",
	}
}
