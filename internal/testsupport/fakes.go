package testsupport

import (
	"context"
	"sync"
)

// OrderCall records one call made against FakeOrderService.
type OrderCall struct {
	Endpoint string
	Body     map[string]string
	JSON     string
}

// FakeOrderService records calls and returns Err from every method.
type FakeOrderService struct {
	mu    sync.Mutex
	Calls []OrderCall
	Err   error
}

func (f *FakeOrderService) record(call OrderCall) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
	return f.Err
}

func (f *FakeOrderService) CreateOrder(_ context.Context, body map[string]string) error {
	return f.record(OrderCall{Endpoint: "create-order", Body: body})
}

func (f *FakeOrderService) ReportPrepOrder(_ context.Context, jsonBody string) error {
	return f.record(OrderCall{Endpoint: "prep-sales-report", JSON: jsonBody})
}

func (f *FakeOrderService) ReportInStoreSales(_ context.Context, body map[string]string) error {
	return f.record(OrderCall{Endpoint: "instore-sales-report", Body: body})
}

// Count returns the number of recorded calls.
func (f *FakeOrderService) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// PutCall records one upload made against FakeStore.
type PutCall struct {
	Bucket    string
	Key       string
	LocalPath string
	Content   string
}

// FakeStore records uploads, reading the file the way a real upload would.
type FakeStore struct {
	mu    sync.Mutex
	Puts  []PutCall
	Err   error
	Files func(path string) ([]byte, error)
}

func (f *FakeStore) Put(_ context.Context, bucket, key, localPath string) error {
	call := PutCall{Bucket: bucket, Key: key, LocalPath: localPath}
	if f.Files != nil {
		data, err := f.Files(localPath)
		if err != nil {
			return err
		}
		call.Content = string(data)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Puts = append(f.Puts, call)
	return f.Err
}

// Count returns the number of recorded uploads.
func (f *FakeStore) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Puts)
}
