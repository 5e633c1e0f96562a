package service_test

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"autograde-backend/internal/domain"
	"autograde-backend/internal/storage"
)

// MockAppraisalRepo
type MockAppraisalRepo struct {
	mock.Mock
}

func (m *MockAppraisalRepo) Save(ctx context.Context, rec *domain.AppraisalRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}
func (m *MockAppraisalRepo) GetByID(ctx context.Context, id string) (*domain.AppraisalRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AppraisalRecord), args.Error(1)
}
func (m *MockAppraisalRepo) ListByAppraiser(ctx context.Context, appraiserID int32, limit, offset int32) ([]domain.AppraisalRecord, int32, error) {
	args := m.Called(ctx, appraiserID, limit, offset)
	return args.Get(0).([]domain.AppraisalRecord), args.Get(1).(int32), args.Error(2)
}
func (m *MockAppraisalRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, []string, error) {
	args := m.Called(ctx, cutoff)
	var keys []string
	if args.Get(1) != nil {
		keys = args.Get(1).([]string)
	}
	return args.Get(0).(int64), keys, args.Error(2)
}

// MockAppraiserRepo
type MockAppraiserRepo struct {
	mock.Mock
}

func (m *MockAppraiserRepo) GetByID(ctx context.Context, id int32) (*domain.Appraiser, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Appraiser), args.Error(1)
}
func (m *MockAppraiserRepo) GetByEmail(ctx context.Context, email string) (*domain.Appraiser, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Appraiser), args.Error(1)
}
func (m *MockAppraiserRepo) UpdateDeviceToken(ctx context.Context, id int32, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

// MockMailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendReport(ctx context.Context, rec *domain.AppraisalRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// MockNotifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, appraiserID int32, sessionID string, n domain.Notice) error {
	args := m.Called(ctx, appraiserID, sessionID, n)
	return args.Error(0)
}

// memoryPhotos keeps photos in a map.
type memoryPhotos struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemoryPhotos() *memoryPhotos {
	return &memoryPhotos{files: make(map[string][]byte)}
}

func (p *memoryPhotos) SaveFile(ctx context.Context, key string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.files[key] = b
	p.mu.Unlock()
	return nil
}
func (p *memoryPhotos) ReadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.files[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}
func (p *memoryPhotos) FileExists(ctx context.Context, key string) (bool, int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.files[key]
	return ok, int64(len(b)), nil
}
func (p *memoryPhotos) DeleteFile(ctx context.Context, key string) error {
	p.mu.Lock()
	delete(p.files, key)
	p.mu.Unlock()
	return nil
}
func (p *memoryPhotos) DownloadURL(key string) string { return "/photos/" + key }

// providerCall is one blocked provider request. The test decides when and
// how it completes.
type providerCall struct {
	ctx   context.Context
	arg   string
	reply chan providerReply
}

type providerReply struct {
	patch domain.VehiclePatch
	err   error
}

func (c *providerCall) respond(p domain.VehiclePatch, err error) {
	c.reply <- providerReply{patch: p, err: err}
}

// gatedProvider implements every enrichment source and parks each request
// on calls.
type gatedProvider struct {
	calls chan *providerCall
}

func newGatedProvider() *gatedProvider {
	return &gatedProvider{calls: make(chan *providerCall, 16)}
}

func (g *gatedProvider) wait(ctx context.Context, arg string) (domain.VehiclePatch, error) {
	c := &providerCall{ctx: ctx, arg: arg, reply: make(chan providerReply, 1)}
	g.calls <- c
	select {
	case r := <-c.reply:
		return r.patch, r.err
	case <-ctx.Done():
		return domain.VehiclePatch{}, ctx.Err()
	}
}

func (g *gatedProvider) next() *providerCall {
	select {
	case c := <-g.calls:
		return c
	case <-time.After(2 * time.Second):
		panic("provider was not called")
	}
}

func (g *gatedProvider) AnalyzeImage(ctx context.Context, jpeg []byte) (domain.VehiclePatch, error) {
	return g.wait(ctx, "image")
}
func (g *gatedProvider) DecodeVIN(ctx context.Context, vin string) (domain.VehiclePatch, error) {
	return g.wait(ctx, vin)
}
func (g *gatedProvider) Lookup(ctx context.Context, state, rego string) (domain.VehiclePatch, error) {
	return g.wait(ctx, state+"/"+rego)
}

func patchOf(kv ...string) domain.VehiclePatch {
	var p domain.VehiclePatch
	for i := 0; i+1 < len(kv); i += 2 {
		p = p.Set(kv[i], kv[i+1])
	}
	return p
}
