package managers

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chrissnell/tidewatch/internal/controllers/restserver"
	"github.com/chrissnell/tidewatch/internal/ingest"
	"github.com/chrissnell/tidewatch/internal/storage"
	"github.com/chrissnell/tidewatch/internal/storage/memory"
	"github.com/chrissnell/tidewatch/internal/types"
	"github.com/chrissnell/tidewatch/pkg/config"
)

type fakeEngine struct {
	name string
	c    chan types.Notification
}

func (f *fakeEngine) StartEngine(context.Context, *sync.WaitGroup) chan<- types.Notification {
	return f.c
}

func (f *fakeEngine) Name() string { return f.name }

type countingDropper struct {
	mu    sync.Mutex
	drops map[string]int
}

func (d *countingDropper) NotificationDropped(sink string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.drops == nil {
		d.drops = make(map[string]int)
	}
	d.drops[sink]++
}

func (d *countingDropper) count(sink string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.drops[sink]
}

var _ ingest.Notifier = (*NotificationManager)(nil)

func TestNotificationFanOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	a := &fakeEngine{name: "a", c: make(chan types.Notification, 10)}
	b := &fakeEngine{name: "b", c: make(chan types.Notification, 10)}
	d := &countingDropper{}
	m := newNotificationManager(ctx, &wg, 10, d, zap.NewNop().Sugar(), a, b)
	require.Len(t, m.Engines, 2)

	n := types.Notification{Kind: types.NotificationSurgeStarted, StationID: "pilote-norden"}
	m.Notify(n)

	for _, e := range []*fakeEngine{a, b} {
		select {
		case got := <-e.c:
			assert.Equal(t, n, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("engine %s never received the notification", e.name)
		}
	}
	assert.Zero(t, d.count("a"))
	assert.Zero(t, d.count("b"))
}

func TestSlowEngineDoesNotBlock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	slow := &fakeEngine{name: "slow", c: make(chan types.Notification)}
	fast := &fakeEngine{name: "fast", c: make(chan types.Notification, 10)}
	d := &countingDropper{}
	m := newNotificationManager(ctx, &wg, 10, d, zap.NewNop().Sugar(), slow, fast)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			m.Notify(types.Notification{Kind: types.NotificationReading, StationID: "san-fernando"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Notify blocked on a slow engine")
	}

	assert.Eventually(t, func() bool { return d.count("slow") == 5 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return len(fast.c) == 5 }, 2*time.Second, 10*time.Millisecond)
}

func TestFullDistributorDrops(t *testing.T) {
	d := &countingDropper{}
	m := &NotificationManager{
		distributor: make(chan types.Notification, 1),
		dropper:     d,
		logger:      zap.NewNop().Sugar(),
	}

	m.Notify(types.Notification{Kind: types.NotificationReading})
	m.Notify(types.Notification{Kind: types.NotificationReading})

	assert.Equal(t, 1, d.count("distributor"))
	assert.Len(t, m.distributor, 1)
}

func TestNewNotificationManagerValidation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	defer func() {
		cancel()
		wg.Wait()
	}()

	_, err := NewNotificationManager(ctx, &wg, config.NotifiersData{
		Kafka: &config.KafkaData{},
	}, nil, zap.NewNop().Sugar())
	assert.Error(t, err)

	m, err := NewNotificationManager(ctx, &wg, config.NotifiersData{}, nil, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.Empty(t, m.Engines)
	assert.Equal(t, config.DefaultBufferSize, cap(m.distributor))
}

func TestNewStateStore(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		sd      config.StorageData
		wantErr bool
	}{
		{name: "memory", sd: config.StorageData{Backend: "memory"}},
		{name: "jsonfile", sd: config.StorageData{Backend: "jsonfile", JSONFile: &config.JSONFileData{Directory: filepath.Join(dir, "json"), Codec: "json"}}},
		{name: "sqlite", sd: config.StorageData{Backend: "sqlite", SQLite: &config.SQLiteData{Path: filepath.Join(dir, "state.db")}}},
		{name: "jsonfile without config", sd: config.StorageData{Backend: "jsonfile"}, wantErr: true},
		{name: "sqlite without config", sd: config.StorageData{Backend: "sqlite"}, wantErr: true},
		{name: "timescaledb without config", sd: config.StorageData{Backend: "timescaledb"}, wantErr: true},
		{name: "unknown", sd: config.StorageData{Backend: "redis"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewStateStore(context.Background(), tt.sd)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer store.Close()
			assert.NoError(t, store.Ping(context.Background()))
		})
	}
}

func TestStartStorageHealth(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hm := storage.NewHealthManager()
	sd := config.StorageData{Backend: "memory", HealthInterval: time.Hour}
	StartStorageHealth(ctx, hm, sd, memory.New())

	assert.Eventually(t, func() bool {
		h, ok := hm.GetHealth("memory")
		return ok && h.Status == storage.StatusHealthy
	}, 2*time.Second, 10*time.Millisecond)
}

func TestControllerManager(t *testing.T) {
	coord, err := ingest.New([]ingest.StationConfig{{ID: "san-fernando", HistoryCapacity: 72}}, memory.New(), nil)
	require.NoError(t, err)
	deps := restserver.Deps{Stations: coord, Ingester: coord}

	var wg sync.WaitGroup
	_, err = NewControllerManager(context.Background(), &wg, []config.ControllerData{{Type: "grpc"}}, deps, zap.NewNop().Sugar())
	assert.Error(t, err)

	_, err = NewControllerManager(context.Background(), &wg, []config.ControllerData{{Type: "rest"}}, deps, zap.NewNop().Sugar())
	assert.Error(t, err)

	_, err = NewControllerManager(context.Background(), &wg, []config.ControllerData{
		{Type: "rest", RESTServer: &config.RESTServerData{Port: 18080}},
	}, deps, zap.NewNop().Sugar())
	assert.NoError(t, err)
}

func TestSourceManagerWithoutSources(t *testing.T) {
	sm, err := NewSourceManager(context.Background(), config.SourcesData{}, nil, zap.NewNop().Sugar())
	require.NoError(t, err)
	assert.NoError(t, sm.StartSources())
}
