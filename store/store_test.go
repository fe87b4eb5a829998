package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/scriptvault/core"
	"github.com/poiesic/scriptvault/storage"
	"github.com/poiesic/scriptvault/storage/badger"
	"github.com/poiesic/scriptvault/storage/filesystem"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStore(t *testing.T) {
	t.Run("requires backend", func(t *testing.T) {
		s, err := NewStore(nil)
		assert.ErrorIs(t, err, ErrBackendRequired)
		assert.Nil(t, s)
	})

	t.Run("defaults", func(t *testing.T) {
		backend, err := badger.NewMemoryBackend()
		require.NoError(t, err)
		defer backend.Close()

		s, err := NewStore(backend)
		require.NoError(t, err)
		assert.Equal(t, DefaultRetention, s.Retention())
		assert.NotNil(t, s.Locks())
	})

	t.Run("invalid options", func(t *testing.T) {
		backend, err := badger.NewMemoryBackend()
		require.NoError(t, err)
		defer backend.Close()

		_, err = NewStore(backend, WithRetention(0))
		assert.ErrorIs(t, err, ErrInvalidRetention)

		_, err = NewStore(backend, WithMaxAttempts(0))
		assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
	})
}

func TestPut_FirstWriteCreates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		clock := newFakeClock()
		s, err := NewStore(backend, WithClock(clock.Now))
		require.NoError(t, err)
		ctx := context.Background()

		outcome, err := s.Put(ctx, "game", "boss", []byte("return 1"))
		require.NoError(t, err)
		assert.True(t, outcome.Created())
		assert.Equal(t, core.VersionID("2024-03-07-09-00-00"), outcome.Version)
		assert.Empty(t, outcome.Pruned)

		ids, err := s.ListVersions(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Equal(t, []core.VersionID{"2024-03-07-09-00-00"}, ids)
	})
}

func TestPut_Deduplicates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		clock := newFakeClock()
		s, err := NewStore(backend, WithClock(clock.Now))
		require.NoError(t, err)
		ctx := context.Background()

		first, err := s.Put(ctx, "game", "boss", []byte("return 1"))
		require.NoError(t, err)
		assert.Equal(t, core.OutcomeCreated, first.Kind)

		clock.Advance(time.Second)
		second, err := s.Put(ctx, "game", "boss", []byte("return 1"))
		require.NoError(t, err)
		assert.Equal(t, core.OutcomeDeduplicated, second.Kind)
		assert.Equal(t, first.Version, second.Version)

		ids, err := s.ListVersions(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Len(t, ids, 1)
	})
}

func TestPut_DedupOnlyAgainstLatest(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		clock := newFakeClock()
		s, err := NewStore(backend, WithClock(clock.Now))
		require.NoError(t, err)
		ctx := context.Background()

		for _, payload := range []string{"a", "b", "a"} {
			outcome, err := s.Put(ctx, "game", "boss", []byte(payload))
			require.NoError(t, err)
			assert.True(t, outcome.Created(), payload)
			clock.Advance(time.Second)
		}

		ids, err := s.ListVersions(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Len(t, ids, 3)
	})
}

func TestPut_RetentionKeepsNewestThree(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		clock := newFakeClock()
		s, err := NewStore(backend, WithClock(clock.Now))
		require.NoError(t, err)
		ctx := context.Background()

		var created []core.VersionID
		for i := 0; i < 5; i++ {
			outcome, err := s.Put(ctx, "game", "boss", []byte(fmt.Sprintf("return %d", i)))
			require.NoError(t, err)
			require.True(t, outcome.Created())
			created = append(created, outcome.Version)

			ids, err := s.ListVersions(ctx, "game", "boss")
			require.NoError(t, err)
			assert.Len(t, ids, min(i+1, 3))
			clock.Advance(time.Second)
		}

		ids, err := s.ListVersions(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Equal(t, created[2:], ids)

		id, payload, err := s.GetLatestContent(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Equal(t, created[4], id)
		assert.Equal(t, []byte("return 4"), payload)
	})
}

func TestPut_ReportsPrunedVersions(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		clock := newFakeClock()
		s, err := NewStore(backend, WithClock(clock.Now), WithRetention(1))
		require.NoError(t, err)
		ctx := context.Background()

		first, err := s.Put(ctx, "game", "boss", []byte("a"))
		require.NoError(t, err)
		clock.Advance(time.Second)

		second, err := s.Put(ctx, "game", "boss", []byte("b"))
		require.NoError(t, err)
		assert.Equal(t, []core.VersionID{first.Version}, second.Pruned)
	})
}

func TestPut_SameSecondCollision(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		clock := newFakeClock() // never advanced
		s, err := NewStore(backend, WithClock(clock.Now))
		require.NoError(t, err)
		ctx := context.Background()

		var created []core.VersionID
		for i := 0; i < 5; i++ {
			outcome, err := s.Put(ctx, "game", "boss", []byte(fmt.Sprintf("v%d", i)))
			require.NoError(t, err)
			created = append(created, outcome.Version)
		}

		assert.Equal(t, []core.VersionID{
			"2024-03-07-09-00-00",
			"2024-03-07-09-00-00_001",
			"2024-03-07-09-00-00_002",
			"2024-03-07-09-00-00_003",
			"2024-03-07-09-00-00_004",
		}, created)

		ids, err := s.ListVersions(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Equal(t, created[2:], ids)

		_, payload, err := s.GetLatestContent(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Equal(t, []byte("v4"), payload)
	})
}

func TestPut_ClockStepsBack(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		clock := newFakeClock()
		s, err := NewStore(backend, WithClock(clock.Now))
		require.NoError(t, err)
		ctx := context.Background()

		first, err := s.Put(ctx, "game", "boss", []byte("a"))
		require.NoError(t, err)

		clock.Advance(-time.Hour)
		second, err := s.Put(ctx, "game", "boss", []byte("b"))
		require.NoError(t, err)
		assert.Greater(t, second.Version, first.Version)
	})
}

func TestGetLatestContent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		s, err := NewStore(backend)
		require.NoError(t, err)
		ctx := context.Background()

		_, _, err = s.GetLatestContent(ctx, "game", "boss")
		assert.ErrorIs(t, err, core.ErrNotFound)

		payload := []byte("local hp = 100\nreturn hp\n")
		outcome, err := s.Put(ctx, "game", "boss", payload)
		require.NoError(t, err)

		id, got, err := s.GetLatestContent(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Equal(t, outcome.Version, id)
		assert.Equal(t, payload, got)
	})
}

func TestGetLatestContent_LatestPrunedBeforeRead(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		ctx := context.Background()
		const newer = core.VersionID("2024-03-07-10-00-00")

		faulty := &faultyBackend{Backend: backend}
		faulty.beforeRead = func(loc storage.Location, id core.VersionID) {
			// Another writer lands a newer version and prunes the one just listed.
			require.NoError(t, backend.WriteVersion(ctx, loc, newer, []byte("v3")))
			require.NoError(t, backend.DeleteVersion(ctx, loc, id))
		}

		clock := newFakeClock()
		seed, err := NewStore(backend, WithClock(clock.Now))
		require.NoError(t, err)
		_, err = seed.Put(ctx, "game", "boss", []byte("v1"))
		require.NoError(t, err)
		clock.Advance(time.Second)
		_, err = seed.Put(ctx, "game", "boss", []byte("v2"))
		require.NoError(t, err)

		s, err := NewStore(faulty)
		require.NoError(t, err)
		id, got, err := s.GetLatestContent(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Equal(t, newer, id)
		assert.Equal(t, []byte("v3"), got)
	})
}

func TestGetLatestContent_VanishedTwiceIsNotFound(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		ctx := context.Background()
		s, err := NewStore(&faultyBackend{Backend: backend, failRead: storage.ErrVersionNotFound})
		require.NoError(t, err)

		seed, err := NewStore(backend)
		require.NoError(t, err)
		_, err = seed.Put(ctx, "game", "boss", []byte("v1"))
		require.NoError(t, err)

		_, _, err = s.GetLatestContent(ctx, "game", "boss")
		assert.ErrorIs(t, err, core.ErrNotFound)
	})
}

func TestGetLatestInfo(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		clock := newFakeClock()
		s, err := NewStore(backend, WithClock(clock.Now))
		require.NoError(t, err)
		ctx := context.Background()

		info, err := s.GetLatestInfo(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Equal(t, core.SentinelVersionID, info)

		_, err = s.Put(ctx, "game", "boss", []byte("a"))
		require.NoError(t, err)

		info, err = s.GetLatestInfo(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Equal(t, core.VersionID("2024-03-07-09-00-00"), info)
		assert.NotContains(t, info.String(), core.VersionExtension)
	})
}

func TestListVersions_EmptyNamespace(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		s, err := NewStore(backend)
		require.NoError(t, err)

		ids, err := s.ListVersions(context.Background(), "game", "nobody")
		require.NoError(t, err)
		assert.NotNil(t, ids)
		assert.Empty(t, ids)
	})
}

func TestNamespacesAreIndependent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		clock := newFakeClock()
		s, err := NewStore(backend, WithClock(clock.Now))
		require.NoError(t, err)
		ctx := context.Background()

		_, err = s.Put(ctx, "game", "boss", []byte("boss"))
		require.NoError(t, err)
		outcome, err := s.Put(ctx, "game", "minion", []byte("boss"))
		require.NoError(t, err)

		// Same payload and same second in another namespace is neither a dup nor a collision.
		assert.True(t, outcome.Created())
		assert.Equal(t, core.VersionID("2024-03-07-09-00-00"), outcome.Version)
	})
}

func TestInvalidIdentifiersNeverReachBackend(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		faulty := &faultyBackend{Backend: backend}
		s, err := NewStore(faulty)
		require.NoError(t, err)
		ctx := context.Background()

		cases := [][2]string{
			{"..", "boss"},
			{"game", ".."},
			{"game", "../../etc"},
			{"a/b", "boss"},
			{"", "boss"},
		}
		for _, c := range cases {
			_, err := s.Put(ctx, c[0], c[1], []byte("x"))
			assert.ErrorIs(t, err, core.ErrInvalidIdentifier, c)

			_, err = s.ListVersions(ctx, c[0], c[1])
			assert.ErrorIs(t, err, core.ErrInvalidIdentifier, c)

			_, err = s.GetLatestInfo(ctx, c[0], c[1])
			assert.ErrorIs(t, err, core.ErrInvalidIdentifier, c)

			_, _, err = s.GetLatestContent(ctx, c[0], c[1])
			assert.ErrorIs(t, err, core.ErrInvalidIdentifier, c)

			_, err = s.Prune(ctx, c[0], c[1])
			assert.ErrorIs(t, err, core.ErrInvalidIdentifier, c)
		}

		assert.Zero(t, faulty.Calls())
		assert.Zero(t, s.Locks().Len())
	})
}

func TestPut_ReadLatestFailureAborts(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		clock := newFakeClock()
		faulty := &faultyBackend{Backend: backend}
		s, err := NewStore(faulty, WithClock(clock.Now))
		require.NoError(t, err)
		ctx := context.Background()

		_, err = s.Put(ctx, "game", "boss", []byte("a"))
		require.NoError(t, err)
		clock.Advance(time.Second)

		faulty.failRead = errors.New("disk on fire")
		_, err = s.Put(ctx, "game", "boss", []byte("b"))
		assert.ErrorIs(t, err, core.ErrStorage)

		faulty.failRead = nil
		ids, err := s.ListVersions(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Len(t, ids, 1)
	})
}

func TestPut_WriteFailureIsStorageError(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		faulty := &faultyBackend{Backend: backend, failWrite: errors.New("read-only filesystem")}
		s, err := NewStore(faulty)
		require.NoError(t, err)

		_, err = s.Put(context.Background(), "game", "boss", []byte("a"))
		assert.ErrorIs(t, err, core.ErrStorage)
		assert.Contains(t, err.Error(), "read-only filesystem")
	})
}

func TestPut_ListFailureIsStorageError(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		faulty := &faultyBackend{Backend: backend, failList: errors.New("permission denied")}
		s, err := NewStore(faulty)
		require.NoError(t, err)
		ctx := context.Background()

		_, err = s.Put(ctx, "game", "boss", []byte("a"))
		assert.ErrorIs(t, err, core.ErrStorage)

		_, err = s.ListVersions(ctx, "game", "boss")
		assert.ErrorIs(t, err, core.ErrStorage)

		_, err = s.GetLatestInfo(ctx, "game", "boss")
		assert.ErrorIs(t, err, core.ErrStorage)
	})
}

func TestPut_UnresolvedCollisionIsConflict(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		faulty := &faultyBackend{Backend: backend, failWrite: storage.ErrVersionExists}
		s, err := NewStore(faulty, WithMaxAttempts(2))
		require.NoError(t, err)

		_, err = s.Put(context.Background(), "game", "boss", []byte("a"))
		assert.ErrorIs(t, err, core.ErrConflict)
		assert.NotErrorIs(t, err, core.ErrStorage)
	})
}

func TestPut_ForeignVersionAdvancesSequence(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		clock := newFakeClock()
		s, err := NewStore(backend, WithClock(clock.Now))
		require.NoError(t, err)
		ctx := context.Background()

		_, err = s.Put(ctx, "game", "boss", []byte("a"))
		require.NoError(t, err)

		// Written behind the store's back in the same second.
		loc, err := backend.Resolve(ctx, core.Namespace{Group: "game", Entity: "boss"})
		require.NoError(t, err)
		require.NoError(t, backend.WriteVersion(ctx, loc, "2024-03-07-09-00-00_001", []byte("foreign")))

		outcome, err := s.Put(ctx, "game", "boss", []byte("b"))
		require.NoError(t, err)
		assert.Equal(t, core.VersionID("2024-03-07-09-00-00_002"), outcome.Version)
	})
}

func TestPut_RetriesOnExistingID(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		clock := newFakeClock()
		faulty := &faultyBackend{Backend: backend, existsWrites: 2}
		s, err := NewStore(faulty, WithClock(clock.Now))
		require.NoError(t, err)

		outcome, err := s.Put(context.Background(), "game", "boss", []byte("a"))
		require.NoError(t, err)
		assert.Equal(t, core.VersionID("2024-03-07-09-00-00_002"), outcome.Version)
	})
}

func TestPrune_BestEffort(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		clock := newFakeClock()
		faulty := &faultyBackend{Backend: backend}
		s, err := NewStore(faulty, WithClock(clock.Now), WithRetention(10))
		require.NoError(t, err)
		ctx := context.Background()

		var created []core.VersionID
		for i := 0; i < 5; i++ {
			outcome, err := s.Put(ctx, "game", "boss", []byte(fmt.Sprintf("v%d", i)))
			require.NoError(t, err)
			created = append(created, outcome.Version)
			clock.Advance(time.Second)
		}

		// Retention drops to 1 for this pass through a second store sharing the backend.
		strict, err := NewStore(faulty, WithRetention(1))
		require.NoError(t, err)
		faulty.failDelete = map[core.VersionID]error{created[1]: errors.New("busy")}

		report, err := strict.Prune(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Equal(t, []core.VersionID{created[0], created[2], created[3]}, report.Removed)
		require.Len(t, report.Failed, 1)
		assert.Equal(t, created[1], report.Failed[0].Version)
		assert.ErrorIs(t, report.Failed[0].Err, core.ErrStorage)

		ids, err := strict.ListVersions(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Equal(t, []core.VersionID{created[1], created[4]}, ids)
	})
}

func TestPut_RetentionFailureDoesNotFailWrite(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		clock := newFakeClock()
		faulty := &faultyBackend{Backend: backend}
		s, err := NewStore(faulty, WithClock(clock.Now), WithRetention(1))
		require.NoError(t, err)
		ctx := context.Background()

		first, err := s.Put(ctx, "game", "boss", []byte("a"))
		require.NoError(t, err)
		clock.Advance(time.Second)

		faulty.failDelete = map[core.VersionID]error{first.Version: errors.New("busy")}
		second, err := s.Put(ctx, "game", "boss", []byte("b"))
		require.NoError(t, err)
		assert.True(t, second.Created())
		assert.Empty(t, second.Pruned)

		ids, err := s.ListVersions(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Equal(t, []core.VersionID{first.Version, second.Version}, ids)
	})
}

func TestPut_RetentionListFailureDoesNotFailWrite(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		// The writer lists once; the retention pass lists a second time and fails.
		faulty := &faultyBackend{Backend: backend, failList: errors.New("flaky"), listAfter: 1}
		s, err := NewStore(faulty)
		require.NoError(t, err)

		outcome, err := s.Put(context.Background(), "game", "boss", []byte("a"))
		require.NoError(t, err)
		assert.True(t, outcome.Created())
	})
}

func TestConcurrentWrites_NoLostUpdates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		const writers = 20
		s, err := NewStore(backend, WithRetention(writers))
		require.NoError(t, err)
		ctx := context.Background()

		var wg sync.WaitGroup
		outcomes := make(chan core.WriteOutcome, writers)
		errs := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcome, err := s.Put(ctx, "game", "boss", []byte(fmt.Sprintf("payload-%d", i)))
				if err != nil {
					errs <- err
					return
				}
				outcomes <- outcome
			}(i)
		}
		wg.Wait()
		close(outcomes)
		close(errs)

		for err := range errs {
			t.Errorf("unexpected write error: %v", err)
		}

		seen := make(map[core.VersionID]bool)
		for outcome := range outcomes {
			assert.True(t, outcome.Created())
			assert.False(t, seen[outcome.Version], "duplicate id %s", outcome.Version)
			seen[outcome.Version] = true
		}
		assert.Len(t, seen, writers)

		ids, err := s.ListVersions(ctx, "game", "boss")
		require.NoError(t, err)
		require.Len(t, ids, writers)
		for i := 1; i < len(ids); i++ {
			assert.Less(t, ids[i-1], ids[i])
		}
	})
}

func TestConcurrentWrites_DefaultRetention(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		const writers = 10
		s, err := NewStore(backend)
		require.NoError(t, err)
		ctx := context.Background()

		var wg sync.WaitGroup
		var mu sync.Mutex
		seen := make(map[core.VersionID]bool)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcome, err := s.Put(ctx, "game", "boss", []byte(fmt.Sprintf("payload-%d", i)))
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				seen[outcome.Version] = true
				mu.Unlock()
			}(i)
		}
		wg.Wait()

		assert.Len(t, seen, writers)
		ids, err := s.ListVersions(ctx, "game", "boss")
		require.NoError(t, err)
		assert.Len(t, ids, DefaultRetention)
	})
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend storage.Backend) {
		s, err := NewStore(backend)
		require.NoError(t, err)
		ctx := context.Background()

		_, err = s.Put(ctx, "game", "boss", []byte("payload-start"))
		require.NoError(t, err)

		done := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_, err := s.Put(ctx, "game", "boss", []byte(fmt.Sprintf("payload-%d", i)))
				assert.NoError(t, err)
			}
			close(done)
		}()

		for {
			select {
			case <-done:
				wg.Wait()
				return
			default:
			}
			_, payload, err := s.GetLatestContent(ctx, "game", "boss")
			if errors.Is(err, core.ErrNotFound) {
				// Latest was pruned between listing and reading.
				continue
			}
			require.NoError(t, err)
			// Never a partial payload.
			assert.Contains(t, string(payload), "payload-")
		}
	})
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	backend, err := badger.NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	clock := newFakeClock()
	s, err := NewStore(backend, WithMetrics(m), WithClock(clock.Now), WithRetention(1))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = s.Put(ctx, "game", "boss", []byte("a"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "game", "boss", []byte("a"))
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = s.Put(ctx, "game", "boss", []byte("b"))
	require.NoError(t, err)
	_, err = s.Put(ctx, "..", "boss", []byte("b"))
	require.Error(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.writes.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writes.WithLabelValues("deduplicated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.writes.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pruned))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.pruneFailures))

	// Registering twice on the same registry fails.
	_, err = NewMetrics(reg)
	assert.Error(t, err)
}

func TestConcurrentWrites_TwoStoresSharingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "data_storage")
	clock := newFakeClock()
	ctx := context.Background()

	var stores [2]*Store
	for i := range stores {
		backend, err := filesystem.NewBackend(root)
		require.NoError(t, err)
		t.Cleanup(func() { backend.Close() })
		stores[i], err = NewStore(backend, WithClock(clock.Now))
		require.NoError(t, err)
	}

	for round := 0; round < 50; round++ {
		entity := fmt.Sprintf("boss-%d", round)

		var wg sync.WaitGroup
		var outcomes [2]core.WriteOutcome
		var errs [2]error
		for i := range stores {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i], errs[i] = stores[i].Put(ctx, "game", entity, []byte(fmt.Sprintf("writer-%d", i)))
			}(i)
		}
		wg.Wait()

		for i := range stores {
			require.NoError(t, errs[i], "round %d writer %d", round, i)
			require.True(t, outcomes[i].Created(), "round %d writer %d", round, i)
		}
		require.NotEqual(t, outcomes[0].Version, outcomes[1].Version, "round %d", round)

		ids, err := stores[0].ListVersions(ctx, "game", entity)
		require.NoError(t, err)
		assert.Len(t, ids, 2, "round %d", round)

		backend := stores[0].backend
		loc, err := backend.Resolve(ctx, core.Namespace{Group: "game", Entity: entity})
		require.NoError(t, err)
		for i, outcome := range outcomes {
			got, err := backend.ReadVersion(ctx, loc, outcome.Version)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprintf("writer-%d", i), string(got))
		}
	}
}
