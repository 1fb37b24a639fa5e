package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"pharmacy-backend/internal/domain/entity"
	"pharmacy-backend/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// writeSlotsScript stores a doctor's free slots unless a newer stamp is
// already recorded for that doctor. Instances racing on the same doctor
// therefore cannot overwrite a fresher read with a stale one.
//
// KEYS[1] slots hash, KEYS[2] stamps hash
// ARGV[1] doctor id, ARGV[2] free slots, ARGV[3] stamp (unix micros), ARGV[4] ttl seconds
var writeSlotsScript = redis.NewScript(`
	local current = redis.call('HGET', KEYS[2], ARGV[1])
	if current and tonumber(current) > tonumber(ARGV[3]) then
		return 0
	end
	redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
	redis.call('HSET', KEYS[2], ARGV[1], ARGV[3])
	redis.call('EXPIRE', KEYS[1], ARGV[4])
	redis.call('EXPIRE', KEYS[2], ARGV[4])
	return 1
`)

const (
	RedisBranchCapacityKeyPrefix = "branch:capacity:"

	// Timeout for a single post-commit sync
	redisSyncTimeout = 5 * time.Second

	// Mirror entries outlive a quiet branch for a day, then fall back to the database
	capacityMirrorTTL = 24 * time.Hour

	// Startup sync batch; the pipeline is built and executed per batch
	syncBatchSize = 500

	mutexCleanupInterval = 10 * time.Minute
	mutexStaleThreshold  = 10 * time.Minute
)

// CapacityMirror copies each doctor's free slot count from PostgreSQL into a
// per-branch Redis hash, so branch-wide capacity can be read without
// scanning doctor_profiles. The database stays the admission authority;
// the mirror is read-only for everyone else.
//
// Lock ordering: the per-doctor mutex is taken before the database read.
type CapacityMirror struct {
	db          *gorm.DB
	redisClient *redis.Client
	doctorRepo  repository.DoctorProfileRepository
	log         *logrus.Logger

	doctorMu sync.Map // map[uuid.UUID]*mutexWithTimestamp

	stopChan chan struct{}
	wg       sync.WaitGroup
	stopped  atomic.Bool
}

type mutexWithTimestamp struct {
	mu       sync.Mutex
	lastUsed atomic.Int64 // Unix timestamp
}

// NewCapacityMirror starts the mutex cleanup goroutine. Call Stop during shutdown.
func NewCapacityMirror(db *gorm.DB, redisClient *redis.Client, doctorRepo repository.DoctorProfileRepository, log *logrus.Logger) *CapacityMirror {
	m := &CapacityMirror{
		db:          db,
		redisClient: redisClient,
		doctorRepo:  doctorRepo,
		log:         log,
		stopChan:    make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupMutexMapLoop()

	return m
}

// Stop is safe to call more than once
func (m *CapacityMirror) Stop() {
	if m.stopped.CompareAndSwap(false, true) {
		close(m.stopChan)
		m.wg.Wait()
		m.log.Info("CapacityMirror stopped")
	}
}

// SyncOnStartup rewrites the mirror for every doctor profile, in batches.
// Run it before accepting traffic.
func (m *CapacityMirror) SyncOnStartup(ctx context.Context) error {
	m.log.Info("Starting capacity mirror sync from database...")
	startTime := time.Now()

	if err := m.redisClient.Ping(ctx).Err(); err != nil {
		m.log.Warnf("Redis is not available, skipping sync: %+v", err)
		return fmt.Errorf("redis ping failed: %w", err)
	}

	offset := 0
	totalSynced := 0

	for {
		stamp := time.Now().UnixMicro()
		var profiles []entity.DoctorProfile
		err := m.db.WithContext(ctx).
			Order("user_id").
			Limit(syncBatchSize).
			Offset(offset).
			Find(&profiles).Error
		if err != nil {
			m.log.Errorf("Failed to query doctor profiles at offset %d: %+v", offset, err)
			return fmt.Errorf("query doctor profiles at offset %d: %w", offset, err)
		}

		if len(profiles) == 0 {
			if offset == 0 {
				m.log.Info("No doctor profiles found for sync")
			}
			break
		}

		pipe := m.redisClient.Pipeline()
		for i := range profiles {
			m.queueWrite(ctx, pipe, &profiles[i], stamp)
		}
		if _, err := pipe.Exec(ctx); err != nil {
			m.log.Errorf("Failed to execute pipeline for batch at offset %d: %+v", offset, err)
			return fmt.Errorf("pipeline exec at offset %d: %w", offset, err)
		}

		totalSynced += len(profiles)
		m.log.Debugf("Synced batch: %d doctors", len(profiles))

		if len(profiles) < syncBatchSize {
			break
		}
		offset += syncBatchSize

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	m.log.Infof("Capacity mirror sync completed: %d doctors synced in %v", totalSynced, time.Since(startTime))
	return nil
}

// SyncDoctor re-reads one doctor's capacity record and writes it to the mirror
func (m *CapacityMirror) SyncDoctor(ctx context.Context, doctorID uuid.UUID) error {
	mt := m.getDoctorMutex(doctorID)
	mt.mu.Lock()
	defer mt.mu.Unlock()

	// Stamped before the read: a later read always carries a larger stamp.
	stamp := time.Now().UnixMicro()
	profile, err := m.doctorRepo.FindByUserID(m.db.WithContext(ctx), doctorID)
	if err != nil {
		m.log.Warnf("Failed to load doctor %s for capacity sync: %+v", doctorID, err)
		return fmt.Errorf("load doctor %s: %w", doctorID, err)
	}
	if profile == nil {
		return ErrDoctorNotFound
	}

	written, err := writeSlotsScript.Run(ctx, m.redisClient, m.keys(profile.BranchID), m.args(profile, stamp)...).Int()
	if err != nil {
		m.log.Warnf("Failed to sync capacity for doctor %s: %+v", doctorID, err)
		return fmt.Errorf("redis capacity sync for doctor %s: %w", doctorID, err)
	}
	if written == 0 {
		m.log.Debugf("Skipped stale capacity write for doctor %s", doctorID)
		return nil
	}

	m.log.Debugf("Synced doctor %s: free_slots=%d", doctorID, profile.FreeSlots())
	return nil
}

// CapacityChanged is the post-commit hook. Failures are logged; the next
// change or the startup sync repairs the entry.
func (m *CapacityMirror) CapacityChanged(ctx context.Context, doctorID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), redisSyncTimeout)
	defer cancel()
	_ = m.SyncDoctor(ctx, doctorID)
}

// BranchFreeSlots returns the mirrored free slots per doctor. An empty map
// means the branch has no mirror entry.
func (m *CapacityMirror) BranchFreeSlots(ctx context.Context, branchID uuid.UUID) (map[uuid.UUID]int, error) {
	raw, err := m.redisClient.HGetAll(ctx, m.slotsKey(branchID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read branch capacity %s: %w", branchID, err)
	}

	slots := make(map[uuid.UUID]int, len(raw))
	for field, value := range raw {
		doctorID, err := uuid.Parse(field)
		if err != nil {
			m.log.Warnf("Ignoring malformed capacity field %q in branch %s", field, branchID)
			continue
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			m.log.Warnf("Ignoring malformed capacity value %q for doctor %s", value, doctorID)
			continue
		}
		slots[doctorID] = n
	}
	return slots, nil
}

func (m *CapacityMirror) queueWrite(ctx context.Context, pipe redis.Pipeliner, profile *entity.DoctorProfile, stamp int64) {
	// EVAL rather than EVALSHA: a pipeline cannot fall back on NOSCRIPT.
	writeSlotsScript.Eval(ctx, pipe, m.keys(profile.BranchID), m.args(profile, stamp)...)
}

func (m *CapacityMirror) keys(branchID uuid.UUID) []string {
	slots := m.slotsKey(branchID)
	return []string{slots, slots + ":stamp"}
}

func (m *CapacityMirror) args(profile *entity.DoctorProfile, stamp int64) []interface{} {
	return []interface{}{
		profile.UserID.String(),
		profile.FreeSlots(),
		stamp,
		int64(capacityMirrorTTL / time.Second),
	}
}

// Hash-tagged so both hashes of a branch land in one cluster slot.
func (m *CapacityMirror) slotsKey(branchID uuid.UUID) string {
	return RedisBranchCapacityKeyPrefix + "{" + branchID.String() + "}"
}

func (m *CapacityMirror) getDoctorMutex(doctorID uuid.UUID) *mutexWithTimestamp {
	mt, _ := m.doctorMu.LoadOrStore(doctorID, &mutexWithTimestamp{})
	result := mt.(*mutexWithTimestamp)
	result.lastUsed.Store(time.Now().Unix())
	return result
}

func (m *CapacityMirror) cleanupMutexMapLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(mutexCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			m.log.Debug("Mutex cleanup goroutine stopping")
			return
		case <-ticker.C:
			m.cleanupStaleMutexes()
		}
	}
}

// cleanupStaleMutexes checks lastUsed while holding the lock, so a doctor
// touched between the scan and the TryLock keeps its mutex.
func (m *CapacityMirror) cleanupStaleMutexes() {
	cutoffTime := time.Now().Add(-mutexStaleThreshold).Unix()
	var cleaned int

	m.doctorMu.Range(func(key, value any) bool {
		mt, ok := value.(*mutexWithTimestamp)
		if !ok {
			return true
		}
		if mt.mu.TryLock() {
			if mt.lastUsed.Load() < cutoffTime {
				m.doctorMu.Delete(key)
				cleaned++
			}
			mt.mu.Unlock()
		}
		return true
	})

	if cleaned > 0 {
		m.log.Debugf("Cleaned up %d stale mutexes", cleaned)
	}
}
