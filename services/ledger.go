package services

import (
	"errors"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/paceline/paceline/models"
	"github.com/paceline/paceline/utils"
)

// ErrInvalidAmount indicates a non-positive credit. Valid callers never
// produce it; seeing it in logs means a programming defect upstream.
var ErrInvalidAmount = errors.New("credit amount must be positive")

const balanceCacheTTL = 10 * time.Minute

// Ledger is the append-only medal ledger. Balances are always derivable from
// the medal_entries table; the Redis balance cache is a read-through
// projection invalidated on every append, never a source of truth.
type Ledger struct {
	db *gorm.DB

	cacheGet func(key string) ([]byte, bool)
	cacheSet func(key string, b []byte, ttl time.Duration)
	cacheDel func(keys ...string)
}

// NewLedger creates a ledger bound to the given database handle.
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{
		db:       db,
		cacheGet: utils.CacheGetBytes,
		cacheSet: utils.CacheSetBytes,
		cacheDel: utils.CacheDelete,
	}
}

// Credit appends a ledger entry for the user. When tx is non-nil the entry
// joins the caller's transaction so state changes and their credits commit
// together. There is no debit operation.
//
// Cache invalidation only happens here on the standalone path. A delete
// issued while the caller's transaction is still open can be undone by a
// concurrent read re-caching the pre-commit sum, so transactional callers
// must call Invalidate after their transaction returns.
func (l *Ledger) Credit(tx *gorm.DB, userID uint, amount int, reason string) (*models.MedalEntry, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	inTx := tx != nil
	if !inTx {
		tx = l.db
	}
	entry := &models.MedalEntry{
		UserID: userID,
		Amount: amount,
		Reason: reason,
	}
	if err := tx.Create(entry).Error; err != nil {
		return nil, err
	}
	if !inTx {
		l.cacheDel(balanceCacheKey(userID))
	}
	return entry, nil
}

// Invalidate drops the cached balances for the given users. Called by
// transactional writers once their transaction has committed.
func (l *Ledger) Invalidate(userIDs ...uint) {
	if len(userIDs) == 0 {
		return
	}
	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = balanceCacheKey(id)
	}
	l.cacheDel(keys...)
}

// Balance returns the sum of the user's ledger entries, 0 for a user with no
// entries. Cached reads are repopulated from the ledger on every miss.
func (l *Ledger) Balance(userID uint) (int, error) {
	key := balanceCacheKey(userID)
	if b, ok := l.cacheGet(key); ok {
		if n, err := strconv.Atoi(string(b)); err == nil {
			return n, nil
		}
	}

	var sum int64
	if err := l.db.Model(&models.MedalEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&sum).Error; err != nil {
		return 0, err
	}

	l.cacheSet(key, []byte(strconv.FormatInt(sum, 10)), balanceCacheTTL)
	return int(sum), nil
}

// Entries returns the user's ledger entries, newest first.
func (l *Ledger) Entries(userID uint, limit int) ([]models.MedalEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.MedalEntry
	err := l.db.Where("user_id = ?", userID).
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

func balanceCacheKey(userID uint) string {
	return "cache:medals:balance:" + strconv.FormatUint(uint64(userID), 10)
}
