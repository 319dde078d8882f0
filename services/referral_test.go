package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paceline/paceline/config"
	"github.com/paceline/paceline/models"
	"gorm.io/gorm"
)

func newReferralFixture(t *testing.T) (*gorm.DB, *ReferralService, *Ledger) {
	t.Helper()
	db := newTestDB(t)
	ledger := NewLedger(db)
	return db, NewReferralService(db, ledger), ledger
}

func seedFriendCode(t *testing.T, db *gorm.DB, userID uint) string {
	t.Helper()
	fc, err := NewFriendCodeService(db).Ensure(userID)
	require.NoError(t, err)
	return fc.Code
}

func TestClaimCreditsWelcomeBonus(t *testing.T) {
	db, referrals, ledger := newReferralFixture(t)
	cfg := config.Get()
	referrer := seedUser(t, db, "alice")
	referred := seedUser(t, db, "bob")
	code := seedFriendCode(t, db, referrer.ID)

	res, err := referrals.Claim(referred.ID, code)
	require.NoError(t, err)
	assert.Equal(t, referrer.Name(), res.ReferrerName)
	assert.Equal(t, cfg.ReferralWelcomeMedals, res.WelcomeBonus)

	// The referred user gets the welcome bonus; the referrer gets nothing yet.
	balance, err := ledger.Balance(referred.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg.ReferralWelcomeMedals, balance)

	refBalance, err := ledger.Balance(referrer.ID)
	require.NoError(t, err)
	assert.Zero(t, refBalance)

	var rel models.Referral
	require.NoError(t, db.Where("referred_user_id = ?", referred.ID).First(&rel).Error)
	assert.Equal(t, referrer.ID, rel.ReferrerID)
	assert.Zero(t, rel.MedalsEarned)
}

func TestClaimNormalizesCode(t *testing.T) {
	db, referrals, _ := newReferralFixture(t)
	referrer := seedUser(t, db, "alice")
	referred := seedUser(t, db, "bob")
	code := seedFriendCode(t, db, referrer.ID)

	_, err := referrals.Claim(referred.ID, "  "+code+" ")
	require.NoError(t, err)
}

func TestClaimRejections(t *testing.T) {
	db, referrals, ledger := newReferralFixture(t)
	referrer := seedUser(t, db, "alice")
	referred := seedUser(t, db, "bob")
	other := seedUser(t, db, "carol")
	code := seedFriendCode(t, db, referrer.ID)
	otherCode := seedFriendCode(t, db, other.ID)

	_, err := referrals.Claim(referred.ID, "NOSUCH")
	assert.ErrorIs(t, err, ErrInvalidReferralCode)

	_, err = referrals.Claim(referred.ID, "")
	assert.ErrorIs(t, err, ErrInvalidReferralCode)

	_, err = referrals.Claim(referrer.ID, code)
	assert.ErrorIs(t, err, ErrSelfReferral)

	_, err = referrals.Claim(referred.ID, code)
	require.NoError(t, err)

	// A user can be referred exactly once, even by a different code.
	_, err = referrals.Claim(referred.ID, otherCode)
	assert.ErrorIs(t, err, ErrAlreadyReferred)

	// Only the single successful claim left any credit behind.
	balance, err := ledger.Balance(referred.ID)
	require.NoError(t, err)
	assert.Equal(t, config.Get().ReferralWelcomeMedals, balance)
}

func TestOnEarnedSharesUpToCap(t *testing.T) {
	db, referrals, ledger := newReferralFixture(t)
	cfg := config.Get()
	referrer := seedUser(t, db, "alice")
	referred := seedUser(t, db, "bob")
	code := seedFriendCode(t, db, referrer.ID)
	_, err := referrals.Claim(referred.ID, code)
	require.NoError(t, err)

	// 30% of 100 is 30, but the cap of 25 clips the very first share.
	credited, err := referrals.OnEarned(nil, referred.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, referrer.ID, credited)

	balance, err := ledger.Balance(referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg.ReferralShareCap, balance)

	var rel models.Referral
	require.NoError(t, db.Where("referred_user_id = ?", referred.ID).First(&rel).Error)
	assert.Equal(t, cfg.ReferralShareCap, rel.MedalsEarned)

	// At the cap, further earning events credit nothing.
	credited, err = referrals.OnEarned(nil, referred.ID, 100)
	require.NoError(t, err)
	assert.Zero(t, credited)
	balance, err = ledger.Balance(referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg.ReferralShareCap, balance)
}

func TestOnEarnedAccumulatesAcrossEvents(t *testing.T) {
	db, referrals, ledger := newReferralFixture(t)
	cfg := config.Get()
	referrer := seedUser(t, db, "alice")
	referred := seedUser(t, db, "bob")
	code := seedFriendCode(t, db, referrer.ID)
	_, err := referrals.Claim(referred.ID, code)
	require.NoError(t, err)

	// 30% of 10 is 3 per daily check-in.
	share := 10 * cfg.ReferralSharePercent / 100
	events := 0
	for total := 0; total < cfg.ReferralShareCap; events++ {
		_, err := referrals.OnEarned(nil, referred.ID, 10)
		require.NoError(t, err)
		total += share
	}

	// The last event was clipped so the total lands exactly on the cap.
	balance, err := ledger.Balance(referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, cfg.ReferralShareCap, balance)

	var shareEntries int64
	require.NoError(t, db.Model(&models.MedalEntry{}).
		Where("user_id = ? AND reason = ?", referrer.ID, models.MedalReasonReferralShare).
		Count(&shareEntries).Error)
	assert.Equal(t, int64(events), shareEntries)
}

func TestOnEarnedNoRelationshipIsNoop(t *testing.T) {
	db, referrals, ledger := newReferralFixture(t)
	user := seedUser(t, db, "loner")

	credited, err := referrals.OnEarned(nil, user.ID, 100)
	require.NoError(t, err)
	assert.Zero(t, credited)

	var count int64
	require.NoError(t, db.Model(&models.MedalEntry{}).Count(&count).Error)
	assert.Zero(t, count)

	balance, err := ledger.Balance(user.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestOnEarnedTinyAmountRoundsToNothing(t *testing.T) {
	db, referrals, ledger := newReferralFixture(t)
	referrer := seedUser(t, db, "alice")
	referred := seedUser(t, db, "bob")
	code := seedFriendCode(t, db, referrer.ID)
	_, err := referrals.Claim(referred.ID, code)
	require.NoError(t, err)

	// 30% of 1 truncates to 0: no entry at all.
	credited, err := referrals.OnEarned(nil, referred.ID, 1)
	require.NoError(t, err)
	assert.Zero(t, credited)

	balance, err := ledger.Balance(referrer.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestShareAttemptStaleObservationWritesNothing(t *testing.T) {
	db, referrals, _ := newReferralFixture(t)
	referrer := seedUser(t, db, "alice")
	referred := seedUser(t, db, "bob")
	code := seedFriendCode(t, db, referrer.ID)
	_, err := referrals.Claim(referred.ID, code)
	require.NoError(t, err)

	var rel models.Referral
	require.NoError(t, db.Where("referred_user_id = ?", referred.ID).First(&rel).Error)

	// A concurrent earning event advances the total after the load.
	require.NoError(t, db.Model(&models.Referral{}).Where("id = ?", rel.ID).
		Update("medals_earned", 10).Error)

	ok, err := referrals.shareAttempt(db, &rel, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	// With the fresh total the same advance succeeds.
	require.NoError(t, db.First(&rel, rel.ID).Error)
	ok, err = referrals.shareAttempt(db, &rel, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, db.First(&rel, rel.ID).Error)
	assert.Equal(t, 13, rel.MedalsEarned)
}

func TestCheckInFeedsReferralShare(t *testing.T) {
	db := newTestDB(t)
	ledger := NewLedger(db)
	referrals := NewReferralService(db, ledger)
	svc := NewCheckInService(db, ledger, referrals)
	fc := installFakeCache(ledger)
	cfg := config.Get()

	referrer := seedUser(t, db, "alice")
	referred := seedUser(t, db, "bob")
	code := seedFriendCode(t, db, referrer.ID)
	_, err := referrals.Claim(referred.ID, code)
	require.NoError(t, err)

	// Warm the referrer's cached balance so a missing post-commit
	// invalidation would surface as a stale zero below.
	balance, err := ledger.Balance(referrer.ID)
	require.NoError(t, err)
	assert.Zero(t, balance)

	res, err := svc.CheckIn(referred.ID, "UTC")
	require.NoError(t, err)

	want := res.MedalsAwarded * cfg.ReferralSharePercent / 100
	require.Contains(t, fc.deletes, balanceCacheKey(referrer.ID))
	balance, err = ledger.Balance(referrer.ID)
	require.NoError(t, err)
	assert.Equal(t, want, balance)

	// The welcome bonus itself never feeds the share.
	var rel models.Referral
	require.NoError(t, db.Where("referred_user_id = ?", referred.ID).First(&rel).Error)
	assert.Equal(t, want, rel.MedalsEarned)
}
