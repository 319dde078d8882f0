package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/paceline/paceline/config"
	"github.com/paceline/paceline/models"
)

// ErrAlreadyCheckedIn is returned for a second check-in on the same local
// calendar day. It is expected under retries and carries no state change.
var ErrAlreadyCheckedIn = errors.New("already checked in today")

// CheckInResult is the outcome of a successful check-in.
type CheckInResult struct {
	MedalsAwarded int  `json:"medals_awarded"`
	CurrentStreak int  `json:"current_streak"`
	StreakBonus   bool `json:"streak_bonus"`
}

// CheckInStatus is the read-only eligibility view. It must agree with what a
// check-in call made at the same instant would decide.
type CheckInStatus struct {
	CanCheckIn     bool   `json:"can_check_in"`
	CurrentStreak  int    `json:"current_streak"`
	DaysUntilBonus int    `json:"days_until_bonus"`
	LastCheckIn    string `json:"last_check_in,omitempty"`
}

// CheckInService enforces one check-in per user per local day, maintains the
// streak across day boundaries in the caller-supplied timezone, and emits
// ledger credits for the base reward and periodic streak bonus.
type CheckInService struct {
	db        *gorm.DB
	ledger    *Ledger
	referrals *ReferralService
	now       func() time.Time
}

// NewCheckInService wires the engine to its collaborators.
func NewCheckInService(db *gorm.DB, ledger *Ledger, referrals *ReferralService) *CheckInService {
	return &CheckInService{db: db, ledger: ledger, referrals: referrals, now: time.Now}
}

// CheckIn records today's check-in for the user, resolved in tz.
//
// The whole read-modify-write runs in one transaction. Concurrent same-day
// attempts are serialized by a conditional update keyed on the previously
// observed last_check_in_date; whichever request loses the race sees zero
// rows affected and reports ErrAlreadyCheckedIn without writing anything.
// The unique (user_id, checkin_date) index on check-in records is the
// storage-level backstop.
func (s *CheckInService) CheckIn(userID uint, tz string) (*CheckInResult, error) {
	cfg := config.Get()
	loc := ResolveLocation(tz)
	now := s.now()
	today := LocalDay(now, loc)
	yesterday := PreviousLocalDay(now, loc)

	var result *CheckInResult
	var sharedWith uint
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return err
		}
		if user.LastCheckInDate == today {
			return ErrAlreadyCheckedIn
		}

		streak := NextStreak(user.LastCheckInDate, yesterday, user.CurrentStreak)
		bonus := BonusDue(streak, cfg.StreakBonusInterval, user.LastBonusStreak)

		ok, err := s.advanceStreak(tx, &user, today, streak, bonus)
		if err != nil {
			return err
		}
		if !ok {
			// A concurrent request committed first.
			return ErrAlreadyCheckedIn
		}

		awarded := cfg.CheckInRewardMedals
		if bonus {
			awarded += cfg.StreakBonusMedals
		}

		record := models.CheckIn{
			UserID:         user.ID,
			CheckinDate:    today,
			Timezone:       loc.String(),
			MedalsAwarded:  awarded,
			StreakAchieved: streak,
			StreakBonus:    bonus,
		}
		if err := tx.Create(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyCheckedIn
			}
			return err
		}

		entries := make([]*models.MedalEntry, 0, 2)
		entry, err := s.ledger.Credit(tx, user.ID, cfg.CheckInRewardMedals, models.MedalReasonCheckIn)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
		if bonus {
			entry, err = s.ledger.Credit(tx, user.ID, cfg.StreakBonusMedals, models.MedalReasonStreakBonus)
			if err != nil {
				return err
			}
			entries = append(entries, entry)
		}

		// The referrer's capped share is fed by earned credits only; welcome
		// bonuses and the shares themselves never count.
		earned := 0
		for _, e := range entries {
			if e.Earned() {
				earned += e.Amount
			}
		}
		sharedWith, err = s.referrals.OnEarned(tx, user.ID, earned)
		if err != nil {
			return err
		}

		result = &CheckInResult{
			MedalsAwarded: awarded,
			CurrentStreak: streak,
			StreakBonus:   bonus,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if sharedWith != 0 {
		s.ledger.Invalidate(userID, sharedWith)
	} else {
		s.ledger.Invalidate(userID)
	}
	return result, nil
}

// advanceStreak writes the user's new streak state, keyed on the last
// check-in date observed when the row was loaded. Returns false when a
// concurrent check-in advanced the state first; nothing was written then.
func (s *CheckInService) advanceStreak(tx *gorm.DB, user *models.User, today string, streak int, bonus bool) (bool, error) {
	updates := map[string]interface{}{
		"last_check_in_date": today,
		"current_streak":     streak,
	}
	if bonus {
		updates["last_bonus_streak"] = streak
	}
	res := tx.Model(&models.User{}).
		Where("id = ? AND last_check_in_date = ?", user.ID, user.LastCheckInDate).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Status computes check-in eligibility without mutating anything.
func (s *CheckInService) Status(userID uint, tz string) (*CheckInStatus, error) {
	cfg := config.Get()
	loc := ResolveLocation(tz)
	today := LocalDay(s.now(), loc)

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return nil, err
	}

	return &CheckInStatus{
		CanCheckIn:     user.LastCheckInDate != today,
		CurrentStreak:  user.CurrentStreak,
		DaysUntilBonus: DaysUntilBonus(user.CurrentStreak, cfg.StreakBonusInterval),
		LastCheckIn:    user.LastCheckInDate,
	}, nil
}
