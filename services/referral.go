package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/paceline/paceline/config"
	"github.com/paceline/paceline/models"
)

// Referral claim rejections. All of them leave zero state behind.
var (
	ErrInvalidReferralCode = errors.New("referral code not found")
	ErrSelfReferral        = errors.New("cannot claim your own referral code")
	ErrAlreadyReferred     = errors.New("user was already referred")
)

// ErrReferralConflict surfaces when concurrent earning events keep invalidating
// the share update. Callers may retry; no credit was written.
var ErrReferralConflict = errors.New("conflicting referral update")

const onEarnedAttempts = 3

// ClaimResult is returned to the referred user after a successful claim.
type ClaimResult struct {
	ReferrerName string `json:"referrer_name"`
	WelcomeBonus int    `json:"welcome_bonus"`
}

// ReferralService validates and claims referral codes and pays the referrer
// an ongoing, capped share of the referred user's earned medals.
type ReferralService struct {
	db     *gorm.DB
	ledger *Ledger
}

// NewReferralService wires the engine to its collaborators.
func NewReferralService(db *gorm.DB, ledger *Ledger) *ReferralService {
	return &ReferralService{db: db, ledger: ledger}
}

// Claim redeems a referral code for the calling user. The relationship row
// and the welcome-bonus credit are created in one transaction or not at all.
// Claiming is intentionally not idempotent: a success must not be retried.
func (r *ReferralService) Claim(userID uint, code string) (*ClaimResult, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, ErrInvalidReferralCode
	}

	var fc models.FriendCode
	if err := r.db.Where("code = ?", code).First(&fc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidReferralCode
		}
		return nil, err
	}
	if fc.UserID == userID {
		return nil, ErrSelfReferral
	}

	var referrer models.User
	if err := r.db.First(&referrer, fc.UserID).Error; err != nil {
		return nil, err
	}

	cfg := config.Get()
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing models.Referral
		err := tx.Where("referred_user_id = ?", userID).First(&existing).Error
		if err == nil {
			return ErrAlreadyReferred
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		rel := models.Referral{
			ReferrerID:     fc.UserID,
			ReferredUserID: userID,
			ReferralCode:   code,
		}
		if err := tx.Create(&rel).Error; err != nil {
			// The unique index on referred_user_id catches a concurrent claim.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyReferred
			}
			return err
		}

		_, err = r.ledger.Credit(tx, userID, cfg.ReferralWelcomeMedals, models.MedalReasonReferralWelcome)
		return err
	})
	if err != nil {
		return nil, err
	}
	r.ledger.Invalidate(userID)

	return &ClaimResult{
		ReferrerName: referrer.Name(),
		WelcomeBonus: cfg.ReferralWelcomeMedals,
	}, nil
}

// OnEarned credits the referrer their share of medals the referred user just
// earned, up to the per-relationship cap. A user without a referrer is a
// no-op, as is a relationship already at the cap. Returns the referrer's id
// when a share was credited, 0 otherwise; transactional callers invalidate
// that referrer's balance cache after their transaction commits.
//
// The running total is advanced with a compare-and-swap on its previously
// observed value so concurrent earning events can never push it past the cap;
// the loser of a race reloads and retries with the fresh total.
func (r *ReferralService) OnEarned(tx *gorm.DB, referredUserID uint, amount int) (uint, error) {
	if amount <= 0 {
		return 0, nil
	}
	standalone := tx == nil
	if standalone {
		tx = r.db
	}

	var rel models.Referral
	if err := tx.Where("referred_user_id = ?", referredUserID).First(&rel).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}

	cfg := config.Get()
	share := amount * cfg.ReferralSharePercent / 100
	if share <= 0 {
		return 0, nil
	}

	for attempt := 0; attempt < onEarnedAttempts; attempt++ {
		creditable := share
		if remaining := cfg.ReferralShareCap - rel.MedalsEarned; creditable > remaining {
			creditable = remaining
		}
		if creditable <= 0 {
			return 0, nil
		}

		ok, err := r.shareAttempt(tx, &rel, creditable)
		if err != nil {
			return 0, err
		}
		if ok {
			if _, err := r.ledger.Credit(tx, rel.ReferrerID, creditable, models.MedalReasonReferralShare); err != nil {
				return 0, err
			}
			if standalone {
				r.ledger.Invalidate(rel.ReferrerID)
			}
			return rel.ReferrerID, nil
		}

		if err := tx.First(&rel, rel.ID).Error; err != nil {
			return 0, err
		}
	}
	return 0, ErrReferralConflict
}

// shareAttempt makes one conditional advance of the relationship's running
// total, keyed on the value observed when rel was loaded. Returns false when
// that observation went stale; the caller reloads and retries.
func (r *ReferralService) shareAttempt(tx *gorm.DB, rel *models.Referral, creditable int) (bool, error) {
	res := tx.Model(&models.Referral{}).
		Where("id = ? AND medals_earned = ?", rel.ID, rel.MedalsEarned).
		Update("medals_earned", rel.MedalsEarned+creditable)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListForReferrer returns the relationships where the user is the referrer.
func (r *ReferralService) ListForReferrer(userID uint) ([]models.Referral, error) {
	var rels []models.Referral
	err := r.db.Where("referrer_id = ?", userID).Order("id").Find(&rels).Error
	return rels, err
}
