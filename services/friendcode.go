package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/paceline/paceline/models"
	"github.com/paceline/paceline/utils"
)

const friendCodeLength = 6

// FriendCodeService hands out each user's shareable code. Codes are created
// lazily on first request and immutable afterwards; referral claims and
// friend lookups resolve users through them.
type FriendCodeService struct {
	db *gorm.DB
}

func NewFriendCodeService(db *gorm.DB) *FriendCodeService {
	return &FriendCodeService{db: db}
}

// Ensure returns the user's friend code, generating one on first request.
// Collisions with existing codes are retried with a fresh value.
func (f *FriendCodeService) Ensure(userID uint) (*models.FriendCode, error) {
	var fc models.FriendCode
	err := f.db.Where("user_id = ?", userID).First(&fc).Error
	if err == nil {
		return &fc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < 5; attempt++ {
		code, err := utils.GenerateCode(friendCodeLength)
		if err != nil {
			return nil, err
		}
		fc = models.FriendCode{UserID: userID, Code: code}
		err = f.db.Create(&fc).Error
		if err == nil {
			return &fc, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
		// Either the code collided or a concurrent request created the
		// user's code first; in the latter case the reload succeeds.
		if lookupErr := f.db.Where("user_id = ?", userID).First(&fc).Error; lookupErr == nil {
			return &fc, nil
		}
	}
	return nil, errors.New("could not allocate a unique friend code")
}

// Resolve returns the user owning the given code.
func (f *FriendCodeService) Resolve(code string) (*models.User, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var fc models.FriendCode
	if err := f.db.Where("code = ?", code).First(&fc).Error; err != nil {
		return nil, err
	}
	var user models.User
	if err := f.db.First(&user, fc.UserID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
