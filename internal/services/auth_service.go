package services

import (
	"errors"

	"filedrop/internal/models"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Signup creates a new user and provisions a permissive grant for every
// file that exists at signup time, in one transaction. New accounts are
// never admins. Returns ErrPasswordMismatch when the confirmation
// differs and ErrDuplicateName when the username is taken.
func Signup(db *gorm.DB, username, name, password, password2 string) (*models.User, error) {
	if password != password2 {
		return nil, ErrPasswordMismatch
	}

	var existing models.User
	err := db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateName
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     username,
		Name:         name,
		PasswordHash: string(hash),
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			// Racing signups with the same username: the unique
			// index decides, the loser reports a duplicate.
			if isDuplicateKey(err) {
				return ErrDuplicateName
			}
			return err
		}
		return grantExistingFiles(tx, user.UserID)
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// Login verifies credentials and returns the user record. The same
// ErrInvalidCredentials covers unknown usernames and wrong passwords so
// login probes can't tell them apart.
func Login(db *gorm.DB, username, password string) (*models.User, error) {
	var user models.User
	err := db.Where("username = ?", username).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &user, nil
}
