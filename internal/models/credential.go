package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CredentialKeyToken = "token"
	CredentialKeyUser  = "user"
)

// Credential is one durable key/value pair of a storefront client's auth state.
type Credential struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	ClientID  string    `gorm:"not null;uniqueIndex:idx_credentials_client_key"`
	Key       string    `gorm:"not null;uniqueIndex:idx_credentials_client_key"`
	Value     string    `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (credential *Credential) BeforeCreate(tx *gorm.DB) (err error) {
	if credential.ID == uuid.Nil {
		credential.ID = uuid.New()
	}
	return
}
