package credentials

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/farellandr/storefront/internal/clock"
	"github.com/farellandr/storefront/internal/helpers"
	"github.com/farellandr/storefront/internal/models"
)

// GormStore persists credentials as one row per (client, key). The token row
// is sealed; the user row is plain JSON.
type GormStore struct {
	db     *gorm.DB
	sealer *helpers.Sealer
	clock  clock.Clock
	logger *zap.Logger
}

func NewGormStore(db *gorm.DB, sealer *helpers.Sealer, c clock.Clock, logger *zap.Logger) *GormStore {
	if c == nil {
		c = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GormStore{db: db, sealer: sealer, clock: c, logger: logger}
}

func (g *GormStore) Load(ctx context.Context, clientID string) (models.AuthSession, error) {
	var rows []models.Credential
	if err := g.db.WithContext(ctx).Where("client_id = ?", clientID).Find(&rows).Error; err != nil {
		return models.AuthSession{}, err
	}

	var (
		user  *models.User
		token string
	)
	for _, row := range rows {
		switch row.Key {
		case models.CredentialKeyUser:
			var u models.User
			if err := json.Unmarshal([]byte(row.Value), &u); err != nil {
				g.logger.Warn("discarding unreadable stored user", zap.String("client_id", clientID), zap.Error(err))
				continue
			}
			user = &u
		case models.CredentialKeyToken:
			t, err := g.sealer.Open(row.Value)
			if err != nil {
				g.logger.Warn("discarding unreadable stored token", zap.String("client_id", clientID), zap.Error(err))
				continue
			}
			token = t
		}
	}
	return session(user, token, g.clock.Now()), nil
}

func (g *GormStore) Save(ctx context.Context, clientID string, user models.User, token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	sealed, err := g.sealer.Seal(token)
	if err != nil {
		return fmt.Errorf("seal token: %w", err)
	}
	userJSON, err := json.Marshal(user)
	if err != nil {
		return err
	}

	rows := []models.Credential{
		{ClientID: clientID, Key: models.CredentialKeyToken, Value: sealed},
		{ClientID: clientID, Key: models.CredentialKeyUser, Value: string(userJSON)},
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range rows {
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "client_id"}, {Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&rows[i]).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *GormStore) Clear(ctx context.Context, clientID string) error {
	return g.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Delete(&models.Credential{}).Error
}
