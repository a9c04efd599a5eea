// internal/app/features/profile/handler.go
package profile

import (
	mapsharestore "github.com/dalemusser/flyspot/internal/app/store/mapshares"
	userstore "github.com/dalemusser/flyspot/internal/app/store/users"
	"github.com/dalemusser/flyspot/internal/app/system/imageupload"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler owns the signed-in user's profile endpoints.
type Handler struct {
	Users          *userstore.Store
	Shares         *mapsharestore.Store
	Uploads        *imageupload.Uploader
	MaxAvatarBytes int64
	Log            *zap.Logger
}

func NewHandler(db *mongo.Database, uploads *imageupload.Uploader, maxAvatarBytes int64, logger *zap.Logger) *Handler {
	return &Handler{
		Users:          userstore.New(db),
		Shares:         mapsharestore.New(db),
		Uploads:        uploads,
		MaxAvatarBytes: maxAvatarBytes,
		Log:            logger,
	}
}
