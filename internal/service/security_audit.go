package service

import (
	"context"
	"encoding/json"

	"vividly/internal/entity"
	"vividly/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// recordSecurityEvent writes an audit row. Failures are logged and
// swallowed so they never fail the operation being audited.
func recordSecurityEvent(
	ctx context.Context,
	repo repository.SecurityLogRepository,
	logger logrus.FieldLogger,
	userID *uuid.UUID,
	ipAddress *string,
	userAgent *string,
	action entity.SecurityAction,
	metadata map[string]any,
) {
	if repo == nil {
		return
	}
	var payload datatypes.JSON
	if metadata != nil {
		if bytes, err := json.Marshal(metadata); err == nil {
			payload = datatypes.JSON(bytes)
		}
	}

	row := &entity.SecurityLog{
		UserID:    userID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Action:    action,
		Metadata:  payload,
	}
	if err := repo.Log(ctx, row); err != nil {
		logger.WithError(err).WithField("action", action).Warn("security log write failed")
	}
}
