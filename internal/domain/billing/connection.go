package billing

import (
	"github.com/google/uuid"
	"github.com/utilitybill/backend/internal/domain/shared"
)

// Connection is a consumer's service point for one utility type.
// It is owned by the connection management collaborator and read-only here.
type Connection struct {
	shared.BaseEntity
	ConnectionNumber string    `json:"connection_number"`
	ConsumerID       uuid.UUID `json:"consumer_id"`
	UtilityTypeID    uuid.UUID `json:"utility_type_id"`
	Active           bool      `json:"active"`
}

// NewConnection creates an active connection
func NewConnection(connectionNumber string, consumerID, utilityTypeID uuid.UUID) (*Connection, error) {
	if connectionNumber == "" {
		return nil, shared.NewDomainError("INVALID_CONNECTION_NUMBER", "Connection number cannot be empty")
	}
	if consumerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CONSUMER", "Consumer ID cannot be empty")
	}
	if utilityTypeID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_UTILITY_TYPE", "Utility type ID cannot be empty")
	}
	return &Connection{
		BaseEntity:       shared.NewBaseEntity(),
		ConnectionNumber: connectionNumber,
		ConsumerID:       consumerID,
		UtilityTypeID:    utilityTypeID,
		Active:           true,
	}, nil
}
