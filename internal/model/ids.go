package model

import "github.com/google/uuid"

// ensureID assigns a random UUID to an unset primary key before insert.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
