package storage

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"listing-fraud-detector/models"
)

// decodeRecord fills the columns stored as text back into a record.
func decodeRecord(r *models.VerdictRecord, id, label string, explanation []byte) error {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("storage: bad verdict id %q: %w", id, err)
	}
	r.ID = parsed
	r.Label = models.Label(label)

	if len(explanation) > 0 {
		if err := json.Unmarshal(explanation, &r.Explanation); err != nil {
			return fmt.Errorf("storage: decode explanation of %s: %w", id, err)
		}
	}
	return nil
}
