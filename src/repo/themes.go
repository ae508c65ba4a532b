package repo

import (
	"github.com/commforge/challengebot/src/types"
	"gorm.io/gorm"
)

// Themes exposes the seeded challenge theme catalog.
type Themes struct {
	db *gorm.DB
}

func NewThemes(db *gorm.DB) *Themes { return &Themes{db: db} }

// ActiveNames returns the enumerated set of valid theme names.
func (r *Themes) ActiveNames() ([]string, error) {
	var names []string
	err := r.db.Model(&types.ChallengeTheme{}).
		Where("active = ?", true).Order("name ASC").Pluck("name", &names).Error
	return names, err
}
