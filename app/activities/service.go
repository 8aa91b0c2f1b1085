package activities

import (
	"junction/core/logger"

	"gorm.io/gorm"
)

type ActivityService struct {
	DB     *gorm.DB
	Logger logger.Logger
}

func NewActivityService(db *gorm.DB, log logger.Logger) *ActivityService {
	return &ActivityService{
		DB:     db,
		Logger: log,
	}
}

// Migrate creates or updates the activities table
func (s *ActivityService) Migrate() error {
	return s.DB.AutoMigrate(&Activity{})
}

func (s *ActivityService) Record(module, action, description string) (*Activity, error) {
	item := &Activity{
		Module:      module,
		Action:      action,
		Description: description,
	}

	if err := s.DB.Create(item).Error; err != nil {
		s.Logger.Error("failed to record activity",
			logger.String("module", module),
			logger.Err(err))
		return nil, err
	}
	return item, nil
}

// Latest returns up to limit activities, newest first. An empty module
// returns activities for every module.
func (s *ActivityService) Latest(module string, limit int) ([]*Activity, error) {
	var items []*Activity

	query := s.DB.Model(&Activity{}).Order("id desc")
	if module != "" {
		query = query.Where("module = ?", module)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		s.Logger.Error("failed to list activities", logger.Err(err))
		return nil, err
	}
	return items, nil
}

// RecordLoad logs a module load. The first load ever seen for a module is
// recorded as "installed", later ones as "loaded".
func (s *ActivityService) RecordLoad(module, description string) (*Activity, error) {
	previous, err := s.Latest(module, 1)
	if err != nil {
		return nil, err
	}
	action := "loaded"
	if len(previous) == 0 {
		action = "installed"
	}
	return s.Record(module, action, description)
}
